package model

import (
	"strings"
	"time"
)

// SyncTask 一个（仓库, 资源）对的同步策略记录。
// 同一仓库同一资源最多存在一条未删除的任务，由服务层在创建时校验：
// 软删除后需要可以重建任务，而部分唯一索引 MySQL 不支持
type SyncTask struct {
	Id           int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	RepositoryId int64  `json:"repository_id" gorm:"column:repository_id;not null;index:idx_repo_resource"`
	ResourceName string `json:"resource_name" gorm:"column:resource_name;size:100;not null;index:idx_repo_resource"`

	Mode     string     `json:"mode" gorm:"column:mode;size:20;not null;default:'both'"`
	LastSync *time.Time `json:"last_sync" gorm:"column:last_sync"` // 首次成功前为 null，视为时间起点

	// Strategy 允许的导入变更类型集合，逗号分隔，如 "create,update,delete"
	Strategy     string `json:"strategy" gorm:"column:strategy;size:100;not null;default:'create,update,delete'"`
	UpdatePolicy string `json:"update_policy" gorm:"column:update_policy;size:20;not null;default:'newer'"`
	ConflictPolicy string `json:"conflict_policy" gorm:"column:conflict_policy;size:20;not null;default:'newer'"`
	UpdateMethod string `json:"update_method" gorm:"column:update_method;size:20;not null;default:'update'"`

	// MasterUuid master 策略下的权威仓库；为空时默认本任务的仓库即 master
	MasterUuid string `json:"master_uuid" gorm:"column:master_uuid;size:36"`

	Deleted int8 `json:"deleted" gorm:"column:deleted;not null;default:0"`

	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create;autoCreateTime"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified;autoUpdateTime"`
	Creator    string    `json:"creator" gorm:"column:creator;size:100"`
	Modifier   string    `json:"modifier" gorm:"column:modifier;size:100"`
}

func (SyncTask) TableName() string {
	return "sync_task"
}

// 同步方向
const (
	SyncTaskModePull = "pull"
	SyncTaskModePush = "push"
	SyncTaskModeBoth = "both"
	SyncTaskModeNone = "none"
)

// 更新/冲突裁决策略
const (
	SyncPolicyAlways = "always"
	SyncPolicyNewer  = "newer"
	SyncPolicyMaster = "master"
	SyncPolicyNever  = "never"
)

// 更新方式
const (
	SyncUpdateMethodUpdate  = "update"  // 原地更新，保留入站记录未携带的本地属性
	SyncUpdateMethodReplace = "replace" // 整体替换
)

// 导入策略项
const (
	SyncStrategyCreate = "create"
	SyncStrategyUpdate = "update"
	SyncStrategyDelete = "delete"
	SyncStrategyMerge  = "merge"
)

func (t *SyncTask) HasStrategy(s string) bool {
	for _, item := range strings.Split(t.Strategy, ",") {
		if strings.TrimSpace(item) == s {
			return true
		}
	}
	return false
}

func (t *SyncTask) PullEnabled() bool {
	return t.Mode == SyncTaskModePull || t.Mode == SyncTaskModeBoth
}

func (t *SyncTask) PushEnabled() bool {
	return t.Mode == SyncTaskModePush || t.Mode == SyncTaskModeBoth
}

// IsMaster repo 是否为该任务 master 策略下的权威仓库
func (t *SyncTask) IsMaster(repositoryUuid string) bool {
	if t.MasterUuid == "" {
		return true // 未配置时任务所属仓库即 master
	}
	return t.MasterUuid == repositoryUuid
}
