package model

import "time"

// SyncLog 任务级结果的只追加日志
type SyncLog struct {
	Id           int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	RepositoryId int64  `json:"repository_id" gorm:"column:repository_id;not null;index"`
	// ResourceName 冗余一份资源名，任务删除后日志不悬空
	ResourceName string `json:"resource_name" gorm:"column:resource_name;size:100"`
	Direction    string `json:"direction" gorm:"column:direction;size:20"`
	Action       string `json:"action" gorm:"column:action;size:100"`
	Result       string `json:"result" gorm:"column:result;size:20;index"`
	Remote       int8   `json:"remote" gorm:"column:remote;not null;default:0"` // 错误发生在远端
	Message      string `json:"message" gorm:"column:message;type:text"`
	Timestmp     time.Time `json:"timestmp" gorm:"column:timestmp;autoCreateTime;index"`
}

func (SyncLog) TableName() string {
	return "sync_log"
}

// 传输方向：pull/push 视角 × 数据流入/流出本节点
const (
	SyncLogDirectionPullIn  = "pull-in"
	SyncLogDirectionPullOut = "pull-out"
	SyncLogDirectionPushIn  = "push-in"
	SyncLogDirectionPushOut = "push-out"
)

// 结果等级
const (
	SyncLogResultOk      = "ok"
	SyncLogResultWarning = "warning"
	SyncLogResultError   = "error"
)

// 常见 action 值（逐条记录的跳过/拒绝原因也写入 action）
const (
	SyncLogActionSync               = "sync"
	SyncLogActionNothingToSync      = "nothing-to-sync"
	SyncLogActionSkippedAbsent      = "skipped-absent"
	SyncLogActionSkippedStrategy    = "skipped-strategy"
	SyncLogActionSkippedPolicy      = "skipped-policy"
	SyncLogActionSkippedOlder       = "skipped-older"
	SyncLogActionSkippedNotMaster   = "skipped-not-master"
	SyncLogActionConflictUnresolved = "conflict-unresolved"
	SyncLogActionRejected           = "rejected"
	SyncLogActionRemoteRejected     = "remote-rejected"
)
