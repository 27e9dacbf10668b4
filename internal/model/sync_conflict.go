package model

import "time"

// SyncConflict 策略无法自动裁决的分歧写入，等待操作员处理；
// 处理完成或仓库删除时删除
type SyncConflict struct {
	Id           int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	RepositoryId int64  `json:"repository_id" gorm:"column:repository_id;not null;index"`
	ResourceName string `json:"resource_name" gorm:"column:resource_name;size:100;not null"`
	RecordUuid   string `json:"record_uuid" gorm:"column:record_uuid;size:36;not null;index"`

	// RemoteRecord 入站记录的原始 JSON，供操作员采纳远端版本时回放
	RemoteRecord     string     `json:"remote_record" gorm:"column:remote_record;type:text"`
	LocalModifiedOn  time.Time  `json:"local_modified_on" gorm:"column:local_modified_on"`
	RemoteModifiedOn time.Time  `json:"remote_modified_on" gorm:"column:remote_modified_on"`

	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create;autoCreateTime"`
}

func (SyncConflict) TableName() string {
	return "sync_conflict"
}

// 操作员裁决方式
const (
	SyncConflictResolveAcceptRemote = "accept-remote"
	SyncConflictResolveKeepLocal    = "keep-local"
)
