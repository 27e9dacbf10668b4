package model

import "time"

// SyncJob 仓库与外部调度器任务的绑定（单向链接，删除即取消调度）
type SyncJob struct {
	Id           int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	RepositoryId int64  `json:"repository_id" gorm:"column:repository_id;not null;index"`
	CronSpec     string `json:"cron_spec" gorm:"column:cron_spec;size:100;not null"`
	Enabled      int8   `json:"enabled" gorm:"column:enabled;not null;default:1"`
	UserId       string `json:"user_id" gorm:"column:user_id;size:100"` // 调度发起人，运行时以其身份执行
	LastError    string `json:"last_error" gorm:"column:last_error;type:text"`
	LastRunTime  *time.Time `json:"last_run_time" gorm:"column:last_run_time"`

	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create;autoCreateTime"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified;autoUpdateTime"`
}

func (SyncJob) TableName() string {
	return "sync_job"
}
