package model

import "time"

// SyncStatus 进程级单例（id 恒为 1），守护"同一时刻一个仓库只有一次运行"的不变量，
// 并记录排队中的手动运行
type SyncStatus struct {
	Id      int64 `json:"id" gorm:"column:id;primaryKey"`
	Running int8  `json:"running" gorm:"column:running;not null;default:0"`
	Manual  int8  `json:"manual" gorm:"column:manual;not null;default:0"`

	RunningRepoId int64  `json:"running_repo_id" gorm:"column:running_repo_id;not null;default:0"`
	ManualRepoId  int64  `json:"manual_repo_id" gorm:"column:manual_repo_id;not null;default:0"`
	ManualUserId  string `json:"manual_user_id" gorm:"column:manual_user_id;size:100"`

	Timestmp time.Time `json:"timestmp" gorm:"column:timestmp"`
}

func (SyncStatus) TableName() string {
	return "sync_status"
}

const SyncStatusSingletonId = 1
