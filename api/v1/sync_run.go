package v1

import "time"

// ==================== Run / Status ====================

type RunNowRequest struct {
	RepositoryId int64 `json:"repository_id" binding:"required" example:"1"`
}

type SyncStatusData struct {
	Running       bool      `json:"running"`
	Manual        bool      `json:"manual"`
	RunningRepoId int64     `json:"running_repo_id"`
	ManualRepoId  int64     `json:"manual_repo_id"`
	Timestmp      time.Time `json:"timestmp"`
}

type SyncStatusResponse struct {
	Response
	Data SyncStatusData
}

// ==================== Job ====================

type CreateJobRequest struct {
	RepositoryId int64  `json:"repository_id" binding:"required" example:"1"`
	CronSpec     string `json:"cron_spec" binding:"required" example:"*/15 * * * *"`
}

type JobItem struct {
	Id           int64      `json:"id"`
	RepositoryId int64      `json:"repository_id"`
	CronSpec     string     `json:"cron_spec"`
	Enabled      bool       `json:"enabled"`
	UserId       string     `json:"user_id"`
	LastError    string     `json:"last_error"`
	LastRunTime  *time.Time `json:"last_run_time"`
}

type ListJobResponseData struct {
	Items []JobItem `json:"items"`
}

type ListJobResponse struct {
	Response
	Data ListJobResponseData
}

// ==================== Log ====================

type ListLogRequest struct {
	Page         int    `form:"page,default=1"`
	PageSize     int    `form:"page_size,default=20"`
	RepositoryId *int64 `form:"repository_id"`
	ResourceName string `form:"resource_name"`
	Result       string `form:"result"`
}

type LogItem struct {
	Id           int64     `json:"id"`
	RepositoryId int64     `json:"repository_id"`
	ResourceName string    `json:"resource_name"`
	Direction    string    `json:"direction"`
	Action       string    `json:"action"`
	Result       string    `json:"result"`
	Remote       bool      `json:"remote"`
	Message      string    `json:"message"`
	Timestmp     time.Time `json:"timestmp"`
}

type ListLogResponseData struct {
	Items []LogItem `json:"items"`
	Total int64     `json:"total"`
}

type ListLogResponse struct {
	Response
	Data ListLogResponseData
}

// ==================== Conflict ====================

type ListConflictRequest struct {
	Page         int    `form:"page,default=1"`
	PageSize     int    `form:"page_size,default=20"`
	RepositoryId *int64 `form:"repository_id"`
}

type ConflictItem struct {
	Id               int64     `json:"id"`
	RepositoryId     int64     `json:"repository_id"`
	ResourceName     string    `json:"resource_name"`
	RecordUuid       string    `json:"record_uuid"`
	RemoteRecord     string    `json:"remote_record"`
	LocalModifiedOn  time.Time `json:"local_modified_on"`
	RemoteModifiedOn time.Time `json:"remote_modified_on"`
	CreateTime       time.Time `json:"create_time"`
}

type ListConflictResponseData struct {
	Items []ConflictItem `json:"items"`
	Total int64          `json:"total"`
}

type ListConflictResponse struct {
	Response
	Data ListConflictResponseData
}

type ResolveConflictRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=accept-remote keep-local" example:"accept-remote"`
}

// ==================== Config ====================

type SyncConfigData struct {
	NodeUuid string `json:"node_uuid"`
	NodeName string `json:"node_name"`
	ProxyUrl string `json:"proxy_url"`
}

type SyncConfigResponse struct {
	Response
	Data SyncConfigData
}

type UpdateSyncConfigRequest struct {
	NodeName string `json:"node_name"`
	ProxyUrl string `json:"proxy_url"`
}
