package v1

import "time"

// ==================== Repository ====================

// CreateRepositoryRequest 创建远端仓库；创建时引擎会尽力完成双向注册，
// 注册失败只记录不阻断
type CreateRepositoryRequest struct {
	Name       string `json:"name" binding:"required,max=100" example:"field-office-nairobi"`
	BaseUrl    string `json:"base_url" binding:"required,url" example:"https://peer.example.org"`
	Username   string `json:"username" example:"sync"`
	Password   string `json:"password" example:"secret"`
	ProxyUrl   string `json:"proxy_url" example:"http://proxy.local:3128"`
	AcceptPush bool   `json:"accept_push" example:"false"`
}

type UpdateRepositoryRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	BaseUrl    string `json:"base_url" binding:"required,url"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	ProxyUrl   string `json:"proxy_url"`
	AcceptPush bool   `json:"accept_push"`
}

type RepositoryItem struct {
	Id         int64  `json:"id"`
	Uuid       string `json:"uuid"`
	Name       string `json:"name"`
	BaseUrl    string `json:"base_url"`
	Username   string `json:"username"`
	ProxyUrl   string `json:"proxy_url"`
	AcceptPush bool   `json:"accept_push"`
	LastStatus string `json:"last_status"`
	CreateTime time.Time `json:"create_time"`
}

type ListRepositoryRequest struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=20"`
}

type ListRepositoryResponseData struct {
	Items []RepositoryItem `json:"items"`
	Total int64            `json:"total"`
}

type ListRepositoryResponse struct {
	Response
	Data ListRepositoryResponseData
}

type GetRepositoryResponse struct {
	Response
	Data RepositoryItem
}

// ==================== Task ====================

type CreateTaskRequest struct {
	ResourceName   string `json:"resource_name" binding:"required" example:"person"`
	Mode           string `json:"mode" binding:"required,oneof=pull push both none" example:"both"`
	Strategy       string `json:"strategy" example:"create,update,delete"`
	UpdatePolicy   string `json:"update_policy" binding:"omitempty,oneof=always newer master never" example:"newer"`
	ConflictPolicy string `json:"conflict_policy" binding:"omitempty,oneof=always newer master never" example:"newer"`
	UpdateMethod   string `json:"update_method" binding:"omitempty,oneof=update replace" example:"update"`
	MasterUuid     string `json:"master_uuid" example:""`
}

type UpdateTaskRequest struct {
	Mode           string `json:"mode" binding:"required,oneof=pull push both none"`
	Strategy       string `json:"strategy"`
	UpdatePolicy   string `json:"update_policy" binding:"omitempty,oneof=always newer master never"`
	ConflictPolicy string `json:"conflict_policy" binding:"omitempty,oneof=always newer master never"`
	UpdateMethod   string `json:"update_method" binding:"omitempty,oneof=update replace"`
	MasterUuid     string `json:"master_uuid"`
}

type TaskItem struct {
	Id             int64      `json:"id"`
	RepositoryId   int64      `json:"repository_id"`
	ResourceName   string     `json:"resource_name"`
	Mode           string     `json:"mode"`
	LastSync       *time.Time `json:"last_sync"`
	Strategy       string     `json:"strategy"`
	UpdatePolicy   string     `json:"update_policy"`
	ConflictPolicy string     `json:"conflict_policy"`
	UpdateMethod   string     `json:"update_method"`
	MasterUuid     string     `json:"master_uuid"`
}

type ListTaskResponseData struct {
	Items []TaskItem `json:"items"`
}

type ListTaskResponse struct {
	Response
	Data ListTaskResponseData
}
