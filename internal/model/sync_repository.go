package model

import "time"

// SyncRepository 已知的远端同步仓库（对端节点）
type SyncRepository struct {
	Id       int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Uuid     string `json:"uuid" gorm:"column:uuid;size:36;uniqueIndex;not null"`
	Name     string `json:"name" gorm:"column:name;size:100;not null"`
	BaseUrl  string `json:"base_url" gorm:"column:base_url;size:500;not null"`
	Username string `json:"username" gorm:"column:username;size:100"`
	Password string `json:"password" gorm:"column:password;size:200"`
	ProxyUrl string `json:"proxy_url" gorm:"column:proxy_url;size:500"` // 覆盖全局代理配置

	AcceptPush int8 `json:"accept_push" gorm:"column:accept_push;not null;default:0"` // 是否允许该仓库主动向本节点推送

	LastStatus string `json:"last_status" gorm:"column:last_status;size:500"` // 最近一次运行的单行摘要

	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create;autoCreateTime"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified;autoUpdateTime"`
	Creator    string    `json:"creator" gorm:"column:creator;size:100"`
	Modifier   string    `json:"modifier" gorm:"column:modifier;size:100"`
}

func (SyncRepository) TableName() string {
	return "sync_repository"
}
