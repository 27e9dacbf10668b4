package model

import "time"

// SyncConfig 节点级同步配置单例（id 恒为 1）：本节点身份与全局代理默认值
type SyncConfig struct {
	Id       int64  `json:"id" gorm:"column:id;primaryKey"`
	NodeUuid string `json:"node_uuid" gorm:"column:node_uuid;size:36;not null"`
	NodeName string `json:"node_name" gorm:"column:node_name;size:100"`
	ProxyUrl string `json:"proxy_url" gorm:"column:proxy_url;size:500"` // 全局代理，可被仓库级配置覆盖

	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified;autoUpdateTime"`
}

func (SyncConfig) TableName() string {
	return "sync_config"
}

const SyncConfigSingletonId = 1
