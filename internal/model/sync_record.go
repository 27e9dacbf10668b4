package model

import "time"

// SyncRecord 通用资源记录行。引擎对资源形状保持多态：
// 任何资源的记录都以 (resource_name, uuid) 定位，属性与引用以 JSON 落盘。
// UUID 是唯一的跨仓库身份，自增主键只在本地使用，绝不上线
type SyncRecord struct {
	Id           int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ResourceName string `json:"resource_name" gorm:"column:resource_name;size:100;not null;uniqueIndex:uk_resource_uuid"`
	Uuid         string `json:"uuid" gorm:"column:uuid;size:36;not null;uniqueIndex:uk_resource_uuid"`

	Attributes string `json:"attributes" gorm:"column:attributes;type:text"` // JSON object
	References string `json:"references" gorm:"column:refs;type:text"`       // JSON object: field -> uuid

	ModifiedOn time.Time `json:"modified_on" gorm:"column:modified_on;not null;index"`
	Deleted    int8      `json:"deleted" gorm:"column:deleted;not null;default:0"`
	DeletedFk  string    `json:"deleted_fk" gorm:"column:deleted_fk;type:text"` // 软删除时的外键快照 JSON

	CreateTime time.Time `json:"create_time" gorm:"column:gmt_create;autoCreateTime"`
	UpdateTime time.Time `json:"update_time" gorm:"column:gmt_modified;autoUpdateTime"`
}

func (SyncRecord) TableName() string {
	return "sync_record"
}
