package document

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Version 交换文档格式版本，接收端对未知版本尽力而为（保留未知字段，不应用）
const Version = "1.0"

// Document 是仓库间交换的规范文档：根节点携带版本与 generator，
// 记录以 UUID 标识，本地自增主键永远不出现在线上格式中
type Document struct {
	Version   string    `json:"version"`
	Generator string    `json:"generator"`
	Resource  string    `json:"resource"`
	Records   []*Record `json:"records"`

	// Extra 保留未知的顶层字段（前向兼容：记录但不应用）
	Extra map[string]json.RawMessage `json:"-"`
}

// Record 单条记录的线上形式，引用一律以 UUID 表达
type Record struct {
	Uuid       string                 `json:"uuid"`
	ModifiedOn time.Time              `json:"modified_on"`
	Deleted    bool                   `json:"deleted,omitempty"`
	DeletedFk  map[string]string      `json:"deleted_fk,omitempty"` // 删除前持有的外键快照
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	References map[string]string      `json:"references,omitempty"` // field -> 目标记录 UUID

	// Extra 保留未知的记录级字段
	Extra map[string]json.RawMessage `json:"-"`
}

// FormatError 文档格式错误
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed document: %s", e.Reason)
}

// UnknownResourceError 文档声明了本节点未注册的资源
type UnknownResourceError struct {
	Resource string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("unknown resource: %s", e.Resource)
}

// Encode 将记录集编码为规范文档，时间戳统一为 UTC 毫秒精度
func Encode(resource, generator string, records []*Record) *Document {
	for _, rec := range records {
		rec.ModifiedOn = rec.ModifiedOn.UTC().Truncate(time.Millisecond)
	}
	return &Document{
		Version:   Version,
		Generator: generator,
		Resource:  resource,
		Records:   records,
	}
}

// Decode 解析并校验一份交换文档
func Decode(data []byte) (*Document, error) {
	doc := new(Document)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, &FormatError{Reason: err.Error()}
	}
	if doc.Version == "" {
		return nil, &FormatError{Reason: "missing version"}
	}
	if doc.Resource == "" {
		return nil, &FormatError{Reason: "missing resource"}
	}
	for i, rec := range doc.Records {
		if rec == nil {
			return nil, &FormatError{Reason: fmt.Sprintf("record #%d is null", i)}
		}
		if _, err := uuid.Parse(rec.Uuid); err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("record #%d: invalid uuid %q", i, rec.Uuid)}
		}
		if rec.ModifiedOn.IsZero() {
			return nil, &FormatError{Reason: fmt.Sprintf("record %s: missing modified_on", rec.Uuid)}
		}
		rec.ModifiedOn = rec.ModifiedOn.UTC().Truncate(time.Millisecond)
	}
	return doc, nil
}

func (d *Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

var documentKeys = map[string]bool{
	"version": true, "generator": true, "resource": true, "records": true,
}

var recordKeys = map[string]bool{
	"uuid": true, "modified_on": true, "deleted": true, "deleted_fk": true,
	"attributes": true, "references": true,
}

func (d *Document) UnmarshalJSON(data []byte) error {
	type alias Document
	a := new(alias)
	if err := json.Unmarshal(data, a); err != nil {
		return err
	}
	*d = Document(*a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if !documentKeys[k] {
			if d.Extra == nil {
				d.Extra = make(map[string]json.RawMessage)
			}
			d.Extra[k] = v
		}
	}
	return nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	a := new(alias)
	if err := json.Unmarshal(data, a); err != nil {
		return err
	}
	*r = Record(*a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if !recordKeys[k] {
			if r.Extra == nil {
				r.Extra = make(map[string]json.RawMessage)
			}
			r.Extra[k] = v
		}
	}
	return nil
}
