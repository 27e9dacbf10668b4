package document

import (
	"encoding/json"
)

// 推送应答中的单条记录结果
const (
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeDeleted  = "deleted"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
)

// Outcome 推送时对端返回的单条记录处理结果
type Outcome struct {
	Uuid    string `json:"uuid"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OutcomeDocument PUT /sync/<resource> 的应答文档
type OutcomeDocument struct {
	Version   string    `json:"version"`
	Generator string    `json:"generator"`
	Resource  string    `json:"resource"`
	Results   []Outcome `json:"results"`
}

func NewOutcomeDocument(resource, generator string) *OutcomeDocument {
	return &OutcomeDocument{
		Version:   Version,
		Generator: generator,
		Resource:  resource,
	}
}

func (d *OutcomeDocument) Add(uuid, status, message string) {
	d.Results = append(d.Results, Outcome{Uuid: uuid, Status: status, Message: message})
}

// Accepted 是否记录级成功（跳过也算接受，重试不会有不同结果）
func (o Outcome) Accepted() bool {
	return o.Status != OutcomeRejected
}

func DecodeOutcome(data []byte) (*OutcomeDocument, error) {
	doc := new(OutcomeDocument)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, &FormatError{Reason: err.Error()}
	}
	if doc.Version == "" {
		return nil, &FormatError{Reason: "missing version"}
	}
	return doc, nil
}
