package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"peersync/internal/model"
	"peersync/internal/registry"
	"peersync/internal/repository"
	"peersync/pkg/document"
	"peersync/pkg/log"

	"go.uber.org/zap"
)

// ErrImportAborted 资源级事务回滚：与单条记录无关的数据库错误导致整个资源导入中止
var ErrImportAborted = errors.New("import aborted")

// 导入方法
const (
	importMethodCreate = "create"
	importMethodUpdate = "update"
	importMethodDelete = "delete"
	importMethodSkip   = "skip"
)

// ImportItem 一条入站记录的内存态处理结果，不落盘
type ImportItem struct {
	Record   *document.Record
	Method   string
	Action   string // 日志 action：跳过/拒绝/冲突原因，或 created/updated/deleted
	Existing *model.SyncRecord
	Accepted bool
	Error    string
	Conflict bool

	cyclic bool // 循环引用成员，两趟写入：先占位行再回填
}

// ImportResult 单资源导入的汇总
type ImportResult struct {
	Resource string
	Items    []*ImportItem
	Created  int
	Updated  int
	Deleted  int
	Skipped  int
	Rejected int
	Conflicts int
}

func (r *ImportResult) Summary() string {
	return fmt.Sprintf("%d created, %d updated, %d deleted, %d skipped, %d rejected, %d conflicts",
		r.Created, r.Updated, r.Deleted, r.Skipped, r.Rejected, r.Conflicts)
}

func (r *ImportResult) HasWork() bool {
	return len(r.Items) > 0
}

// Outcomes 转换为推送应答文档（push-in 的 HTTP 应答）
func (r *ImportResult) Outcomes(generator string) *document.OutcomeDocument {
	out := document.NewOutcomeDocument(r.Resource, generator)
	for _, item := range r.Items {
		status := document.OutcomeSkipped
		switch {
		case item.Conflict:
			status = document.OutcomeConflict
		case !item.Accepted:
			status = document.OutcomeRejected
		case item.Method == importMethodCreate:
			status = document.OutcomeCreated
		case item.Method == importMethodUpdate:
			status = document.OutcomeUpdated
		case item.Method == importMethodDelete:
			status = document.OutcomeDeleted
		}
		message := item.Error
		if message == "" && item.Method == importMethodSkip {
			message = item.Action
		}
		out.Add(item.Record.Uuid, status, message)
	}
	return out
}

// Importer 导入解析器：逐条裁决 create/update/delete/skip/conflict，
// 按依赖序组装导入计划，按资源原子提交
type Importer interface {
	Import(ctx context.Context, repo *model.SyncRepository, task *model.SyncTask, doc *document.Document) (*ImportResult, error)
}

func NewImporter(
	service *Service,
	reg *registry.Registry,
	recordRepo repository.SyncRecordRepository,
	conflictRepo repository.SyncConflictRepository,
	logger *log.Logger,
) Importer {
	return &importer{
		Service:      service,
		registry:     reg,
		recordRepo:   recordRepo,
		conflictRepo: conflictRepo,
		logger:       logger,
	}
}

type importer struct {
	*Service
	registry     *registry.Registry
	recordRepo   repository.SyncRecordRepository
	conflictRepo repository.SyncConflictRepository
	logger       *log.Logger
}

func (i *importer) Import(ctx context.Context, repo *model.SyncRepository, task *model.SyncTask, doc *document.Document) (*ImportResult, error) {
	res, err := i.registry.Get(doc.Resource)
	if err != nil {
		return nil, err
	}
	if len(doc.Extra) > 0 {
		// 前向兼容：未知字段只记录，不应用
		i.logger.WithContext(ctx).Warn("document carries unknown attributes",
			zap.String("resource", doc.Resource), zap.Any("extra", doc.Extra))
	}

	items := orderByDependency(doc.Records)
	inDoc := make(map[string]*document.Record, len(doc.Records))
	for _, rec := range doc.Records {
		inDoc[rec.Uuid] = rec
	}

	// 每个资源一个事务单元：要么所有被接受的条目一起提交，要么全部回滚
	err = i.tm.Transaction(ctx, func(ctx context.Context) error {
		var backfill []*ImportItem
		for _, item := range items {
			if err := i.resolve(ctx, res, repo, task, item, inDoc); err != nil {
				return err
			}
			if item.cyclic && item.Accepted && item.Method == importMethodCreate {
				backfill = append(backfill, item)
			}
		}
		// 第二趟：回填循环引用成员的属性与引用
		for _, item := range backfill {
			if err := i.backfill(ctx, doc.Resource, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportAborted, err)
	}

	result := &ImportResult{Resource: doc.Resource, Items: items}
	for _, item := range items {
		switch {
		case item.Conflict:
			result.Conflicts++
		case !item.Accepted:
			result.Rejected++
		case item.Method == importMethodCreate:
			result.Created++
		case item.Method == importMethodUpdate:
			result.Updated++
		case item.Method == importMethodDelete:
			result.Deleted++
		default:
			result.Skipped++
		}
	}
	return result, nil
}

// resolve 对单条入站记录执行裁决并应用。
// 返回非 nil 仅当发生与该条目无关的数据库错误（导致整体回滚）
func (i *importer) resolve(ctx context.Context, res *registry.Resource, repo *model.SyncRepository, task *model.SyncTask, item *ImportItem, inDoc map[string]*document.Record) error {
	rec := item.Record

	existing, err := i.recordRepo.FindByUuid(ctx, task.ResourceName, rec.Uuid)
	if err != nil {
		return err
	}
	item.Existing = existing

	i.decide(task, repo, item)
	if item.Conflict {
		if err := i.recordConflict(ctx, repo, task, item); err != nil {
			return err
		}
	}
	if item.Method == importMethodSkip {
		return nil
	}

	if item.Method != importMethodDelete {
		if rejected := i.validate(ctx, res, task.ResourceName, item, inDoc); rejected {
			return nil
		}
	}

	switch item.Method {
	case importMethodCreate:
		if item.cyclic {
			// 占位行：先占住 UUID，引用与属性由第二趟回填
			return i.recordRepo.Insert(ctx, &model.SyncRecord{
				ResourceName: task.ResourceName,
				Uuid:         rec.Uuid,
				Attributes:   "{}",
				References:   "{}",
				ModifiedOn:   rec.ModifiedOn,
			})
		}
		item.Action = "created"
		return i.recordRepo.Insert(ctx, &model.SyncRecord{
			ResourceName: task.ResourceName,
			Uuid:         rec.Uuid,
			Attributes:   marshalMap(rec.Attributes),
			References:   marshalStringMap(rec.References),
			ModifiedOn:   rec.ModifiedOn,
		})

	case importMethodUpdate:
		return i.applyUpdate(ctx, task, item)

	case importMethodDelete:
		item.Action = "deleted"
		deletedFk := marshalStringMap(rec.DeletedFk)
		if len(rec.DeletedFk) == 0 && item.Existing != nil {
			// 对端未带外键快照时，保留本地记录删除前持有的引用
			deletedFk = item.Existing.References
		}
		return i.recordRepo.SoftDelete(ctx, task.ResourceName, rec.Uuid, rec.ModifiedOn, deletedFk)
	}
	return nil
}

// decide §导入裁决：墓碑、新建、干净更新与冲突分别按 strategy/update_policy/conflict_policy 处理
func (i *importer) decide(task *model.SyncTask, repo *model.SyncRepository, item *ImportItem) {
	rec := item.Record
	item.Accepted = true

	if rec.Deleted {
		if item.Existing == nil || item.Existing.Deleted == 1 {
			// 记录不存在（或已删除）：删除以平凡方式被接受
			i.skip(item, model.SyncLogActionSkippedAbsent)
			return
		}
		if !task.HasStrategy(model.SyncStrategyDelete) {
			i.skip(item, model.SyncLogActionSkippedStrategy)
			return
		}
		item.Method = importMethodDelete
		return
	}

	if item.Existing == nil {
		if !task.HasStrategy(model.SyncStrategyCreate) {
			i.skip(item, model.SyncLogActionSkippedStrategy)
			return
		}
		item.Method = importMethodCreate
		return
	}

	// 本地未在 last_sync 之后改动 → 干净更新；否则双方都改过 → 冲突。
	// last_sync 为 null 视为时间起点，本地任何改动都算"改过"
	clean := task.LastSync != nil && !item.Existing.ModifiedOn.After(task.LastSync.UTC())
	policy := task.UpdatePolicy
	if !clean {
		policy = task.ConflictPolicy
	}

	switch policy {
	case model.SyncPolicyAlways:
		item.Method = importMethodUpdate
	case model.SyncPolicyNewer:
		// 毫秒精度比较，平局本地获胜
		if rec.ModifiedOn.After(item.Existing.ModifiedOn.UTC().Truncate(time.Millisecond)) {
			item.Method = importMethodUpdate
		} else {
			i.skip(item, model.SyncLogActionSkippedOlder)
			return
		}
	case model.SyncPolicyMaster:
		if task.IsMaster(repo.Uuid) {
			item.Method = importMethodUpdate
		} else {
			i.skip(item, model.SyncLogActionSkippedNotMaster)
			return
		}
	case model.SyncPolicyNever:
		if clean {
			i.skip(item, model.SyncLogActionSkippedPolicy)
		} else {
			item.Conflict = true
			i.skip(item, model.SyncLogActionConflictUnresolved)
		}
		return
	default:
		i.skip(item, model.SyncLogActionSkippedPolicy)
		return
	}

	if !task.HasStrategy(model.SyncStrategyUpdate) {
		i.skip(item, model.SyncLogActionSkippedStrategy)
		return
	}
	if !clean {
		item.Action = "conflict-resolved-" + policy
	} else {
		item.Action = "updated"
	}
}

func (i *importer) skip(item *ImportItem, action string) {
	item.Method = importMethodSkip
	item.Action = action
}

// validate 属性校验 + 引用完整性检查；失败条目被隔离拒绝，其余条目继续
func (i *importer) validate(ctx context.Context, res *registry.Resource, resourceName string, item *ImportItem, inDoc map[string]*document.Record) bool {
	rec := item.Record

	if fieldErrs := res.Validate(rec.Attributes, rec.References); len(fieldErrs) > 0 {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fe.Error())
		}
		i.reject(item, strings.Join(msgs, "; "))
		return true
	}

	targets := res.ReferenceTargets()
	for field, targetUuid := range rec.References {
		targetResource, known := targets[field]
		if !known {
			continue // 未声明的引用字段按普通数据对待
		}
		if targetResource == resourceName {
			if _, ok := inDoc[targetUuid]; ok {
				continue // 同文档内解析
			}
		}
		local, err := i.recordRepo.FindByUuid(ctx, targetResource, targetUuid)
		if err == nil && local != nil {
			continue
		}
		i.reject(item, fmt.Sprintf("%s: unresolved reference %s", field, targetUuid))
		return true
	}
	return false
}

func (i *importer) reject(item *ImportItem, message string) {
	item.Accepted = false
	item.Method = importMethodSkip
	item.Action = model.SyncLogActionRejected
	item.Error = message
}

func (i *importer) applyUpdate(ctx context.Context, task *model.SyncTask, item *ImportItem) error {
	rec := item.Record
	existing := item.Existing

	switch task.UpdateMethod {
	case model.SyncUpdateMethodReplace:
		existing.Attributes = marshalMap(rec.Attributes)
		existing.References = marshalStringMap(rec.References)
	default:
		// 原地更新：入站未携带的本地属性保留
		existing.Attributes = mergeJSON(existing.Attributes, rec.Attributes)
		existing.References = mergeStringJSON(existing.References, rec.References)
	}
	existing.ModifiedOn = rec.ModifiedOn
	existing.Deleted = 0
	existing.DeletedFk = ""
	return i.recordRepo.Update(ctx, existing)
}

func (i *importer) backfill(ctx context.Context, resourceName string, item *ImportItem) error {
	record, err := i.recordRepo.FindByUuid(ctx, resourceName, item.Record.Uuid)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("placeholder row vanished for %s", item.Record.Uuid)
	}
	record.Attributes = marshalMap(item.Record.Attributes)
	record.References = marshalStringMap(item.Record.References)
	item.Action = "created"
	return i.recordRepo.Update(ctx, record)
}

// Conflict 行在导入事务内落盘，重复冲突不重复建行
func (i *importer) recordConflict(ctx context.Context, repo *model.SyncRepository, task *model.SyncTask, item *ImportItem) error {
	existing, err := i.conflictRepo.GetByRecord(ctx, repo.Id, task.ResourceName, item.Record.Uuid)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	remote, _ := json.Marshal(item.Record)
	localModified := time.Time{}
	if item.Existing != nil {
		localModified = item.Existing.ModifiedOn
	}
	return i.conflictRepo.Create(ctx, &model.SyncConflict{
		RepositoryId:     repo.Id,
		ResourceName:     task.ResourceName,
		RecordUuid:       item.Record.Uuid,
		RemoteRecord:     string(remote),
		LocalModifiedOn:  localModified,
		RemoteModifiedOn: item.Record.ModifiedOn,
	})
}

// orderByDependency 按文档内 UUID 引用做拓扑排序（Kahn），
// 环上的成员标记为 cyclic，由两趟写入处理
func orderByDependency(records []*document.Record) []*ImportItem {
	index := make(map[string]int, len(records))
	for pos, rec := range records {
		index[rec.Uuid] = pos
	}

	indegree := make([]int, len(records))
	dependents := make(map[int][]int)
	for pos, rec := range records {
		for _, target := range rec.References {
			depPos, ok := index[target]
			if !ok || depPos == pos {
				continue
			}
			indegree[pos]++
			dependents[depPos] = append(dependents[depPos], pos)
		}
	}

	var queue []int
	for pos := range records {
		if indegree[pos] == 0 {
			queue = append(queue, pos)
		}
	}

	var order []int
	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]
		order = append(order, pos)
		for _, dep := range dependents[pos] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	items := make([]*ImportItem, 0, len(records))
	resolved := make(map[int]bool, len(order))
	for _, pos := range order {
		resolved[pos] = true
		items = append(items, &ImportItem{Record: records[pos]})
	}
	// 剩余的即环成员，按文档顺序追加
	for pos, rec := range records {
		if !resolved[pos] {
			items = append(items, &ImportItem{Record: rec, cyclic: true})
		}
	}
	return items
}

func marshalMap(m map[string]interface{}) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func marshalStringMap(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func mergeJSON(local string, inbound map[string]interface{}) string {
	merged := make(map[string]interface{})
	if local != "" {
		_ = json.Unmarshal([]byte(local), &merged)
	}
	for k, v := range inbound {
		merged[k] = v
	}
	return marshalMap(merged)
}

func mergeStringJSON(local string, inbound map[string]string) string {
	merged := make(map[string]string)
	if local != "" {
		_ = json.Unmarshal([]byte(local), &merged)
	}
	for k, v := range inbound {
		merged[k] = v
	}
	return marshalStringMap(merged)
}
