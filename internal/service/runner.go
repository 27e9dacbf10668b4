package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"peersync/internal/model"
	"peersync/internal/repository"
	"peersync/pkg/document"
	"peersync/pkg/log"
	"peersync/pkg/peer"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

//go:generate mockgen -source=runner.go -destination=../../test/mocks/service/peer_client.go -package=mock_service

// PeerClient 任务运行器消费的传输客户端能力集（pkg/peer.Client 实现之）
type PeerClient interface {
	Fetch(ctx context.Context, resource string, since *time.Time) (*document.Document, error)
	Send(ctx context.Context, resource string, doc *document.Document) (*document.OutcomeDocument, error)
	Register(ctx context.Context, identity peer.Identity) (*peer.Identity, error)
}

// PeerClientFactory 按仓库构造客户端；仓库级代理覆盖全局默认
type PeerClientFactory func(repo *model.SyncRepository, proxyDefault string) (PeerClient, error)

func NewPeerClientFactory(conf *viper.Viper) PeerClientFactory {
	timeout := conf.GetDuration("sync.transport_timeout")
	return func(repo *model.SyncRepository, proxyDefault string) (PeerClient, error) {
		proxy := repo.ProxyUrl
		if proxy == "" {
			proxy = proxyDefault
		}
		return peer.NewClient(repo.BaseUrl, repo.Username, repo.Password, proxy, timeout)
	}
}

// RunContext 贯穿一次运行的显式上下文：发起人身份、手动标记与节点配置
type RunContext struct {
	UserId string
	Manual bool
	Config *model.SyncConfig
}

func (rc *RunContext) Generator() string {
	if rc == nil || rc.Config == nil {
		return "peersync"
	}
	return fmt.Sprintf("peersync/%s", rc.Config.NodeUuid)
}

// TaskOutcome 单任务一次运行的结果
type TaskOutcome struct {
	Task *model.SyncTask
	Pull *ImportResult
	Pushed   int
	Rejected int
	Err      error
}

func (o *TaskOutcome) Ok() bool {
	return o.Err == nil
}

// TaskRunner 对一个（仓库, 资源）对执行拉取与推送，任务内先拉后推
type TaskRunner interface {
	Run(ctx context.Context, rc *RunContext, repo *model.SyncRepository, task *model.SyncTask, client PeerClient) *TaskOutcome
}

func NewTaskRunner(
	service *Service,
	conf *viper.Viper,
	taskRepo repository.SyncTaskRepository,
	recordRepo repository.SyncRecordRepository,
	logRepo repository.SyncLogRepository,
	importer Importer,
	logger *log.Logger,
) TaskRunner {
	maxRetries := conf.GetInt("sync.max_retries")
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := conf.GetDuration("sync.retry_backoff")
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &taskRunner{
		Service:    service,
		taskRepo:   taskRepo,
		recordRepo: recordRepo,
		logRepo:    logRepo,
		importer:   importer,
		logger:     logger,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

type taskRunner struct {
	*Service
	taskRepo   repository.SyncTaskRepository
	recordRepo repository.SyncRecordRepository
	logRepo    repository.SyncLogRepository
	importer   Importer
	logger     *log.Logger
	maxRetries int
	backoff    time.Duration
}

func (r *taskRunner) Run(ctx context.Context, rc *RunContext, repo *model.SyncRepository, task *model.SyncTask, client PeerClient) *TaskOutcome {
	outcome := &TaskOutcome{Task: task}
	if task.Mode == model.SyncTaskModeNone {
		return outcome
	}

	// 两个方向共用运行初始的水位，推送不会漏掉拉取之前的本地改动
	since := task.LastSync

	var pulled map[string]bool
	if task.PullEnabled() {
		result, pulledUuids, err := r.pull(ctx, rc, repo, task, client, since)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		outcome.Pull = result
		pulled = pulledUuids
	}
	if task.PushEnabled() {
		if err := r.push(ctx, rc, repo, task, client, since, pulled, outcome); err != nil {
			outcome.Err = err
			return outcome
		}
	}
	return outcome
}

func (r *taskRunner) pull(ctx context.Context, rc *RunContext, repo *model.SyncRepository, task *model.SyncTask, client PeerClient, since *time.Time) (*ImportResult, map[string]bool, error) {
	// 水位推进到发起拉取的时刻而非收到应答的时刻，不丢并发编辑
	t0 := time.Now().UTC()

	var doc *document.Document
	err := r.withRetry(ctx, func() error {
		var fetchErr error
		doc, fetchErr = client.Fetch(ctx, task.ResourceName, since)
		return fetchErr
	})
	if err != nil {
		r.log(ctx, repo.Id, task.ResourceName, model.SyncLogDirectionPullIn, model.SyncLogActionSync,
			model.SyncLogResultError, isRemoteError(err), err.Error())
		return nil, nil, err
	}

	result, err := r.importer.Import(ctx, repo, task, doc)
	if err != nil {
		r.log(ctx, repo.Id, task.ResourceName, model.SyncLogDirectionPullIn, model.SyncLogActionSync,
			model.SyncLogResultError, false, err.Error())
		return nil, nil, err
	}

	r.logItems(ctx, repo.Id, task.ResourceName, model.SyncLogDirectionPullIn, result)
	if result.HasWork() {
		r.log(ctx, repo.Id, task.ResourceName, model.SyncLogDirectionPullIn, model.SyncLogActionSync,
			model.SyncLogResultOk, false, result.Summary())
	} else {
		r.log(ctx, repo.Id, task.ResourceName, model.SyncLogDirectionPullIn, model.SyncLogActionNothingToSync,
			model.SyncLogResultOk, false, "nothing to sync")
	}

	if err := r.taskRepo.UpdateLastSync(ctx, task.Id, t0); err != nil {
		return nil, nil, err
	}

	pulled := make(map[string]bool, len(doc.Records))
	for _, rec := range doc.Records {
		pulled[rec.Uuid] = true
	}
	return result, pulled, nil
}

func (r *taskRunner) push(ctx context.Context, rc *RunContext, repo *model.SyncRepository, task *model.SyncTask, client PeerClient, since *time.Time, pulled map[string]bool, outcome *TaskOutcome) error {
	t0 := time.Now().UTC()

	records, err := r.recordRepo.SelectSince(ctx, task.ResourceName, since)
	if err != nil {
		return err
	}

	var wireRecords []*document.Record
	for _, record := range records {
		if pulled[record.Uuid] {
			continue // 本次运行刚拉下来的记录不回推
		}
		wireRecords = append(wireRecords, toWireRecord(record))
	}

	if len(wireRecords) == 0 {
		r.log(ctx, repo.Id, task.ResourceName, model.SyncLogDirectionPushOut, model.SyncLogActionNothingToSync,
			model.SyncLogResultOk, false, "nothing to sync")
		return r.taskRepo.UpdateLastSync(ctx, task.Id, t0)
	}

	doc := document.Encode(task.ResourceName, rc.Generator(), wireRecords)
	var response *document.OutcomeDocument
	err = r.withRetry(ctx, func() error {
		var sendErr error
		response, sendErr = client.Send(ctx, task.ResourceName, doc)
		return sendErr
	})
	if err != nil {
		r.log(ctx, repo.Id, task.ResourceName, model.SyncLogDirectionPushOut, model.SyncLogActionSync,
			model.SyncLogResultError, isRemoteError(err), err.Error())
		return err
	}

	// 远端的逐记录拒绝只记录不阻断：重发不会有不同结果，水位照常推进
	for _, res := range response.Results {
		if res.Accepted() {
			outcome.Pushed++
			continue
		}
		outcome.Rejected++
		r.log(ctx, repo.Id, task.ResourceName, model.SyncLogDirectionPushOut, model.SyncLogActionRemoteRejected,
			model.SyncLogResultWarning, true, fmt.Sprintf("%s: %s", res.Uuid, res.Message))
	}
	r.log(ctx, repo.Id, task.ResourceName, model.SyncLogDirectionPushOut, model.SyncLogActionSync,
		model.SyncLogResultOk, false, fmt.Sprintf("%d sent, %d rejected by peer", len(wireRecords), outcome.Rejected))

	return r.taskRepo.UpdateLastSync(ctx, task.Id, t0)
}

// withRetry 网络/服务端/超时错误指数退避重试；auth、not-found 与格式错误立刻失败
func (r *taskRunner) withRetry(ctx context.Context, op func() error) error {
	backoff := r.backoff
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		var te *peer.TransportError
		if !errors.As(err, &te) || !te.Retriable() || attempt >= r.maxRetries-1 {
			return err
		}
		r.logger.WithContext(ctx).Warn("retriable transport error",
			zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// logItems 被跳过/拒绝/冲突的条目逐条留痕，满足"每条入站记录要么落地要么日志可查"
func (r *taskRunner) logItems(ctx context.Context, repoID int64, resource, direction string, result *ImportResult) {
	for _, item := range result.Items {
		if item.Accepted && item.Method != importMethodSkip {
			continue
		}
		if item.Method == importMethodSkip && item.Action == model.SyncLogActionSkippedAbsent && !item.Conflict {
			// 平凡接受的墓碑也留痕，但降为 info 消息
			r.log(ctx, repoID, resource, direction, item.Action, model.SyncLogResultOk, false, item.Record.Uuid)
			continue
		}
		message := item.Record.Uuid
		if item.Error != "" {
			message = fmt.Sprintf("%s: %s", item.Record.Uuid, item.Error)
		}
		r.log(ctx, repoID, resource, direction, item.Action, model.SyncLogResultWarning, false, message)
	}
}

func (r *taskRunner) log(ctx context.Context, repoID int64, resource, direction, action, result string, remote bool, message string) {
	entry := &model.SyncLog{
		RepositoryId: repoID,
		ResourceName: resource,
		Direction:    direction,
		Action:       action,
		Result:       result,
		Message:      message,
	}
	if remote {
		entry.Remote = 1
	}
	if err := r.logRepo.Create(ctx, entry); err != nil {
		r.logger.WithContext(ctx).Error("failed to write sync log", zap.Error(err))
	}
}

func isRemoteError(err error) bool {
	var te *peer.TransportError
	if errors.As(err, &te) {
		return te.Kind == peer.KindAuth || te.Kind == peer.KindNotFound || te.Kind == peer.KindServer
	}
	return false
}

func toWireRecord(record *model.SyncRecord) *document.Record {
	rec := &document.Record{
		Uuid:       record.Uuid,
		ModifiedOn: record.ModifiedOn.UTC().Truncate(time.Millisecond),
		Deleted:    record.Deleted == 1,
	}
	if record.Attributes != "" && record.Attributes != "{}" {
		_ = json.Unmarshal([]byte(record.Attributes), &rec.Attributes)
	}
	if record.References != "" && record.References != "{}" {
		_ = json.Unmarshal([]byte(record.References), &rec.References)
	}
	if record.Deleted == 1 && record.DeletedFk != "" && record.DeletedFk != "{}" {
		_ = json.Unmarshal([]byte(record.DeletedFk), &rec.DeletedFk)
	}
	return rec
}
