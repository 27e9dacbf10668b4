package service

import (
	"context"
	"encoding/json"
	"time"

	v1 "peersync/api/v1"
	"peersync/internal/model"
	"peersync/internal/repository"
	"peersync/pkg/document"
	"peersync/pkg/log"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// SyncAdminService 运维面：日志查询、冲突处理、作业与节点配置
type SyncAdminService interface {
	ListLogs(ctx context.Context, req *v1.ListLogRequest) (*v1.ListLogResponseData, error)

	ListConflicts(ctx context.Context, req *v1.ListConflictRequest) (*v1.ListConflictResponseData, error)
	ResolveConflict(ctx context.Context, id int64, resolution string) error

	CreateJob(ctx context.Context, userID string, req *v1.CreateJobRequest) (*v1.JobItem, error)
	DeleteJob(ctx context.Context, id int64) error
	SetJobEnabled(ctx context.Context, id int64, enabled bool) error
	ResetJob(ctx context.Context, id int64) error
	ListJobs(ctx context.Context, repositoryID int64) (*v1.ListJobResponseData, error)

	GetConfig(ctx context.Context) (*v1.SyncConfigData, error)
	UpdateConfig(ctx context.Context, req *v1.UpdateSyncConfigRequest) error
}

func NewSyncAdminService(
	service *Service,
	repoRepo repository.SyncRepositoryRepository,
	logRepo repository.SyncLogRepository,
	conflictRepo repository.SyncConflictRepository,
	jobRepo repository.SyncJobRepository,
	recordRepo repository.SyncRecordRepository,
	configRepo repository.SyncConfigRepository,
	logger *log.Logger,
) SyncAdminService {
	return &syncAdminService{
		Service:      service,
		repoRepo:     repoRepo,
		logRepo:      logRepo,
		conflictRepo: conflictRepo,
		jobRepo:      jobRepo,
		recordRepo:   recordRepo,
		configRepo:   configRepo,
		logger:       logger,
	}
}

type syncAdminService struct {
	*Service
	repoRepo     repository.SyncRepositoryRepository
	logRepo      repository.SyncLogRepository
	conflictRepo repository.SyncConflictRepository
	jobRepo      repository.SyncJobRepository
	recordRepo   repository.SyncRecordRepository
	configRepo   repository.SyncConfigRepository
	logger       *log.Logger
}

func (s *syncAdminService) ListLogs(ctx context.Context, req *v1.ListLogRequest) (*v1.ListLogResponseData, error) {
	entries, total, err := s.logRepo.ListWithPagination(ctx, req.Page, req.PageSize, req.RepositoryId, req.ResourceName, req.Result)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	data := &v1.ListLogResponseData{Total: total, Items: make([]v1.LogItem, 0, len(entries))}
	for _, entry := range entries {
		data.Items = append(data.Items, v1.LogItem{
			Id:           entry.Id,
			RepositoryId: entry.RepositoryId,
			ResourceName: entry.ResourceName,
			Direction:    entry.Direction,
			Action:       entry.Action,
			Result:       entry.Result,
			Remote:       entry.Remote == 1,
			Message:      entry.Message,
			Timestmp:     entry.Timestmp,
		})
	}
	return data, nil
}

func (s *syncAdminService) ListConflicts(ctx context.Context, req *v1.ListConflictRequest) (*v1.ListConflictResponseData, error) {
	conflicts, total, err := s.conflictRepo.ListWithPagination(ctx, req.Page, req.PageSize, req.RepositoryId)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	data := &v1.ListConflictResponseData{Total: total, Items: make([]v1.ConflictItem, 0, len(conflicts))}
	for _, conflict := range conflicts {
		data.Items = append(data.Items, v1.ConflictItem{
			Id:               conflict.Id,
			RepositoryId:     conflict.RepositoryId,
			ResourceName:     conflict.ResourceName,
			RecordUuid:       conflict.RecordUuid,
			RemoteRecord:     conflict.RemoteRecord,
			LocalModifiedOn:  conflict.LocalModifiedOn,
			RemoteModifiedOn: conflict.RemoteModifiedOn,
			CreateTime:       conflict.CreateTime,
		})
	}
	return data, nil
}

// ResolveConflict accept-remote 回放冲突行里保存的远端记录；keep-local 只移除冲突。
// 两个分支都在一个事务里完成
func (s *syncAdminService) ResolveConflict(ctx context.Context, id int64, resolution string) error {
	conflict, err := s.conflictRepo.GetByID(ctx, id)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if conflict == nil {
		return v1.ErrConflictNotFound
	}

	return s.tm.Transaction(ctx, func(ctx context.Context) error {
		if resolution == model.SyncConflictResolveAcceptRemote {
			if err := s.applyRemote(ctx, conflict); err != nil {
				return err
			}
		}
		return s.conflictRepo.Delete(ctx, conflict.Id)
	})
}

func (s *syncAdminService) applyRemote(ctx context.Context, conflict *model.SyncConflict) error {
	var rec document.Record
	if err := json.Unmarshal([]byte(conflict.RemoteRecord), &rec); err != nil {
		return err
	}

	existing, err := s.recordRepo.FindByUuid(ctx, conflict.ResourceName, conflict.RecordUuid)
	if err != nil {
		return err
	}
	if rec.Deleted {
		if existing == nil {
			return nil
		}
		deletedFk := marshalStringMap(rec.DeletedFk)
		if len(rec.DeletedFk) == 0 {
			deletedFk = existing.References
		}
		return s.recordRepo.SoftDelete(ctx, conflict.ResourceName, conflict.RecordUuid, rec.ModifiedOn, deletedFk)
	}
	if existing == nil {
		return s.recordRepo.Insert(ctx, &model.SyncRecord{
			ResourceName: conflict.ResourceName,
			Uuid:         conflict.RecordUuid,
			Attributes:   marshalMap(rec.Attributes),
			References:   marshalStringMap(rec.References),
			ModifiedOn:   rec.ModifiedOn,
		})
	}
	existing.Attributes = marshalMap(rec.Attributes)
	existing.References = marshalStringMap(rec.References)
	existing.ModifiedOn = rec.ModifiedOn
	existing.Deleted = 0
	existing.DeletedFk = ""
	return s.recordRepo.Update(ctx, existing)
}

func (s *syncAdminService) CreateJob(ctx context.Context, userID string, req *v1.CreateJobRequest) (*v1.JobItem, error) {
	repo, err := s.repoRepo.GetByID(ctx, req.RepositoryId)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if repo == nil {
		return nil, v1.ErrRepositoryNotFound
	}
	if err := validateCronSpec(req.CronSpec); err != nil {
		return nil, v1.ErrInvalidCronSpec
	}

	job := &model.SyncJob{
		RepositoryId: req.RepositoryId,
		CronSpec:     req.CronSpec,
		Enabled:      1,
		UserId:       userID,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		s.logger.WithContext(ctx).Error("failed to create sync job", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	item := toJobItem(job)
	return &item, nil
}

func (s *syncAdminService) DeleteJob(ctx context.Context, id int64) error {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if job == nil {
		return v1.ErrJobNotFound
	}
	return s.jobRepo.Delete(ctx, id)
}

func (s *syncAdminService) SetJobEnabled(ctx context.Context, id int64, enabled bool) error {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if job == nil {
		return v1.ErrJobNotFound
	}
	job.Enabled = 0
	if enabled {
		job.Enabled = 1
	}
	return s.jobRepo.Update(ctx, job)
}

// ResetJob 清除上次运行的错误记录，作业回到待运行状态
func (s *syncAdminService) ResetJob(ctx context.Context, id int64) error {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if job == nil {
		return v1.ErrJobNotFound
	}
	job.LastError = ""
	return s.jobRepo.Update(ctx, job)
}

func (s *syncAdminService) ListJobs(ctx context.Context, repositoryID int64) (*v1.ListJobResponseData, error) {
	jobs, err := s.jobRepo.ListByRepository(ctx, repositoryID)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	data := &v1.ListJobResponseData{Items: make([]v1.JobItem, 0, len(jobs))}
	for _, job := range jobs {
		data.Items = append(data.Items, toJobItem(job))
	}
	return data, nil
}

func (s *syncAdminService) GetConfig(ctx context.Context) (*v1.SyncConfigData, error) {
	config, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if config == nil {
		return &v1.SyncConfigData{}, nil
	}
	return &v1.SyncConfigData{
		NodeUuid: config.NodeUuid,
		NodeName: config.NodeName,
		ProxyUrl: config.ProxyUrl,
	}, nil
}

func (s *syncAdminService) UpdateConfig(ctx context.Context, req *v1.UpdateSyncConfigRequest) error {
	config, err := s.configRepo.Get(ctx)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if config == nil {
		return v1.ErrNotFound
	}
	config.NodeName = req.NodeName
	config.ProxyUrl = req.ProxyUrl
	return s.configRepo.Update(ctx, config)
}

// validateCronSpec 用一个一次性的调度器实例检查表达式可被解析
func validateCronSpec(spec string) error {
	probe := gocron.NewScheduler(time.UTC)
	_, err := probe.Cron(spec).Do(func() {})
	probe.Clear()
	return err
}

func toJobItem(job *model.SyncJob) v1.JobItem {
	return v1.JobItem{
		Id:           job.Id,
		RepositoryId: job.RepositoryId,
		CronSpec:     job.CronSpec,
		Enabled:      job.Enabled == 1,
		UserId:       job.UserId,
		LastError:    job.LastError,
		LastRunTime:  job.LastRunTime,
	}
}
