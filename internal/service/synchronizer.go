package service

import (
	"context"
	"fmt"

	v1 "peersync/api/v1"
	"peersync/internal/model"
	"peersync/internal/repository"
	"peersync/pkg/log"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Synchronizer 在全局状态锁下编排一个仓库的全部任务。
// 同一仓库绝不并发运行两次；单任务失败不取消兄弟任务
type Synchronizer interface {
	Synchronize(ctx context.Context, repositoryID int64, rc *RunContext) error
	// RunNow 立即异步运行；已有运行在进行时把手动运行排队并返回 ErrSyncAlreadyRunning
	RunNow(ctx context.Context, repositoryID int64, userID string) error
	Status(ctx context.Context) (*model.SyncStatus, error)
}

func NewSynchronizer(
	service *Service,
	conf *viper.Viper,
	repoRepo repository.SyncRepositoryRepository,
	taskRepo repository.SyncTaskRepository,
	statusRepo repository.SyncStatusRepository,
	configRepo repository.SyncConfigRepository,
	logRepo repository.SyncLogRepository,
	runner TaskRunner,
	clientFactory PeerClientFactory,
	logger *log.Logger,
) Synchronizer {
	return &synchronizer{
		Service:       service,
		conf:          conf,
		repoRepo:      repoRepo,
		taskRepo:      taskRepo,
		statusRepo:    statusRepo,
		configRepo:    configRepo,
		logRepo:       logRepo,
		runner:        runner,
		clientFactory: clientFactory,
		logger:        logger,
	}
}

type synchronizer struct {
	*Service
	conf          *viper.Viper
	repoRepo      repository.SyncRepositoryRepository
	taskRepo      repository.SyncTaskRepository
	statusRepo    repository.SyncStatusRepository
	configRepo    repository.SyncConfigRepository
	logRepo       repository.SyncLogRepository
	runner        TaskRunner
	clientFactory PeerClientFactory
	logger        *log.Logger
}

func (s *synchronizer) Synchronize(ctx context.Context, repositoryID int64, rc *RunContext) error {
	repo, err := s.repoRepo.GetByID(ctx, repositoryID)
	if err != nil {
		return err
	}
	if repo == nil {
		return v1.ErrRepositoryNotFound
	}

	config, err := s.configRepo.Ensure(ctx, s.conf.GetString("app.name"))
	if err != nil {
		return err
	}
	if rc == nil {
		rc = &RunContext{}
	}
	rc.Config = config

	started, err := s.statusRepo.TryStart(ctx, repo.Id)
	if err != nil {
		return err
	}
	if !started {
		if rc.Manual {
			// 当前运行结束时自动启动排队的手动运行
			if err := s.statusRepo.QueueManual(ctx, repo.Id, rc.UserId); err != nil {
				return err
			}
		}
		return v1.ErrSyncAlreadyRunning
	}

	s.logger.WithContext(ctx).Info("synchronization run started",
		zap.String("repository", repo.Name), zap.Bool("manual", rc.Manual))
	s.run(ctx, rc, repo)

	// 释放锁，接力排队中的手动运行
	manualRepoID, manualUserID, err := s.statusRepo.Finish(ctx)
	if err != nil {
		return err
	}
	if manualRepoID > 0 {
		go func() {
			err := s.Synchronize(context.Background(), manualRepoID, &RunContext{UserId: manualUserID, Manual: true})
			if err != nil {
				s.logger.Error("queued manual run failed", zap.Int64("repository_id", manualRepoID), zap.Error(err))
			}
		}()
	}
	return nil
}

func (s *synchronizer) run(ctx context.Context, rc *RunContext, repo *model.SyncRepository) {
	client, err := s.clientFactory(repo, rc.Config.ProxyUrl)
	if err != nil {
		s.finishWithStatus(ctx, repo, model.SyncLogResultError, fmt.Sprintf("error: %v", err))
		return
	}

	tasks, err := s.taskRepo.ListByRepository(ctx, repo.Id)
	if err != nil {
		s.finishWithStatus(ctx, repo, model.SyncLogResultError, fmt.Sprintf("error: %v", err))
		return
	}

	failed := 0
	completed := 0
	cancelled := false
	var firstErr error
	for _, task := range tasks {
		// 任务之间检查取消标志；进行中的任务不会被打断
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		outcome := s.runner.Run(ctx, rc, repo, task, client)
		completed++
		if !outcome.Ok() {
			failed++
			if firstErr == nil {
				firstErr = outcome.Err
			}
			s.logger.WithContext(ctx).Error("sync task failed",
				zap.String("repository", repo.Name),
				zap.String("resource", task.ResourceName),
				zap.Error(outcome.Err))
		}
	}

	// 整体状态：所有任务成功才是 ok
	var status string
	result := model.SyncLogResultOk
	switch {
	case cancelled:
		status = fmt.Sprintf("cancelled after %d/%d tasks", completed, len(tasks))
		result = model.SyncLogResultWarning
	case failed == 0:
		status = fmt.Sprintf("ok (%d tasks)", len(tasks))
	default:
		status = fmt.Sprintf("error: %d/%d tasks failed: %v", failed, len(tasks), firstErr)
		result = model.SyncLogResultError
	}
	s.finishWithStatus(ctx, repo, result, status)
}

func (s *synchronizer) finishWithStatus(ctx context.Context, repo *model.SyncRepository, result, status string) {
	entry := &model.SyncLog{
		RepositoryId: repo.Id,
		Action:       "run-complete",
		Result:       result,
		Message:      status,
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		s.logger.WithContext(ctx).Error("failed to write run summary log", zap.Error(err))
	}
	if err := s.repoRepo.UpdateLastStatus(ctx, repo.Id, status); err != nil {
		s.logger.WithContext(ctx).Error("failed to update repository status", zap.Error(err))
	}
}

func (s *synchronizer) RunNow(ctx context.Context, repositoryID int64, userID string) error {
	repo, err := s.repoRepo.GetByID(ctx, repositoryID)
	if err != nil {
		return err
	}
	if repo == nil {
		return v1.ErrRepositoryNotFound
	}

	status, err := s.statusRepo.Get(ctx)
	if err != nil {
		return err
	}
	if status != nil && status.Running == 1 {
		if err := s.statusRepo.QueueManual(ctx, repositoryID, userID); err != nil {
			return err
		}
		return v1.ErrSyncAlreadyRunning
	}

	go func() {
		// 快检后仍可能输掉竞态；Synchronize 内部会把手动运行排队
		err := s.Synchronize(context.Background(), repositoryID, &RunContext{UserId: userID, Manual: true})
		if err != nil && !isAlreadyRunning(err) {
			s.logger.Error("manual run failed", zap.Int64("repository_id", repositoryID), zap.Error(err))
		}
	}()
	return nil
}

func (s *synchronizer) Status(ctx context.Context) (*model.SyncStatus, error) {
	return s.statusRepo.Get(ctx)
}

func isAlreadyRunning(err error) bool {
	return err == v1.ErrSyncAlreadyRunning
}
