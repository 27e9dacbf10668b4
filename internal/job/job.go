package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"peersync/internal/model"
	"peersync/internal/repository"
	"peersync/internal/service"
	"peersync/pkg/log"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// SyncJobManager 把 sync_job 表里的行映射到 gocron 调度项。
// 表是唯一事实来源：管理接口只写表，这里的对账循环负责让调度器跟上
type SyncJobManager struct {
	jobRepo      repository.SyncJobRepository
	synchronizer service.Synchronizer
	logger       *log.Logger

	scheduler *gocron.Scheduler
	scheduled map[int64]scheduledJob
	lock      sync.Mutex
}

type scheduledJob struct {
	cronSpec string
	job      *gocron.Job
}

func NewSyncJobManager(
	jobRepo repository.SyncJobRepository,
	synchronizer service.Synchronizer,
	logger *log.Logger,
) *SyncJobManager {
	return &SyncJobManager{
		jobRepo:      jobRepo,
		synchronizer: synchronizer,
		logger:       logger,
		scheduler:    gocron.NewScheduler(time.UTC),
		scheduled:    make(map[int64]scheduledJob),
	}
}

func (m *SyncJobManager) Start(ctx context.Context) error {
	m.logger.Info("starting sync job manager")

	m.reconcile(ctx)
	m.scheduler.StartAsync()

	// 定期对账：新建、改动与停用的作业行都在下个周期生效
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.reconcile(ctx)
		}
	}
}

func (m *SyncJobManager) Stop(ctx context.Context) error {
	m.logger.Info("stopping sync job manager")

	m.lock.Lock()
	defer m.lock.Unlock()
	m.scheduler.Stop()
	m.scheduler.Clear()
	m.scheduled = make(map[int64]scheduledJob)
	return nil
}

func (m *SyncJobManager) reconcile(ctx context.Context) {
	jobs, err := m.jobRepo.ListEnabled(ctx)
	if err != nil {
		m.logger.Error("failed to list enabled jobs", zap.Error(err))
		return
	}

	enabled := make(map[int64]*model.SyncJob, len(jobs))
	for _, job := range jobs {
		enabled[job.Id] = job
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	// 移除已删除或停用的，和 cron 表达式变了的
	for id, entry := range m.scheduled {
		row, ok := enabled[id]
		if ok && row.CronSpec == entry.cronSpec {
			continue
		}
		if err := m.scheduler.RemoveByTag(jobTag(id)); err != nil {
			m.logger.Warn("failed to remove scheduled job", zap.Int64("job", id), zap.Error(err))
		}
		delete(m.scheduled, id)
	}

	// 挂上新出现的
	for id, row := range enabled {
		if _, ok := m.scheduled[id]; ok {
			continue
		}
		row := row
		scheduled, err := m.scheduler.Cron(row.CronSpec).Tag(jobTag(id)).Do(func() {
			m.run(row)
		})
		if err != nil {
			m.logger.Error("failed to schedule job",
				zap.Int64("job", id), zap.String("cron", row.CronSpec), zap.Error(err))
			continue
		}
		m.scheduled[id] = scheduledJob{cronSpec: row.CronSpec, job: scheduled}
		m.logger.Info("scheduled sync job",
			zap.Int64("job", id), zap.Int64("repository", row.RepositoryId), zap.String("cron", row.CronSpec))
	}
}

func (m *SyncJobManager) run(row *model.SyncJob) {
	ctx := context.Background()
	runTime := time.Now().UTC()

	err := m.synchronizer.Synchronize(ctx, row.RepositoryId, &service.RunContext{
		UserId: row.UserId,
	})

	lastError := ""
	if err != nil {
		lastError = err.Error()
		m.logger.Error("scheduled sync run failed",
			zap.Int64("job", row.Id), zap.Int64("repository", row.RepositoryId), zap.Error(err))
	}
	if err := m.jobRepo.UpdateLastRun(ctx, row.Id, runTime, lastError); err != nil {
		m.logger.Error("failed to record job run", zap.Int64("job", row.Id), zap.Error(err))
	}
}

func jobTag(id int64) string {
	return fmt.Sprintf("sync-job-%d", id)
}
