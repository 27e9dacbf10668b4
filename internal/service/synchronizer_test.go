package service

import (
	"context"
	"sync"
	"testing"
	"time"

	v1 "peersync/api/v1"
	"peersync/internal/model"
	"peersync/internal/repository"
	"peersync/pkg/jwt"
	"peersync/pkg/log"
	"peersync/pkg/sid"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// stubRunner 直接回放预设结果，同步器测试不关心任务内部
type stubRunner struct {
	mu       sync.Mutex
	outcomes map[string]*TaskOutcome
	ran      []string
}

func (s *stubRunner) Run(_ context.Context, _ *RunContext, _ *model.SyncRepository, task *model.SyncTask, _ PeerClient) *TaskOutcome {
	s.mu.Lock()
	s.ran = append(s.ran, task.ResourceName)
	s.mu.Unlock()
	if out, ok := s.outcomes[task.ResourceName]; ok {
		out.Task = task
		return out
	}
	return &TaskOutcome{Task: task}
}

func (s *stubRunner) ranResources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ran...)
}

type synchronizerEnv struct {
	sync       Synchronizer
	runner     *stubRunner
	repoRepo   repository.SyncRepositoryRepository
	taskRepo   repository.SyncTaskRepository
	statusRepo repository.SyncStatusRepository
	logRepo    repository.SyncLogRepository
}

func newSynchronizerEnv(t *testing.T) *synchronizerEnv {
	t.Helper()
	db := newTestDB(t)
	err := db.AutoMigrate(
		&model.SyncRepository{}, &model.SyncTask{}, &model.SyncStatus{},
		&model.SyncConfig{}, &model.SyncLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := &log.Logger{Logger: zap.NewNop()}
	repo := repository.NewRepository(logger, db)
	svc := NewService(repository.NewTransaction(repo), logger, sid.NewSid(), jwt.NewJwt(viper.New()))

	conf := viper.New()
	conf.Set("app.name", "peersync-test")

	repoRepo := repository.NewSyncRepositoryRepository(repo)
	taskRepo := repository.NewSyncTaskRepository(repo)
	statusRepo := repository.NewSyncStatusRepository(repo)
	configRepo := repository.NewSyncConfigRepository(repo)
	logRepo := repository.NewSyncLogRepository(repo)
	if err := statusRepo.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure status row: %v", err)
	}

	runner := &stubRunner{outcomes: map[string]*TaskOutcome{}}
	factory := func(_ *model.SyncRepository, _ string) (PeerClient, error) { return nil, nil }

	return &synchronizerEnv{
		sync:       NewSynchronizer(svc, conf, repoRepo, taskRepo, statusRepo, configRepo, logRepo, runner, factory, logger),
		runner:     runner,
		repoRepo:   repoRepo,
		taskRepo:   taskRepo,
		statusRepo: statusRepo,
		logRepo:    logRepo,
	}
}

func (e *synchronizerEnv) seedRepository(t *testing.T, resources ...string) *model.SyncRepository {
	t.Helper()
	ctx := context.Background()
	repo := &model.SyncRepository{
		Uuid:    "9e2f67cc-2222-4f58-9f2a-000000000002",
		Name:    "peer-b",
		BaseUrl: "http://peer-b.example.org",
	}
	if err := e.repoRepo.Create(ctx, repo); err != nil {
		t.Fatalf("seed repository: %v", err)
	}
	for _, resource := range resources {
		task := testTask(resource, nil)
		task.Id = 0
		task.RepositoryId = repo.Id
		if err := e.taskRepo.Create(ctx, task); err != nil {
			t.Fatalf("seed task: %v", err)
		}
	}
	return repo
}

func TestSynchronizeRunsAllTasks(t *testing.T) {
	env := newSynchronizerEnv(t)
	ctx := context.Background()
	repo := env.seedRepository(t, "person", "organisation")

	err := env.sync.Synchronize(ctx, repo.Id, &RunContext{})
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"person", "organisation"}, env.runner.ranResources())

	reloaded, _ := env.repoRepo.GetByID(ctx, repo.Id)
	assert.Equal(t, "ok (2 tasks)", reloaded.LastStatus)

	// 运行结束后锁被释放
	status, err := env.sync.Status(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int8(0), status.Running)
}

func TestSynchronizeTaskFailureDoesNotCancelSiblings(t *testing.T) {
	env := newSynchronizerEnv(t)
	ctx := context.Background()
	repo := env.seedRepository(t, "person", "organisation")

	env.runner.outcomes["person"] = &TaskOutcome{Err: assert.AnError}

	err := env.sync.Synchronize(ctx, repo.Id, &RunContext{})
	assert.NoError(t, err, "per-task failures conclude the run, they do not abort it")
	assert.Len(t, env.runner.ranResources(), 2)

	reloaded, _ := env.repoRepo.GetByID(ctx, repo.Id)
	assert.Contains(t, reloaded.LastStatus, "1/2 tasks failed")

	rows, _ := env.logRepo.ListAfter(ctx, 0, 100)
	var summary *model.SyncLog
	for _, row := range rows {
		if row.Action == "run-complete" {
			summary = row
		}
	}
	if assert.NotNil(t, summary) {
		assert.Equal(t, model.SyncLogResultError, summary.Result)
	}
}

func TestSynchronizeUnknownRepository(t *testing.T) {
	env := newSynchronizerEnv(t)
	err := env.sync.Synchronize(context.Background(), 424242, &RunContext{})
	assert.ErrorIs(t, err, v1.ErrRepositoryNotFound)
}

func TestSynchronizeRejectsConcurrentRun(t *testing.T) {
	env := newSynchronizerEnv(t)
	ctx := context.Background()
	repo := env.seedRepository(t, "person")

	// 另一轮运行持有全局锁
	started, err := env.statusRepo.TryStart(ctx, 99)
	assert.NoError(t, err)
	assert.True(t, started)

	err = env.sync.Synchronize(ctx, repo.Id, &RunContext{})
	assert.ErrorIs(t, err, v1.ErrSyncAlreadyRunning)
	assert.Empty(t, env.runner.ranResources())
}

func TestSynchronizeQueuesManualRunWhenBusy(t *testing.T) {
	env := newSynchronizerEnv(t)
	ctx := context.Background()
	repo := env.seedRepository(t, "person")

	started, err := env.statusRepo.TryStart(ctx, 99)
	assert.NoError(t, err)
	assert.True(t, started)

	err = env.sync.Synchronize(ctx, repo.Id, &RunContext{UserId: "u-100", Manual: true})
	assert.ErrorIs(t, err, v1.ErrSyncAlreadyRunning)

	status, err := env.statusRepo.Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int8(1), status.Manual)
	assert.Equal(t, repo.Id, status.ManualRepoId)
	assert.Equal(t, "u-100", status.ManualUserId)

	// 持锁方结束时取走排队的手动运行
	manualRepoID, manualUserID, err := env.statusRepo.Finish(ctx)
	assert.NoError(t, err)
	assert.Equal(t, repo.Id, manualRepoID)
	assert.Equal(t, "u-100", manualUserID)

	status, _ = env.statusRepo.Get(ctx)
	assert.Equal(t, int8(0), status.Running)
	assert.Equal(t, int8(0), status.Manual)
}

func TestRunNowIsAsynchronous(t *testing.T) {
	env := newSynchronizerEnv(t)
	ctx := context.Background()
	repo := env.seedRepository(t, "person")

	err := env.sync.RunNow(ctx, repo.Id, "u-1")
	assert.NoError(t, err)

	// 后台 goroutine 完成后锁回到空闲态
	assert.Eventually(t, func() bool {
		status, err := env.statusRepo.Get(context.Background())
		if err != nil || status == nil {
			return false
		}
		return status.Running == 0 && len(env.runner.ranResources()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
