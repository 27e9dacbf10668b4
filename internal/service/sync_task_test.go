package service

import (
	"context"
	"testing"

	v1 "peersync/api/v1"
	"peersync/internal/model"
	"peersync/internal/registry"
	"peersync/internal/repository"
	"peersync/pkg/jwt"
	"peersync/pkg/log"
	"peersync/pkg/sid"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type taskServiceEnv struct {
	svc      SyncTaskService
	repoRepo repository.SyncRepositoryRepository
	db       *gorm.DB
}

func newTaskServiceEnv(t *testing.T) *taskServiceEnv {
	t.Helper()
	db := newTestDB(t)
	if err := db.AutoMigrate(&model.SyncRepository{}, &model.SyncTask{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := &log.Logger{Logger: zap.NewNop()}
	repo := repository.NewRepository(logger, db)
	svc := NewService(repository.NewTransaction(repo), logger, sid.NewSid(), jwt.NewJwt(viper.New()))
	reg := registry.NewRegistry(testRegistryConf(), logger)

	repoRepo := repository.NewSyncRepositoryRepository(repo)
	taskRepo := repository.NewSyncTaskRepository(repo)
	return &taskServiceEnv{
		svc:      NewSyncTaskService(svc, repoRepo, taskRepo, reg, logger),
		repoRepo: repoRepo,
		db:       db,
	}
}

func (e *taskServiceEnv) seedRepo(t *testing.T) *model.SyncRepository {
	t.Helper()
	repo := &model.SyncRepository{
		Uuid:    "9e2f67cc-3333-4f58-9f2a-000000000003",
		Name:    "peer-c",
		BaseUrl: "http://peer-c.example.org",
	}
	if err := e.repoRepo.Create(context.Background(), repo); err != nil {
		t.Fatalf("seed repository: %v", err)
	}
	return repo
}

func TestCreateTaskEnforcesUniqueness(t *testing.T) {
	env := newTaskServiceEnv(t)
	ctx := context.Background()
	repo := env.seedRepo(t)

	req := &v1.CreateTaskRequest{ResourceName: "person", Mode: model.SyncTaskModeBoth}
	first, err := env.svc.CreateTask(ctx, repo.Id, "u-1", req)
	assert.NoError(t, err)
	assert.NotNil(t, first)

	// 同一（仓库, 资源）对不允许第二条未删除任务
	_, err = env.svc.CreateTask(ctx, repo.Id, "u-1", req)
	assert.ErrorIs(t, err, v1.ErrTaskAlreadyExists)

	// 其他资源不受影响
	_, err = env.svc.CreateTask(ctx, repo.Id, "u-1",
		&v1.CreateTaskRequest{ResourceName: "organisation", Mode: model.SyncTaskModePull})
	assert.NoError(t, err)
}

func TestCreateTaskAfterSoftDelete(t *testing.T) {
	env := newTaskServiceEnv(t)
	ctx := context.Background()
	repo := env.seedRepo(t)

	req := &v1.CreateTaskRequest{ResourceName: "person", Mode: model.SyncTaskModeBoth}
	first, err := env.svc.CreateTask(ctx, repo.Id, "u-1", req)
	assert.NoError(t, err)

	assert.NoError(t, env.svc.DeleteTask(ctx, first.Id))

	// 软删除后同一资源的任务可以重建
	second, err := env.svc.CreateTask(ctx, repo.Id, "u-1", req)
	assert.NoError(t, err)
	assert.NotEqual(t, first.Id, second.Id)

	// 软删除的旧行仍在表里，供日志回溯
	var count int64
	env.db.Model(&model.SyncTask{}).Where("repository_id = ?", repo.Id).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestCreateTaskUnknownResource(t *testing.T) {
	env := newTaskServiceEnv(t)
	repo := env.seedRepo(t)

	_, err := env.svc.CreateTask(context.Background(), repo.Id, "u-1",
		&v1.CreateTaskRequest{ResourceName: "vehicle", Mode: model.SyncTaskModeBoth})
	assert.ErrorIs(t, err, v1.ErrUnknownResource)
}
