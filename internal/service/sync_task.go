package service

import (
	"context"
	"strings"

	v1 "peersync/api/v1"
	"peersync/internal/model"
	"peersync/internal/registry"
	"peersync/internal/repository"
	"peersync/pkg/log"

	"go.uber.org/zap"
)

type SyncTaskService interface {
	CreateTask(ctx context.Context, repositoryID int64, userID string, req *v1.CreateTaskRequest) (*v1.TaskItem, error)
	UpdateTask(ctx context.Context, id int64, userID string, req *v1.UpdateTaskRequest) error
	DeleteTask(ctx context.Context, id int64) error
	ListTasks(ctx context.Context, repositoryID int64) (*v1.ListTaskResponseData, error)
}

func NewSyncTaskService(
	service *Service,
	repoRepo repository.SyncRepositoryRepository,
	taskRepo repository.SyncTaskRepository,
	reg *registry.Registry,
	logger *log.Logger,
) SyncTaskService {
	return &syncTaskService{
		Service:  service,
		repoRepo: repoRepo,
		taskRepo: taskRepo,
		registry: reg,
		logger:   logger,
	}
}

type syncTaskService struct {
	*Service
	repoRepo repository.SyncRepositoryRepository
	taskRepo repository.SyncTaskRepository
	registry *registry.Registry
	logger   *log.Logger
}

func (s *syncTaskService) CreateTask(ctx context.Context, repositoryID int64, userID string, req *v1.CreateTaskRequest) (*v1.TaskItem, error) {
	repo, err := s.repoRepo.GetByID(ctx, repositoryID)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if repo == nil {
		return nil, v1.ErrRepositoryNotFound
	}
	if !s.registry.Has(req.ResourceName) {
		return nil, v1.ErrUnknownResource
	}

	existing, err := s.taskRepo.GetByRepositoryAndResource(ctx, repositoryID, req.ResourceName)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if existing != nil {
		return nil, v1.ErrTaskAlreadyExists
	}

	task := &model.SyncTask{
		RepositoryId: repositoryID,
		ResourceName: req.ResourceName,
		Mode:         req.Mode,
		Strategy:     normalizeStrategy(req.Strategy),
		UpdatePolicy: defaultString(req.UpdatePolicy, model.SyncPolicyNewer),
		ConflictPolicy: defaultString(req.ConflictPolicy, model.SyncPolicyNewer),
		UpdateMethod: defaultString(req.UpdateMethod, model.SyncUpdateMethodUpdate),
		MasterUuid:   req.MasterUuid,
		Creator:      userID,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		s.logger.WithContext(ctx).Error("failed to create sync task", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}
	item := toTaskItem(task)
	return &item, nil
}

func (s *syncTaskService) UpdateTask(ctx context.Context, id int64, userID string, req *v1.UpdateTaskRequest) error {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if task == nil {
		return v1.ErrTaskNotFound
	}

	task.Mode = req.Mode
	task.Strategy = normalizeStrategy(req.Strategy)
	task.UpdatePolicy = defaultString(req.UpdatePolicy, model.SyncPolicyNewer)
	task.ConflictPolicy = defaultString(req.ConflictPolicy, model.SyncPolicyNewer)
	task.UpdateMethod = defaultString(req.UpdateMethod, model.SyncUpdateMethodUpdate)
	task.MasterUuid = req.MasterUuid
	task.Modifier = userID
	return s.taskRepo.Update(ctx, task)
}

func (s *syncTaskService) DeleteTask(ctx context.Context, id int64) error {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if task == nil {
		return v1.ErrTaskNotFound
	}
	return s.taskRepo.Delete(ctx, id)
}

func (s *syncTaskService) ListTasks(ctx context.Context, repositoryID int64) (*v1.ListTaskResponseData, error) {
	repo, err := s.repoRepo.GetByID(ctx, repositoryID)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if repo == nil {
		return nil, v1.ErrRepositoryNotFound
	}
	tasks, err := s.taskRepo.ListByRepository(ctx, repositoryID)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	data := &v1.ListTaskResponseData{Items: make([]v1.TaskItem, 0, len(tasks))}
	for _, task := range tasks {
		data.Items = append(data.Items, toTaskItem(task))
	}
	return data, nil
}

// normalizeStrategy 去掉空白并丢弃未知项，空串回落到默认全集
func normalizeStrategy(strategy string) string {
	known := map[string]bool{
		model.SyncStrategyCreate: true,
		model.SyncStrategyUpdate: true,
		model.SyncStrategyDelete: true,
		model.SyncStrategyMerge:  true,
	}
	var items []string
	for _, item := range strings.Split(strategy, ",") {
		item = strings.TrimSpace(item)
		if known[item] {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return "create,update,delete"
	}
	return strings.Join(items, ",")
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func toTaskItem(task *model.SyncTask) v1.TaskItem {
	return v1.TaskItem{
		Id:             task.Id,
		RepositoryId:   task.RepositoryId,
		ResourceName:   task.ResourceName,
		Mode:           task.Mode,
		LastSync:       task.LastSync,
		Strategy:       task.Strategy,
		UpdatePolicy:   task.UpdatePolicy,
		ConflictPolicy: task.ConflictPolicy,
		UpdateMethod:   task.UpdateMethod,
		MasterUuid:     task.MasterUuid,
	}
}
