package service

import (
	"context"

	v1 "peersync/api/v1"
	"peersync/internal/model"
	"peersync/internal/repository"
	"peersync/pkg/log"
	"peersync/pkg/peer"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type SyncRepositoryService interface {
	CreateRepository(ctx context.Context, userID string, req *v1.CreateRepositoryRequest) (*v1.RepositoryItem, error)
	UpdateRepository(ctx context.Context, id int64, userID string, req *v1.UpdateRepositoryRequest) error
	DeleteRepository(ctx context.Context, id int64) error
	GetRepository(ctx context.Context, id int64) (*v1.RepositoryItem, error)
	ListRepositories(ctx context.Context, req *v1.ListRepositoryRequest) (*v1.ListRepositoryResponseData, error)
	// Register 重试与对端的双向注册（创建时已尽力注册过一次）
	Register(ctx context.Context, id int64) error
}

func NewSyncRepositoryService(
	service *Service,
	conf *viper.Viper,
	repoRepo repository.SyncRepositoryRepository,
	taskRepo repository.SyncTaskRepository,
	jobRepo repository.SyncJobRepository,
	logRepo repository.SyncLogRepository,
	conflictRepo repository.SyncConflictRepository,
	configRepo repository.SyncConfigRepository,
	clientFactory PeerClientFactory,
	logger *log.Logger,
) SyncRepositoryService {
	return &syncRepositoryService{
		Service:       service,
		conf:          conf,
		repoRepo:      repoRepo,
		taskRepo:      taskRepo,
		jobRepo:       jobRepo,
		logRepo:       logRepo,
		conflictRepo:  conflictRepo,
		configRepo:    configRepo,
		clientFactory: clientFactory,
		logger:        logger,
	}
}

type syncRepositoryService struct {
	*Service
	conf          *viper.Viper
	repoRepo      repository.SyncRepositoryRepository
	taskRepo      repository.SyncTaskRepository
	jobRepo       repository.SyncJobRepository
	logRepo       repository.SyncLogRepository
	conflictRepo  repository.SyncConflictRepository
	configRepo    repository.SyncConfigRepository
	clientFactory PeerClientFactory
	logger        *log.Logger
}

func (s *syncRepositoryService) CreateRepository(ctx context.Context, userID string, req *v1.CreateRepositoryRequest) (*v1.RepositoryItem, error) {
	repo := &model.SyncRepository{
		Uuid:     uuid.NewString(),
		Name:     req.Name,
		BaseUrl:  req.BaseUrl,
		Username: req.Username,
		Password: req.Password,
		ProxyUrl: req.ProxyUrl,
		Creator:  userID,
	}
	if req.AcceptPush {
		repo.AcceptPush = 1
	}
	if err := s.repoRepo.Create(ctx, repo); err != nil {
		s.logger.WithContext(ctx).Error("failed to create repository", zap.Error(err))
		return nil, v1.ErrInternalServerError
	}

	// 尽力而为的双向注册：失败只写入状态，不回滚创建
	if err := s.register(ctx, repo); err != nil {
		s.logger.WithContext(ctx).Warn("peer registration failed",
			zap.String("repository", repo.Name), zap.Error(err))
		repo.LastStatus = "registration failed: " + err.Error()
	} else {
		repo.LastStatus = "registered"
	}
	if err := s.repoRepo.UpdateLastStatus(ctx, repo.Id, repo.LastStatus); err != nil {
		s.logger.WithContext(ctx).Error("failed to update repository status", zap.Error(err))
	}

	item := toRepositoryItem(repo)
	return &item, nil
}

func (s *syncRepositoryService) register(ctx context.Context, repo *model.SyncRepository) error {
	config, err := s.configRepo.Ensure(ctx, s.conf.GetString("app.name"))
	if err != nil {
		return err
	}
	client, err := s.clientFactory(repo, config.ProxyUrl)
	if err != nil {
		return err
	}
	remote, err := client.Register(ctx, peer.Identity{
		Uuid:    config.NodeUuid,
		Name:    config.NodeName,
		BaseUrl: s.conf.GetString("sync.public_url"),
	})
	if err != nil {
		return err
	}
	// 对端身份落到仓库行，master 策略与推送鉴权都依赖这个 UUID
	repo.Uuid = remote.Uuid
	if repo.Name == "" {
		repo.Name = remote.Name
	}
	return s.repoRepo.Update(ctx, repo)
}

func (s *syncRepositoryService) UpdateRepository(ctx context.Context, id int64, userID string, req *v1.UpdateRepositoryRequest) error {
	repo, err := s.repoRepo.GetByID(ctx, id)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if repo == nil {
		return v1.ErrRepositoryNotFound
	}

	repo.Name = req.Name
	repo.BaseUrl = req.BaseUrl
	repo.Username = req.Username
	if req.Password != "" {
		repo.Password = req.Password
	}
	repo.ProxyUrl = req.ProxyUrl
	repo.AcceptPush = 0
	if req.AcceptPush {
		repo.AcceptPush = 1
	}
	repo.Modifier = userID
	return s.repoRepo.Update(ctx, repo)
}

// DeleteRepository 级联删除该仓库拥有的任务、作业、未决冲突与日志
func (s *syncRepositoryService) DeleteRepository(ctx context.Context, id int64) error {
	repo, err := s.repoRepo.GetByID(ctx, id)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if repo == nil {
		return v1.ErrRepositoryNotFound
	}

	return s.tm.Transaction(ctx, func(ctx context.Context) error {
		if err := s.taskRepo.DeleteByRepository(ctx, id); err != nil {
			return err
		}
		if err := s.jobRepo.DeleteByRepository(ctx, id); err != nil {
			return err
		}
		if err := s.conflictRepo.DeleteByRepository(ctx, id); err != nil {
			return err
		}
		if err := s.logRepo.DeleteByRepository(ctx, id); err != nil {
			return err
		}
		return s.repoRepo.Delete(ctx, id)
	})
}

func (s *syncRepositoryService) GetRepository(ctx context.Context, id int64) (*v1.RepositoryItem, error) {
	repo, err := s.repoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if repo == nil {
		return nil, v1.ErrRepositoryNotFound
	}
	item := toRepositoryItem(repo)
	return &item, nil
}

func (s *syncRepositoryService) ListRepositories(ctx context.Context, req *v1.ListRepositoryRequest) (*v1.ListRepositoryResponseData, error) {
	repos, total, err := s.repoRepo.ListWithPagination(ctx, req.Page, req.PageSize)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	data := &v1.ListRepositoryResponseData{Total: total, Items: make([]v1.RepositoryItem, 0, len(repos))}
	for _, repo := range repos {
		data.Items = append(data.Items, toRepositoryItem(repo))
	}
	return data, nil
}

func (s *syncRepositoryService) Register(ctx context.Context, id int64) error {
	repo, err := s.repoRepo.GetByID(ctx, id)
	if err != nil {
		return v1.ErrInternalServerError
	}
	if repo == nil {
		return v1.ErrRepositoryNotFound
	}
	if err := s.register(ctx, repo); err != nil {
		_ = s.repoRepo.UpdateLastStatus(ctx, repo.Id, "registration failed: "+err.Error())
		return err
	}
	return s.repoRepo.UpdateLastStatus(ctx, repo.Id, "registered")
}

func toRepositoryItem(repo *model.SyncRepository) v1.RepositoryItem {
	return v1.RepositoryItem{
		Id:         repo.Id,
		Uuid:       repo.Uuid,
		Name:       repo.Name,
		BaseUrl:    repo.BaseUrl,
		Username:   repo.Username,
		ProxyUrl:   repo.ProxyUrl,
		AcceptPush: repo.AcceptPush == 1,
		LastStatus: repo.LastStatus,
		CreateTime: repo.CreateTime,
	}
}
