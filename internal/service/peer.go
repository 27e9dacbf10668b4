package service

import (
	"context"
	"fmt"
	"time"

	v1 "peersync/api/v1"
	"peersync/internal/model"
	"peersync/internal/registry"
	"peersync/internal/repository"
	"peersync/pkg/document"
	"peersync/pkg/log"
	"peersync/pkg/peer"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PeerService 对端入站面：被拉取（pull-out）、被推送（push-in）与注册
type PeerService interface {
	// Authenticate 用 Basic 凭据定位对端仓库行，未命中返回 nil
	Authenticate(ctx context.Context, username, password string) (*model.SyncRepository, error)
	// Export 序列化 since 之后修改过的本地记录（含墓碑），供对端拉取
	Export(ctx context.Context, repo *model.SyncRepository, resourceName string, since *time.Time) (*document.Document, error)
	// Apply 按 accept_push 门控应用对端推送的文档，返回逐条应答
	Apply(ctx context.Context, repo *model.SyncRepository, doc *document.Document) (*document.OutcomeDocument, error)
	// RegisterPeer 对端注册握手：按 UUID 建立或更新仓库行，返回本节点身份
	RegisterPeer(ctx context.Context, identity peer.Identity) (peer.Identity, error)
}

func NewPeerService(
	service *Service,
	conf *viper.Viper,
	reg *registry.Registry,
	repoRepo repository.SyncRepositoryRepository,
	taskRepo repository.SyncTaskRepository,
	recordRepo repository.SyncRecordRepository,
	logRepo repository.SyncLogRepository,
	configRepo repository.SyncConfigRepository,
	importer Importer,
	logger *log.Logger,
) PeerService {
	return &peerService{
		Service:    service,
		conf:       conf,
		registry:   reg,
		repoRepo:   repoRepo,
		taskRepo:   taskRepo,
		recordRepo: recordRepo,
		logRepo:    logRepo,
		configRepo: configRepo,
		importer:   importer,
		logger:     logger,
	}
}

type peerService struct {
	*Service
	conf       *viper.Viper
	registry   *registry.Registry
	repoRepo   repository.SyncRepositoryRepository
	taskRepo   repository.SyncTaskRepository
	recordRepo repository.SyncRecordRepository
	logRepo    repository.SyncLogRepository
	configRepo repository.SyncConfigRepository
	importer   Importer
	logger     *log.Logger
}

func (s *peerService) Authenticate(ctx context.Context, username, password string) (*model.SyncRepository, error) {
	if username == "" {
		return nil, nil
	}
	repos, err := s.repoRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, repo := range repos {
		if repo.Username == username && repo.Password == password {
			return repo, nil
		}
	}
	return nil, nil
}

func (s *peerService) Export(ctx context.Context, repo *model.SyncRepository, resourceName string, since *time.Time) (*document.Document, error) {
	if !s.registry.Has(resourceName) {
		return nil, &document.UnknownResourceError{Resource: resourceName}
	}
	records, err := s.recordRepo.SelectSince(ctx, resourceName, since)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}

	wire := make([]*document.Record, 0, len(records))
	for _, record := range records {
		wire = append(wire, toWireRecord(record))
	}

	s.logPeer(ctx, repo.Id, resourceName, model.SyncLogDirectionPullOut, model.SyncLogActionSync,
		model.SyncLogResultOk, len(wire))

	return document.Encode(resourceName, s.generator(ctx), wire), nil
}

func (s *peerService) Apply(ctx context.Context, repo *model.SyncRepository, doc *document.Document) (*document.OutcomeDocument, error) {
	if repo.AcceptPush != 1 {
		s.logPeer(ctx, repo.Id, doc.Resource, model.SyncLogDirectionPushIn, model.SyncLogActionRejected,
			model.SyncLogResultWarning, len(doc.Records))
		return nil, v1.ErrPushNotAccepted
	}

	task, err := s.taskRepo.GetByRepositoryAndResource(ctx, repo.Id, doc.Resource)
	if err != nil {
		return nil, v1.ErrInternalServerError
	}
	if task == nil {
		// 没有显式任务时按默认策略裁决入站推送
		task = &model.SyncTask{
			RepositoryId:   repo.Id,
			ResourceName:   doc.Resource,
			Mode:           model.SyncTaskModeBoth,
			Strategy:       "create,update,delete",
			UpdatePolicy:   model.SyncPolicyNewer,
			ConflictPolicy: model.SyncPolicyNewer,
			UpdateMethod:   model.SyncUpdateMethodUpdate,
		}
	}

	result, err := s.importer.Import(ctx, repo, task, doc)
	if err != nil {
		return nil, err
	}

	logResult := model.SyncLogResultOk
	if result.Rejected > 0 || result.Conflicts > 0 {
		logResult = model.SyncLogResultWarning
	}
	s.logger.WithContext(ctx).Info("inbound push applied",
		zap.String("repository", repo.Name),
		zap.String("resource", doc.Resource),
		zap.String("summary", result.Summary()))
	s.logPeer(ctx, repo.Id, doc.Resource, model.SyncLogDirectionPushIn, model.SyncLogActionSync,
		logResult, len(doc.Records))

	return result.Outcomes(s.generator(ctx)), nil
}

func (s *peerService) RegisterPeer(ctx context.Context, identity peer.Identity) (peer.Identity, error) {
	config, err := s.configRepo.Ensure(ctx, s.conf.GetString("app.name"))
	if err != nil {
		return peer.Identity{}, v1.ErrInternalServerError
	}

	repo, err := s.repoRepo.GetByUuid(ctx, identity.Uuid)
	if err != nil {
		return peer.Identity{}, v1.ErrInternalServerError
	}
	if repo == nil {
		repo = &model.SyncRepository{
			Uuid:       identity.Uuid,
			Name:       identity.Name,
			BaseUrl:    identity.BaseUrl,
			LastStatus: "registered by peer",
		}
		if err := s.repoRepo.Create(ctx, repo); err != nil {
			return peer.Identity{}, v1.ErrInternalServerError
		}
	} else {
		if identity.Name != "" {
			repo.Name = identity.Name
		}
		if identity.BaseUrl != "" {
			repo.BaseUrl = identity.BaseUrl
		}
		if err := s.repoRepo.Update(ctx, repo); err != nil {
			return peer.Identity{}, v1.ErrInternalServerError
		}
	}

	return peer.Identity{
		Uuid:    config.NodeUuid,
		Name:    config.NodeName,
		BaseUrl: s.conf.GetString("sync.public_url"),
	}, nil
}

func (s *peerService) generator(ctx context.Context) string {
	config, err := s.configRepo.Ensure(ctx, s.conf.GetString("app.name"))
	if err != nil {
		return "peersync"
	}
	return "peersync/" + config.NodeUuid
}

func (s *peerService) logPeer(ctx context.Context, repoID int64, resource, direction, action, result string, count int) {
	entry := &model.SyncLog{
		RepositoryId: repoID,
		ResourceName: resource,
		Direction:    direction,
		Action:       action,
		Result:       result,
		Remote:       1,
		Message:      fmt.Sprintf("%d records", count),
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		s.logger.WithContext(ctx).Error("failed to write sync log", zap.Error(err))
	}
}
