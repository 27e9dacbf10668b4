package repository

import (
	"context"
	"errors"

	"peersync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncConfigRepository interface {
	Get(ctx context.Context) (*model.SyncConfig, error)
	Update(ctx context.Context, config *model.SyncConfig) error
	// Ensure 首次启动时生成本节点 UUID
	Ensure(ctx context.Context, nodeName string) (*model.SyncConfig, error)
}

func NewSyncConfigRepository(r *Repository) SyncConfigRepository {
	return &syncConfigRepository{Repository: r}
}

type syncConfigRepository struct {
	*Repository
}

func (r *syncConfigRepository) Get(ctx context.Context) (*model.SyncConfig, error) {
	var config model.SyncConfig
	if err := r.DB(ctx).Where("id = ?", model.SyncConfigSingletonId).First(&config).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (r *syncConfigRepository) Update(ctx context.Context, config *model.SyncConfig) error {
	config.Id = model.SyncConfigSingletonId
	return r.DB(ctx).Save(config).Error
}

func (r *syncConfigRepository) Ensure(ctx context.Context, nodeName string) (*model.SyncConfig, error) {
	existing, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	config := &model.SyncConfig{
		Id:       model.SyncConfigSingletonId,
		NodeUuid: uuid.NewString(),
		NodeName: nodeName,
	}
	if err := r.DB(ctx).Create(config).Error; err != nil {
		return nil, err
	}
	return config, nil
}
