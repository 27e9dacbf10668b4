package repository

import (
	"context"
	"errors"

	"peersync/internal/model"

	"gorm.io/gorm"
)

type SyncRepositoryRepository interface {
	Create(ctx context.Context, repo *model.SyncRepository) error
	Update(ctx context.Context, repo *model.SyncRepository) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.SyncRepository, error)
	GetByUuid(ctx context.Context, uuid string) (*model.SyncRepository, error)
	List(ctx context.Context) ([]*model.SyncRepository, error)
	ListWithPagination(ctx context.Context, page, pageSize int) ([]*model.SyncRepository, int64, error)
	UpdateLastStatus(ctx context.Context, id int64, status string) error
}

func NewSyncRepositoryRepository(r *Repository) SyncRepositoryRepository {
	return &syncRepositoryRepository{Repository: r}
}

type syncRepositoryRepository struct {
	*Repository
}

func (r *syncRepositoryRepository) Create(ctx context.Context, repo *model.SyncRepository) error {
	return r.DB(ctx).Create(repo).Error
}

func (r *syncRepositoryRepository) Update(ctx context.Context, repo *model.SyncRepository) error {
	return r.DB(ctx).Save(repo).Error
}

func (r *syncRepositoryRepository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.SyncRepository{}).Error
}

func (r *syncRepositoryRepository) GetByID(ctx context.Context, id int64) (*model.SyncRepository, error) {
	var repo model.SyncRepository
	if err := r.DB(ctx).Where("id = ?", id).First(&repo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &repo, nil
}

func (r *syncRepositoryRepository) GetByUuid(ctx context.Context, uuid string) (*model.SyncRepository, error) {
	var repo model.SyncRepository
	if err := r.DB(ctx).Where("uuid = ?", uuid).First(&repo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &repo, nil
}

func (r *syncRepositoryRepository) List(ctx context.Context) ([]*model.SyncRepository, error) {
	var repos []*model.SyncRepository
	if err := r.DB(ctx).Order("id ASC").Find(&repos).Error; err != nil {
		return nil, err
	}
	return repos, nil
}

func (r *syncRepositoryRepository) ListWithPagination(ctx context.Context, page, pageSize int) ([]*model.SyncRepository, int64, error) {
	var repos []*model.SyncRepository
	var total int64

	query := r.DB(ctx).Model(&model.SyncRepository{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("id ASC").Offset(offset).Limit(pageSize).Find(&repos).Error; err != nil {
		return nil, 0, err
	}
	return repos, total, nil
}

func (r *syncRepositoryRepository) UpdateLastStatus(ctx context.Context, id int64, status string) error {
	return r.DB(ctx).Model(&model.SyncRepository{}).
		Where("id = ?", id).
		Update("last_status", status).Error
}
