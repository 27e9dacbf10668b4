package repository

import (
	"context"
	"errors"

	"peersync/internal/model"

	"gorm.io/gorm"
)

type SyncConflictRepository interface {
	Create(ctx context.Context, conflict *model.SyncConflict) error
	GetByID(ctx context.Context, id int64) (*model.SyncConflict, error)
	GetByRecord(ctx context.Context, repositoryID int64, resourceName, recordUuid string) (*model.SyncConflict, error)
	ListWithPagination(ctx context.Context, page, pageSize int, repositoryID *int64) ([]*model.SyncConflict, int64, error)
	Delete(ctx context.Context, id int64) error
	DeleteByRepository(ctx context.Context, repositoryID int64) error
}

func NewSyncConflictRepository(r *Repository) SyncConflictRepository {
	return &syncConflictRepository{Repository: r}
}

type syncConflictRepository struct {
	*Repository
}

func (r *syncConflictRepository) Create(ctx context.Context, conflict *model.SyncConflict) error {
	return r.DB(ctx).Create(conflict).Error
}

func (r *syncConflictRepository) GetByID(ctx context.Context, id int64) (*model.SyncConflict, error) {
	var conflict model.SyncConflict
	if err := r.DB(ctx).Where("id = ?", id).First(&conflict).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conflict, nil
}

func (r *syncConflictRepository) GetByRecord(ctx context.Context, repositoryID int64, resourceName, recordUuid string) (*model.SyncConflict, error) {
	var conflict model.SyncConflict
	err := r.DB(ctx).
		Where("repository_id = ? AND resource_name = ? AND record_uuid = ?", repositoryID, resourceName, recordUuid).
		First(&conflict).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conflict, nil
}

func (r *syncConflictRepository) ListWithPagination(ctx context.Context, page, pageSize int, repositoryID *int64) ([]*model.SyncConflict, int64, error) {
	var conflicts []*model.SyncConflict
	var total int64

	query := r.DB(ctx).Model(&model.SyncConflict{})
	if repositoryID != nil && *repositoryID > 0 {
		query = query.Where("repository_id = ?", *repositoryID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("id DESC").Offset(offset).Limit(pageSize).Find(&conflicts).Error; err != nil {
		return nil, 0, err
	}
	return conflicts, total, nil
}

func (r *syncConflictRepository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.SyncConflict{}).Error
}

func (r *syncConflictRepository) DeleteByRepository(ctx context.Context, repositoryID int64) error {
	return r.DB(ctx).Where("repository_id = ?", repositoryID).Delete(&model.SyncConflict{}).Error
}
