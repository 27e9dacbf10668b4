package repository

import (
	"context"

	"peersync/internal/model"
)

type SyncLogRepository interface {
	Create(ctx context.Context, entry *model.SyncLog) error
	ListWithPagination(ctx context.Context, page, pageSize int, repositoryID *int64, resourceName, result string) ([]*model.SyncLog, int64, error)
	ListAfter(ctx context.Context, afterID int64, limit int) ([]*model.SyncLog, error)
	DeleteByRepository(ctx context.Context, repositoryID int64) error
}

func NewSyncLogRepository(r *Repository) SyncLogRepository {
	return &syncLogRepository{Repository: r}
}

type syncLogRepository struct {
	*Repository
}

func (r *syncLogRepository) Create(ctx context.Context, entry *model.SyncLog) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *syncLogRepository) ListWithPagination(ctx context.Context, page, pageSize int, repositoryID *int64, resourceName, result string) ([]*model.SyncLog, int64, error) {
	var entries []*model.SyncLog
	var total int64

	query := r.DB(ctx).Model(&model.SyncLog{})
	if repositoryID != nil && *repositoryID > 0 {
		query = query.Where("repository_id = ?", *repositoryID)
	}
	if resourceName != "" {
		query = query.Where("resource_name = ?", resourceName)
	}
	if result != "" {
		query = query.Where("result = ?", result)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("id DESC").Offset(offset).Limit(pageSize).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListAfter 增量读取新日志（日志流推送使用）
func (r *syncLogRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]*model.SyncLog, error) {
	var entries []*model.SyncLog
	err := r.DB(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *syncLogRepository) DeleteByRepository(ctx context.Context, repositoryID int64) error {
	return r.DB(ctx).Where("repository_id = ?", repositoryID).Delete(&model.SyncLog{}).Error
}
