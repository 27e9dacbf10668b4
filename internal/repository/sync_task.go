package repository

import (
	"context"
	"errors"
	"time"

	"peersync/internal/model"

	"gorm.io/gorm"
)

type SyncTaskRepository interface {
	Create(ctx context.Context, task *model.SyncTask) error
	Update(ctx context.Context, task *model.SyncTask) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.SyncTask, error)
	GetByRepositoryAndResource(ctx context.Context, repositoryID int64, resourceName string) (*model.SyncTask, error)
	ListByRepository(ctx context.Context, repositoryID int64) ([]*model.SyncTask, error)
	UpdateLastSync(ctx context.Context, id int64, lastSync time.Time) error
	DeleteByRepository(ctx context.Context, repositoryID int64) error
}

func NewSyncTaskRepository(r *Repository) SyncTaskRepository {
	return &syncTaskRepository{Repository: r}
}

type syncTaskRepository struct {
	*Repository
}

func (r *syncTaskRepository) Create(ctx context.Context, task *model.SyncTask) error {
	return r.DB(ctx).Create(task).Error
}

func (r *syncTaskRepository) Update(ctx context.Context, task *model.SyncTask) error {
	return r.DB(ctx).Save(task).Error
}

// Delete 软删除，保持日志里的 resource_name 引用有效
func (r *syncTaskRepository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Model(&model.SyncTask{}).
		Where("id = ?", id).
		Update("deleted", 1).Error
}

func (r *syncTaskRepository) GetByID(ctx context.Context, id int64) (*model.SyncTask, error) {
	var task model.SyncTask
	if err := r.DB(ctx).Where("id = ? AND deleted = 0", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *syncTaskRepository) GetByRepositoryAndResource(ctx context.Context, repositoryID int64, resourceName string) (*model.SyncTask, error) {
	var task model.SyncTask
	err := r.DB(ctx).
		Where("repository_id = ? AND resource_name = ? AND deleted = 0", repositoryID, resourceName).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// ListByRepository 按创建顺序返回，同步运行依赖这个稳定顺序
func (r *syncTaskRepository) ListByRepository(ctx context.Context, repositoryID int64) ([]*model.SyncTask, error) {
	var tasks []*model.SyncTask
	err := r.DB(ctx).
		Where("repository_id = ? AND deleted = 0", repositoryID).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *syncTaskRepository) UpdateLastSync(ctx context.Context, id int64, lastSync time.Time) error {
	return r.DB(ctx).Model(&model.SyncTask{}).
		Where("id = ?", id).
		Update("last_sync", lastSync).Error
}

func (r *syncTaskRepository) DeleteByRepository(ctx context.Context, repositoryID int64) error {
	return r.DB(ctx).Where("repository_id = ?", repositoryID).Delete(&model.SyncTask{}).Error
}
