package repository

import (
	"context"
	"errors"
	"time"

	"peersync/internal/model"

	"gorm.io/gorm"
)

type SyncJobRepository interface {
	Create(ctx context.Context, job *model.SyncJob) error
	Update(ctx context.Context, job *model.SyncJob) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.SyncJob, error)
	ListByRepository(ctx context.Context, repositoryID int64) ([]*model.SyncJob, error)
	ListEnabled(ctx context.Context) ([]*model.SyncJob, error)
	UpdateLastRun(ctx context.Context, id int64, runTime time.Time, lastError string) error
	DeleteByRepository(ctx context.Context, repositoryID int64) error
}

func NewSyncJobRepository(r *Repository) SyncJobRepository {
	return &syncJobRepository{Repository: r}
}

type syncJobRepository struct {
	*Repository
}

func (r *syncJobRepository) Create(ctx context.Context, job *model.SyncJob) error {
	return r.DB(ctx).Create(job).Error
}

func (r *syncJobRepository) Update(ctx context.Context, job *model.SyncJob) error {
	return r.DB(ctx).Save(job).Error
}

func (r *syncJobRepository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.SyncJob{}).Error
}

func (r *syncJobRepository) GetByID(ctx context.Context, id int64) (*model.SyncJob, error) {
	var job model.SyncJob
	if err := r.DB(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *syncJobRepository) ListByRepository(ctx context.Context, repositoryID int64) ([]*model.SyncJob, error) {
	var jobs []*model.SyncJob
	err := r.DB(ctx).
		Where("repository_id = ?", repositoryID).
		Order("id ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *syncJobRepository) ListEnabled(ctx context.Context) ([]*model.SyncJob, error) {
	var jobs []*model.SyncJob
	if err := r.DB(ctx).Where("enabled = ?", 1).Order("id ASC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *syncJobRepository) UpdateLastRun(ctx context.Context, id int64, runTime time.Time, lastError string) error {
	return r.DB(ctx).Model(&model.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_run_time": runTime,
			"last_error":    lastError,
		}).Error
}

func (r *syncJobRepository) DeleteByRepository(ctx context.Context, repositoryID int64) error {
	return r.DB(ctx).Where("repository_id = ?", repositoryID).Delete(&model.SyncJob{}).Error
}
