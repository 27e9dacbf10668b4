package repository

import (
	"context"
	"errors"
	"time"

	"peersync/internal/model"

	"gorm.io/gorm"
)

type SyncStatusRepository interface {
	Get(ctx context.Context) (*model.SyncStatus, error)
	Ensure(ctx context.Context) error
	// TryStart 原子地占有运行锁；已有运行时返回 false
	TryStart(ctx context.Context, repositoryID int64) (bool, error)
	// Finish 释放运行锁，返回排队中的手动运行（无则 repoID 为 0）
	Finish(ctx context.Context) (manualRepoID int64, manualUserID string, err error)
	// QueueManual 在当前运行结束后自动启动的手动运行
	QueueManual(ctx context.Context, repositoryID int64, userID string) error
}

func NewSyncStatusRepository(r *Repository) SyncStatusRepository {
	return &syncStatusRepository{Repository: r}
}

type syncStatusRepository struct {
	*Repository
}

func (r *syncStatusRepository) Get(ctx context.Context) (*model.SyncStatus, error) {
	var status model.SyncStatus
	if err := r.DB(ctx).Where("id = ?", model.SyncStatusSingletonId).First(&status).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// Ensure 保证单例行存在（迁移时调用）
func (r *syncStatusRepository) Ensure(ctx context.Context) error {
	existing, err := r.Get(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return r.DB(ctx).Create(&model.SyncStatus{
		Id:       model.SyncStatusSingletonId,
		Timestmp: time.Now().UTC(),
	}).Error
}

func (r *syncStatusRepository) TryStart(ctx context.Context, repositoryID int64) (bool, error) {
	// 带条件的 UPDATE 做比较并交换，RowsAffected 为 0 即锁被占用
	result := r.DB(ctx).Model(&model.SyncStatus{}).
		Where("id = ? AND running = 0", model.SyncStatusSingletonId).
		Updates(map[string]interface{}{
			"running":         1,
			"running_repo_id": repositoryID,
			"timestmp":        time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *syncStatusRepository) Finish(ctx context.Context) (int64, string, error) {
	status, err := r.Get(ctx)
	if err != nil {
		return 0, "", err
	}
	if status == nil {
		return 0, "", nil
	}

	manualRepoID := int64(0)
	manualUserID := ""
	if status.Manual == 1 {
		manualRepoID = status.ManualRepoId
		manualUserID = status.ManualUserId
	}

	err = r.DB(ctx).Model(&model.SyncStatus{}).
		Where("id = ?", model.SyncStatusSingletonId).
		Updates(map[string]interface{}{
			"running":         0,
			"running_repo_id": 0,
			"manual":          0,
			"manual_repo_id":  0,
			"manual_user_id":  "",
			"timestmp":        time.Now().UTC(),
		}).Error
	if err != nil {
		return 0, "", err
	}
	return manualRepoID, manualUserID, nil
}

func (r *syncStatusRepository) QueueManual(ctx context.Context, repositoryID int64, userID string) error {
	return r.DB(ctx).Model(&model.SyncStatus{}).
		Where("id = ?", model.SyncStatusSingletonId).
		Updates(map[string]interface{}{
			"manual":         1,
			"manual_repo_id": repositoryID,
			"manual_user_id": userID,
			"timestmp":       time.Now().UTC(),
		}).Error
}
