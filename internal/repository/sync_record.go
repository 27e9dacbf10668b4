package repository

import (
	"context"
	"errors"
	"time"

	"peersync/internal/model"

	"gorm.io/gorm"
)

// SyncRecordRepository 通用资源的数据访问契约。
// 所有方法经由 r.DB(ctx)，因此在导入事务内调用时自动加入该事务
type SyncRecordRepository interface {
	// SelectSince 返回 since 之后修改过的记录（含软删除的墓碑）；since 为 nil 表示全部
	SelectSince(ctx context.Context, resourceName string, since *time.Time) ([]*model.SyncRecord, error)
	FindByUuid(ctx context.Context, resourceName, recordUuid string) (*model.SyncRecord, error)
	Insert(ctx context.Context, record *model.SyncRecord) error
	Update(ctx context.Context, record *model.SyncRecord) error
	SoftDelete(ctx context.Context, resourceName, recordUuid string, modifiedOn time.Time, deletedFk string) error
}

func NewSyncRecordRepository(r *Repository) SyncRecordRepository {
	return &syncRecordRepository{Repository: r}
}

type syncRecordRepository struct {
	*Repository
}

func (r *syncRecordRepository) SelectSince(ctx context.Context, resourceName string, since *time.Time) ([]*model.SyncRecord, error) {
	var records []*model.SyncRecord
	query := r.DB(ctx).Where("resource_name = ?", resourceName)
	if since != nil {
		query = query.Where("modified_on > ?", since.UTC())
	}
	if err := query.Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *syncRecordRepository) FindByUuid(ctx context.Context, resourceName, recordUuid string) (*model.SyncRecord, error) {
	var record model.SyncRecord
	err := r.DB(ctx).
		Where("resource_name = ? AND uuid = ?", resourceName, recordUuid).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *syncRecordRepository) Insert(ctx context.Context, record *model.SyncRecord) error {
	return r.DB(ctx).Create(record).Error
}

func (r *syncRecordRepository) Update(ctx context.Context, record *model.SyncRecord) error {
	return r.DB(ctx).Save(record).Error
}

func (r *syncRecordRepository) SoftDelete(ctx context.Context, resourceName, recordUuid string, modifiedOn time.Time, deletedFk string) error {
	return r.DB(ctx).Model(&model.SyncRecord{}).
		Where("resource_name = ? AND uuid = ?", resourceName, recordUuid).
		Updates(map[string]interface{}{
			"deleted":     1,
			"deleted_fk":  deletedFk,
			"modified_on": modifiedOn.UTC(),
		}).Error
}
