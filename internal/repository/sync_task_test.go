package repository

import (
	"context"
	"testing"
	"time"

	"peersync/pkg/log"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockTaskRepo(t *testing.T) (SyncTaskRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	repo := NewRepository(&log.Logger{Logger: zap.NewNop()}, db)
	return NewSyncTaskRepository(repo), mock
}

func TestSyncTaskDeleteIsSoft(t *testing.T) {
	taskRepo, mock := newMockTaskRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `sync_task` SET `deleted`=").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := taskRepo.Delete(context.Background(), 7)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncTaskUpdateLastSync(t *testing.T) {
	taskRepo, mock := newMockTaskRepo(t)
	lastSync := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `sync_task` SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := taskRepo.UpdateLastSync(context.Background(), 3, lastSync)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncTaskGetByIDFiltersDeleted(t *testing.T) {
	taskRepo, mock := newMockTaskRepo(t)

	rows := sqlmock.NewRows([]string{"id", "repository_id", "resource_name", "mode", "strategy"}).
		AddRow(int64(3), int64(1), "person", "both", "create,update,delete")
	// gorm 的 First 把 LIMIT 作为绑定参数下发
	mock.ExpectQuery("SELECT \\* FROM `sync_task` WHERE id = \\? AND deleted = 0 .* LIMIT \\?").
		WithArgs(int64(3), 1).
		WillReturnRows(rows)

	task, err := taskRepo.GetByID(context.Background(), 3)
	assert.NoError(t, err)
	if assert.NotNil(t, task) {
		assert.Equal(t, "person", task.ResourceName)
		assert.True(t, task.PullEnabled())
		assert.True(t, task.PushEnabled())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncTaskGetByRepositoryAndResourceNotFound(t *testing.T) {
	taskRepo, mock := newMockTaskRepo(t)

	mock.ExpectQuery("SELECT \\* FROM `sync_task` .* LIMIT \\?").
		WithArgs(int64(1), "vehicle", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	task, err := taskRepo.GetByRepositoryAndResource(context.Background(), 1, "vehicle")
	assert.NoError(t, err)
	assert.Nil(t, task)
	assert.NoError(t, mock.ExpectationsWereMet())
}
