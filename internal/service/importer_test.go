package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"peersync/internal/model"
	"peersync/internal/registry"
	"peersync/internal/repository"
	"peersync/pkg/document"
	"peersync/pkg/jwt"
	"peersync/pkg/log"
	"peersync/pkg/sid"

	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type importerEnv struct {
	imp          Importer
	recordRepo   repository.SyncRecordRepository
	conflictRepo repository.SyncConflictRepository
	db           *gorm.DB
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func testRegistryConf() *viper.Viper {
	conf := viper.New()
	conf.Set("resources", []map[string]interface{}{
		{
			"name": "person",
			"fields": []map[string]interface{}{
				{"name": "first_name", "type": "string", "required": true},
				{"name": "last_name", "type": "string"},
				{"name": "organisation", "type": "reference", "references": "organisation"},
			},
		},
		{
			"name": "organisation",
			"fields": []map[string]interface{}{
				{"name": "name", "type": "string", "required": true},
				{"name": "parent", "type": "reference", "references": "organisation"},
			},
		},
	})
	return conf
}

func newImporterEnv(t *testing.T) *importerEnv {
	t.Helper()
	db := newTestDB(t)
	if err := db.AutoMigrate(&model.SyncRecord{}, &model.SyncConflict{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := &log.Logger{Logger: zap.NewNop()}
	repo := repository.NewRepository(logger, db)
	svc := NewService(repository.NewTransaction(repo), logger, sid.NewSid(), jwt.NewJwt(viper.New()))
	reg := registry.NewRegistry(testRegistryConf(), logger)

	recordRepo := repository.NewSyncRecordRepository(repo)
	conflictRepo := repository.NewSyncConflictRepository(repo)
	return &importerEnv{
		imp:          NewImporter(svc, reg, recordRepo, conflictRepo, logger),
		recordRepo:   recordRepo,
		conflictRepo: conflictRepo,
		db:           db,
	}
}

func testRepo() *model.SyncRepository {
	return &model.SyncRepository{Id: 1, Uuid: "9e2f67cc-1111-4f58-9f2a-000000000001", Name: "peer-a"}
}

func testTask(resource string, lastSync *time.Time) *model.SyncTask {
	return &model.SyncTask{
		Id:             1,
		RepositoryId:   1,
		ResourceName:   resource,
		Mode:           model.SyncTaskModeBoth,
		LastSync:       lastSync,
		Strategy:       "create,update,delete",
		UpdatePolicy:   model.SyncPolicyNewer,
		ConflictPolicy: model.SyncPolicyNewer,
		UpdateMethod:   model.SyncUpdateMethodUpdate,
	}
}

func wireDoc(resource string, records ...*document.Record) *document.Document {
	return document.Encode(resource, "peersync/test", records)
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

const (
	uuidA = "0c43e9dd-0000-4cf2-9e03-2f0c15f9a0a1"
	uuidB = "0c43e9dd-0000-4cf2-9e03-2f0c15f9a0b2"
	uuidC = "0c43e9dd-0000-4cf2-9e03-2f0c15f9a0c3"
)

func TestImportCreatesWithInDocReference(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	doc := wireDoc("person",
		&document.Record{
			Uuid:       uuidB,
			ModifiedOn: ts("2026-03-14T10:00:00Z"),
			Attributes: map[string]interface{}{"first_name": "Asha"},
		},
	)

	result, err := env.imp.Import(ctx, testRepo(), testTask("person", nil), doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Rejected)

	row, err := env.recordRepo.FindByUuid(ctx, "person", uuidB)
	assert.NoError(t, err)
	assert.NotNil(t, row)

	var attrs map[string]interface{}
	assert.NoError(t, json.Unmarshal([]byte(row.Attributes), &attrs))
	assert.Equal(t, "Asha", attrs["first_name"])
}

func TestImportCleanUpdateMergesAttributes(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	// 本地行在 last_sync 之前修改：干净更新
	assert.NoError(t, env.recordRepo.Insert(ctx, &model.SyncRecord{
		ResourceName: "person",
		Uuid:         uuidA,
		Attributes:   `{"first_name":"Old","nickname":"K"}`,
		References:   "{}",
		ModifiedOn:   ts("2026-03-14T08:00:00Z"),
	}))

	lastSync := ts("2026-03-14T09:00:00Z")
	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T10:00:00Z"),
		Attributes: map[string]interface{}{"first_name": "New"},
	})

	result, err := env.imp.Import(ctx, testRepo(), testTask("person", &lastSync), doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	row, _ := env.recordRepo.FindByUuid(ctx, "person", uuidA)
	var attrs map[string]interface{}
	assert.NoError(t, json.Unmarshal([]byte(row.Attributes), &attrs))
	assert.Equal(t, "New", attrs["first_name"])
	assert.Equal(t, "K", attrs["nickname"], "update method keeps attributes the inbound record does not carry")
	assert.True(t, row.ModifiedOn.Equal(ts("2026-03-14T10:00:00Z")))
}

func TestImportReplaceDropsLocalOnlyAttributes(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	assert.NoError(t, env.recordRepo.Insert(ctx, &model.SyncRecord{
		ResourceName: "person",
		Uuid:         uuidA,
		Attributes:   `{"first_name":"Old","nickname":"K"}`,
		References:   "{}",
		ModifiedOn:   ts("2026-03-14T08:00:00Z"),
	}))

	lastSync := ts("2026-03-14T09:00:00Z")
	task := testTask("person", &lastSync)
	task.UpdateMethod = model.SyncUpdateMethodReplace
	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T10:00:00Z"),
		Attributes: map[string]interface{}{"first_name": "New"},
	})

	_, err := env.imp.Import(ctx, testRepo(), task, doc)
	assert.NoError(t, err)

	row, _ := env.recordRepo.FindByUuid(ctx, "person", uuidA)
	var attrs map[string]interface{}
	assert.NoError(t, json.Unmarshal([]byte(row.Attributes), &attrs))
	assert.NotContains(t, attrs, "nickname")
}

func TestImportSkipsOlderInbound(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	assert.NoError(t, env.recordRepo.Insert(ctx, &model.SyncRecord{
		ResourceName: "person",
		Uuid:         uuidA,
		Attributes:   `{"first_name":"Local"}`,
		References:   "{}",
		ModifiedOn:   ts("2026-03-14T08:00:00Z"),
	}))

	lastSync := ts("2026-03-14T09:00:00Z")
	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T07:00:00Z"),
		Attributes: map[string]interface{}{"first_name": "Stale"},
	})

	result, err := env.imp.Import(ctx, testRepo(), testTask("person", &lastSync), doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, model.SyncLogActionSkippedOlder, result.Items[0].Action)

	row, _ := env.recordRepo.FindByUuid(ctx, "person", uuidA)
	assert.Contains(t, row.Attributes, "Local")
}

func TestImportEqualTimestampLocalWins(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	same := ts("2026-03-14T08:00:00Z")
	assert.NoError(t, env.recordRepo.Insert(ctx, &model.SyncRecord{
		ResourceName: "person",
		Uuid:         uuidA,
		Attributes:   `{"first_name":"Local"}`,
		References:   "{}",
		ModifiedOn:   same,
	}))

	lastSync := ts("2026-03-14T09:00:00Z")
	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: same,
		Attributes: map[string]interface{}{"first_name": "Remote"},
	})

	result, err := env.imp.Import(ctx, testRepo(), testTask("person", &lastSync), doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
}

func TestImportConflictNeverPersistsConflict(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	// 本地行在 last_sync 之后改过：双方都改 → 冲突
	assert.NoError(t, env.recordRepo.Insert(ctx, &model.SyncRecord{
		ResourceName: "person",
		Uuid:         uuidA,
		Attributes:   `{"first_name":"Local"}`,
		References:   "{}",
		ModifiedOn:   ts("2026-03-14T09:30:00Z"),
	}))

	lastSync := ts("2026-03-14T09:00:00Z")
	task := testTask("person", &lastSync)
	task.ConflictPolicy = model.SyncPolicyNever

	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T10:00:00Z"),
		Attributes: map[string]interface{}{"first_name": "Remote"},
	})

	result, err := env.imp.Import(ctx, testRepo(), task, doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Conflicts)

	conflict, err := env.conflictRepo.GetByRecord(ctx, 1, "person", uuidA)
	assert.NoError(t, err)
	assert.NotNil(t, conflict)
	assert.True(t, conflict.LocalModifiedOn.Equal(ts("2026-03-14T09:30:00Z")))

	// 本地数据保持不变
	row, _ := env.recordRepo.FindByUuid(ctx, "person", uuidA)
	assert.Contains(t, row.Attributes, "Local")

	// 重复导入不重复建冲突行
	_, err = env.imp.Import(ctx, testRepo(), task, doc)
	assert.NoError(t, err)
	var count int64
	env.db.Model(&model.SyncConflict{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestImportConflictNewerRemoteWins(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	assert.NoError(t, env.recordRepo.Insert(ctx, &model.SyncRecord{
		ResourceName: "person",
		Uuid:         uuidA,
		Attributes:   `{"first_name":"Local"}`,
		References:   "{}",
		ModifiedOn:   ts("2026-03-14T09:30:00Z"),
	}))

	lastSync := ts("2026-03-14T09:00:00Z")
	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T10:00:00Z"),
		Attributes: map[string]interface{}{"first_name": "Remote"},
	})

	result, err := env.imp.Import(ctx, testRepo(), testTask("person", &lastSync), doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, "conflict-resolved-newer", result.Items[0].Action)
}

func TestImportMasterPolicy(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	assert.NoError(t, env.recordRepo.Insert(ctx, &model.SyncRecord{
		ResourceName: "person",
		Uuid:         uuidA,
		Attributes:   `{"first_name":"Local"}`,
		References:   "{}",
		ModifiedOn:   ts("2026-03-14T08:00:00Z"),
	}))

	lastSync := ts("2026-03-14T09:00:00Z")
	task := testTask("person", &lastSync)
	task.UpdatePolicy = model.SyncPolicyMaster
	task.MasterUuid = "another-node-entirely"

	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T10:00:00Z"),
		Attributes: map[string]interface{}{"first_name": "Remote"},
	})

	result, err := env.imp.Import(ctx, testRepo(), task, doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, model.SyncLogActionSkippedNotMaster, result.Items[0].Action)

	// master_uuid 为空时任务所属仓库即权威
	task.MasterUuid = ""
	result, err = env.imp.Import(ctx, testRepo(), task, doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
}

func TestImportTombstone(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	assert.NoError(t, env.recordRepo.Insert(ctx, &model.SyncRecord{
		ResourceName: "person",
		Uuid:         uuidA,
		Attributes:   `{"first_name":"Asha"}`,
		References:   `{"organisation":"` + uuidC + `"}`,
		ModifiedOn:   ts("2026-03-14T08:00:00Z"),
	}))

	lastSync := ts("2026-03-14T09:00:00Z")
	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T10:00:00Z"),
		Deleted:    true,
	})

	result, err := env.imp.Import(ctx, testRepo(), testTask("person", &lastSync), doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)

	row, _ := env.recordRepo.FindByUuid(ctx, "person", uuidA)
	assert.Equal(t, int8(1), row.Deleted)
	// 对端未带外键快照时保留本地引用
	assert.Contains(t, row.DeletedFk, uuidC)
}

func TestImportTombstoneForAbsentRecord(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T10:00:00Z"),
		Deleted:    true,
	})

	result, err := env.imp.Import(ctx, testRepo(), testTask("person", nil), doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, model.SyncLogActionSkippedAbsent, result.Items[0].Action)
	assert.True(t, result.Items[0].Accepted, "absent tombstone is trivially accepted")
}

func TestImportStrategyGating(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	assert.NoError(t, env.recordRepo.Insert(ctx, &model.SyncRecord{
		ResourceName: "person",
		Uuid:         uuidA,
		Attributes:   `{"first_name":"Local"}`,
		References:   "{}",
		ModifiedOn:   ts("2026-03-14T08:00:00Z"),
	}))

	lastSync := ts("2026-03-14T09:00:00Z")
	task := testTask("person", &lastSync)
	task.Strategy = "create"

	doc := wireDoc("person",
		&document.Record{
			Uuid:       uuidA,
			ModifiedOn: ts("2026-03-14T10:00:00Z"),
			Attributes: map[string]interface{}{"first_name": "Remote"},
		},
		&document.Record{
			Uuid:       uuidB,
			ModifiedOn: ts("2026-03-14T10:00:00Z"),
			Deleted:    true,
		},
	)
	// uuidB 需要一条存在的行才能走到 delete 裁决
	assert.NoError(t, env.recordRepo.Insert(ctx, &model.SyncRecord{
		ResourceName: "person",
		Uuid:         uuidB,
		Attributes:   `{"first_name":"B"}`,
		References:   "{}",
		ModifiedOn:   ts("2026-03-14T08:00:00Z"),
	}))

	result, err := env.imp.Import(ctx, testRepo(), task, doc)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Skipped)
	for _, item := range result.Items {
		assert.Equal(t, model.SyncLogActionSkippedStrategy, item.Action)
	}
}

func TestImportRejectsInvalidRecordAndKeepsSiblings(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	doc := wireDoc("person",
		&document.Record{
			Uuid:       uuidA,
			ModifiedOn: ts("2026-03-14T10:00:00Z"),
			Attributes: map[string]interface{}{"last_name": "NoFirstName"},
		},
		&document.Record{
			Uuid:       uuidB,
			ModifiedOn: ts("2026-03-14T10:00:00Z"),
			Attributes: map[string]interface{}{"first_name": "Valid"},
		},
	)

	result, err := env.imp.Import(ctx, testRepo(), testTask("person", nil), doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, 1, result.Created)

	rowA, _ := env.recordRepo.FindByUuid(ctx, "person", uuidA)
	assert.Nil(t, rowA, "rejected record must not be stored")
	rowB, _ := env.recordRepo.FindByUuid(ctx, "person", uuidB)
	assert.NotNil(t, rowB)
}

func TestImportRejectsUnresolvedReference(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T10:00:00Z"),
		Attributes: map[string]interface{}{"first_name": "Asha"},
		References: map[string]string{"organisation": uuidC},
	})

	result, err := env.imp.Import(ctx, testRepo(), testTask("person", nil), doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Rejected)
	assert.Contains(t, result.Items[0].Error, "unresolved reference")
}

func TestImportResolvesReferenceAgainstLocalStore(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	// 引用目标已在本地，即使不在文档内也可解析
	assert.NoError(t, env.recordRepo.Insert(ctx, &model.SyncRecord{
		ResourceName: "organisation",
		Uuid:         uuidC,
		Attributes:   `{"name":"Relief Org"}`,
		References:   "{}",
		ModifiedOn:   ts("2026-03-14T08:00:00Z"),
	}))

	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T10:00:00Z"),
		Attributes: map[string]interface{}{"first_name": "Asha"},
		References: map[string]string{"organisation": uuidC},
	})

	result, err := env.imp.Import(ctx, testRepo(), testTask("person", nil), doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}

func TestImportCyclicReferences(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	// 两个组织互为 parent：拓扑排序无法线性化，走占位+回填
	doc := wireDoc("organisation",
		&document.Record{
			Uuid:       uuidA,
			ModifiedOn: ts("2026-03-14T10:00:00Z"),
			Attributes: map[string]interface{}{"name": "HQ"},
			References: map[string]string{"parent": uuidB},
		},
		&document.Record{
			Uuid:       uuidB,
			ModifiedOn: ts("2026-03-14T10:00:00Z"),
			Attributes: map[string]interface{}{"name": "Branch"},
			References: map[string]string{"parent": uuidA},
		},
	)

	result, err := env.imp.Import(ctx, testRepo(), testTask("organisation", nil), doc)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Created)

	rowA, _ := env.recordRepo.FindByUuid(ctx, "organisation", uuidA)
	rowB, _ := env.recordRepo.FindByUuid(ctx, "organisation", uuidB)
	assert.Contains(t, rowA.Attributes, "HQ")
	assert.Contains(t, rowB.Attributes, "Branch")
	assert.Contains(t, rowA.References, uuidB)
	assert.Contains(t, rowB.References, uuidA)
}

func TestImportIsIdempotent(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	doc := wireDoc("person", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T10:00:00Z"),
		Attributes: map[string]interface{}{"first_name": "Asha"},
	})

	first, err := env.imp.Import(ctx, testRepo(), testTask("person", nil), doc)
	assert.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := env.imp.Import(ctx, testRepo(), testTask("person", nil), doc)
	assert.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Skipped)

	var count int64
	env.db.Model(&model.SyncRecord{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestImportUnknownResource(t *testing.T) {
	env := newImporterEnv(t)
	ctx := context.Background()

	doc := wireDoc("vehicle", &document.Record{
		Uuid:       uuidA,
		ModifiedOn: ts("2026-03-14T10:00:00Z"),
	})

	_, err := env.imp.Import(ctx, testRepo(), testTask("vehicle", nil), doc)
	assert.Error(t, err)
	var unknown *document.UnknownResourceError
	assert.ErrorAs(t, err, &unknown)
}
