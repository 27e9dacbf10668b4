package server

import (
	"context"
	"os"

	"peersync/internal/model"
	"peersync/internal/repository"
	"peersync/pkg/log"
	"peersync/pkg/sid"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type MigrateServer struct {
	db         *gorm.DB
	log        *log.Logger
	conf       *viper.Viper
	userRepo   repository.UserRepository
	statusRepo repository.SyncStatusRepository
	configRepo repository.SyncConfigRepository
	sid        *sid.Sid
}

func NewMigrateServer(
	db *gorm.DB,
	log *log.Logger,
	conf *viper.Viper,
	userRepo repository.UserRepository,
	statusRepo repository.SyncStatusRepository,
	configRepo repository.SyncConfigRepository,
	sid *sid.Sid,
) *MigrateServer {
	return &MigrateServer{
		db:         db,
		log:        log,
		conf:       conf,
		userRepo:   userRepo,
		statusRepo: statusRepo,
		configRepo: configRepo,
		sid:        sid,
	}
}
func (m *MigrateServer) Start(ctx context.Context) error {
	if err := m.db.AutoMigrate(
		&model.User{},
		// 同步引擎相关表
		&model.SyncRepository{},
		&model.SyncTask{},
		&model.SyncJob{},
		&model.SyncLog{},
		&model.SyncConflict{},
		&model.SyncStatus{},
		&model.SyncConfig{},
		&model.SyncRecord{},
	); err != nil {
		m.log.Error("migrate error", zap.Error(err))
		return err
	}
	m.log.Info("AutoMigrate success")

	// 同步引擎的两个单例行：全局运行锁与节点身份
	if err := m.statusRepo.Ensure(ctx); err != nil {
		m.log.Error("seed sync status error", zap.Error(err))
		return err
	}
	config, err := m.configRepo.Ensure(ctx, m.conf.GetString("app.name"))
	if err != nil {
		m.log.Error("seed sync config error", zap.Error(err))
		return err
	}
	m.log.Info("sync config ready", zap.String("node_uuid", config.NodeUuid))

	// 创建默认用户
	if err := m.createDefaultUser(ctx); err != nil {
		m.log.Error("create default user error", zap.Error(err))
		return err
	}

	os.Exit(0)
	return nil
}

// createDefaultUser 创建默认管理员用户
func (m *MigrateServer) createDefaultUser(ctx context.Context) error {
	defaultUsername := "admin"
	defaultEmail := "admin@peersync.local"
	defaultPassword := "Ab123456"
	defaultNickname := "PeerSync Admin"

	// 检查用户是否已存在（通过邮箱或用户名）
	existingUser, err := m.userRepo.GetByEmail(ctx, defaultEmail)
	if err != nil {
		m.log.Error("check default user error", zap.Error(err))
		return err
	}
	if existingUser != nil {
		m.log.Info("default user already exists", zap.String("email", defaultEmail))
		return nil
	}

	existingUser, err = m.userRepo.GetByUsername(ctx, defaultUsername)
	if err != nil {
		m.log.Error("check default username error", zap.Error(err))
		return err
	}
	if existingUser != nil {
		m.log.Info("default username already exists", zap.String("username", defaultUsername))
		return nil
	}

	userId, err := m.sid.GenString()
	if err != nil {
		m.log.Error("generate user id error", zap.Error(err))
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		m.log.Error("hash password error", zap.Error(err))
		return err
	}

	user := &model.User{
		UserId:   userId,
		Username: defaultUsername,
		Email:    defaultEmail,
		Password: string(hashedPassword),
		Nickname: defaultNickname,
	}

	if err := m.userRepo.Create(ctx, user); err != nil {
		m.log.Error("create default user error", zap.Error(err))
		return err
	}

	m.log.Info("default user created successfully",
		zap.String("username", defaultUsername),
		zap.String("email", defaultEmail),
		zap.String("userId", userId))
	return nil
}
func (m *MigrateServer) Stop(ctx context.Context) error {
	m.log.Info("AutoMigrate stop")
	return nil
}
