package router

import (
	"peersync/internal/handler"
	"peersync/internal/service"
	"peersync/pkg/jwt"
	"peersync/pkg/log"

	"github.com/spf13/viper"
)

type RouterDeps struct {
	Logger                *log.Logger
	Config                *viper.Viper
	JWT                   *jwt.JWT
	UserHandler           *handler.UserHandler
	SyncRepositoryHandler *handler.SyncRepositoryHandler
	SyncRunHandler        *handler.SyncRunHandler
	SyncAdminHandler      *handler.SyncAdminHandler
	PeerHandler           *handler.PeerHandler
	PeerService           service.PeerService
}
