//go:build wireinject
// +build wireinject

package wire

import (
	"peersync/internal/handler"
	"peersync/internal/job"
	"peersync/internal/registry"
	"peersync/internal/repository"
	"peersync/internal/router"
	"peersync/internal/server"
	"peersync/internal/service"
	"peersync/pkg/app"
	"peersync/pkg/jwt"
	"peersync/pkg/log"
	"peersync/pkg/server/http"
	"peersync/pkg/sid"

	"github.com/google/wire"
	"github.com/spf13/viper"
)

var repositorySet = wire.NewSet(
	repository.NewDB,
	repository.NewRepository,
	repository.NewTransaction,
	repository.NewUserRepository,
	repository.NewSyncRepositoryRepository,
	repository.NewSyncTaskRepository,
	repository.NewSyncJobRepository,
	repository.NewSyncLogRepository,
	repository.NewSyncConflictRepository,
	repository.NewSyncStatusRepository,
	repository.NewSyncConfigRepository,
	repository.NewSyncRecordRepository,
)

var serviceSet = wire.NewSet(
	service.NewService,
	service.NewUserService,
	service.NewPeerClientFactory,
	service.NewImporter,
	service.NewTaskRunner,
	service.NewSynchronizer,
	service.NewSyncRepositoryService,
	service.NewSyncTaskService,
	service.NewSyncAdminService,
	service.NewPeerService,
)

var handlerSet = wire.NewSet(
	handler.NewHandler,
	handler.NewUserHandler,
	handler.NewSyncRepositoryHandler,
	handler.NewSyncRunHandler,
	handler.NewSyncAdminHandler,
	handler.NewPeerHandler,
)

var jobSet = wire.NewSet(
	job.NewSyncJobManager,
)
var serverSet = wire.NewSet(
	server.NewHTTPServer,
	server.NewJobServer,
)

// build App
func newApp(
	httpServer *http.Server,
	jobServer *server.JobServer,
) *app.App {
	return app.NewApp(
		app.WithServer(httpServer, jobServer),
		app.WithName("peersync-server"),
	)
}

func NewWire(*viper.Viper, *log.Logger) (*app.App, func(), error) {
	panic(wire.Build(
		repositorySet,
		serviceSet,
		handlerSet,
		jobSet,
		serverSet,
		registry.NewRegistry,
		wire.Struct(new(router.RouterDeps), "*"),
		sid.NewSid,
		jwt.NewJwt,
		newApp,
	))
}
