package server

import (
	"context"

	"peersync/internal/job"
	"peersync/pkg/log"
)

type JobServer struct {
	manager *job.SyncJobManager
	log     *log.Logger
}

func NewJobServer(
	log *log.Logger,
	manager *job.SyncJobManager,
) *JobServer {
	return &JobServer{
		manager: manager,
		log:     log,
	}
}

func (s *JobServer) Start(ctx context.Context) error {
	s.log.Info("starting job server")
	return s.manager.Start(ctx)
}

func (s *JobServer) Stop(ctx context.Context) error {
	s.log.Info("stopping job server")
	return s.manager.Stop(ctx)
}
