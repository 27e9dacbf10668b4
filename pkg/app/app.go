package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peersync/pkg/server"
)

type App struct {
	name    string
	servers []server.Server
}

type Option func(a *App)

func NewApp(opts ...Option) *App {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func WithServer(servers ...server.Server) Option {
	return func(a *App) {
		a.servers = servers
	}
}

func WithName(name string) Option {
	return func(a *App) {
		a.name = name
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for _, srv := range a.servers {
		go func(srv server.Server) {
			err := srv.Start(ctx)
			if err != nil {
				panic(err)
			}
		}(srv)
	}

	select {
	case <-signals:
		// Received termination signal
		signal.Stop(signals)
	case <-ctx.Done():
		// Context canceled
	}

	// Gracefully stop the servers
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	for _, srv := range a.servers {
		err := srv.Stop(stopCtx)
		if err != nil {
			return err
		}
	}

	return nil
}
