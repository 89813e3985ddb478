package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgledger/orgledger/modules/org/handlers"
	"github.com/orgledger/orgledger/modules/org/infrastructure/persistence"
	"github.com/orgledger/orgledger/modules/org/presentation/controllers"
	"github.com/orgledger/orgledger/modules/org/services"
	"github.com/orgledger/orgledger/pkg/configuration"
	"github.com/orgledger/orgledger/pkg/eventbus"
	"github.com/orgledger/orgledger/pkg/middleware"
	"github.com/orgledger/orgledger/pkg/server"
)

func main() {
	conf := configuration.Use()
	defer conf.Unload()
	log := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		log.WithError(err).Fatal("failed to create database pool")
	}
	defer pool.Close()

	if conf.MigrateOnStart {
		if err := persistence.Migrate(ctx, pool); err != nil {
			log.WithError(err).Fatal("failed to apply migrations")
		}
	}

	bus := eventbus.NewEventPublisher(log)
	repo := persistence.NewOrgRepository()

	assignments := services.NewAssignmentService(repo, bus, services.AssignmentServiceOptions{
		MaxTotalAllocation: conf.Policy.MaxTotalAllocation,
	})
	hierarchy := services.NewHierarchyService(repo, bus)
	stats := services.NewStatsService(repo)
	directory := services.NewDirectoryService(repo, repo, bus)
	handlers.RegisterOrgEventHandlers(bus, log, hierarchy)

	serverControllers := []server.Controller{
		controllers.NewOrgAPIController(assignments, hierarchy, stats, directory),
		controllers.NewHealthController(pool),
	}
	if conf.Prometheus.Enabled {
		serverControllers = append(serverControllers, controllers.NewMetricsController(conf.Prometheus.Path))
	}

	srv := &server.HTTPServer{
		Controllers: serverControllers,
		Middlewares: []mux.MiddlewareFunc{
			middleware.WithPool(pool),
			middleware.WithLogger(log),
			middleware.Cors(conf.AllowedOrigins),
		},
	}

	log.WithField("address", conf.SocketAddress).Info("starting server")
	if err := srv.Start(ctx, conf.SocketAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}
