package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"rentscore/internal/analysis"
	"rentscore/internal/certificate"
	"rentscore/internal/config"
	"rentscore/internal/database"
	"rentscore/internal/database/migration"
	handlers "rentscore/internal/http/handler"
	"rentscore/internal/http/middleware"
	"rentscore/internal/logging"
	"rentscore/internal/metrics"
	"rentscore/internal/otel"
	"rentscore/internal/repository/postgres"
	"rentscore/internal/service"
	"rentscore/internal/storage"
	"rentscore/internal/store"
	"rentscore/internal/workflow"
)

// bodyLimit leaves room for multipart framing around a statement at the 15MB cap.
const bodyLimit = 20 << 20

func main() {
	cfg := config.Load()
	log := logging.Stdout(cfg.Location())

	if err := run(cfg, log); err != nil {
		log.Error("server_exit", err, nil)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error("tracing_shutdown_failed", err, nil)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}
	wfMetrics, err := metrics.NewWorkflow(reg)
	if err != nil {
		return err
	}

	certs, db, err := certificateArchive(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	client := analysis.NewClient(cfg.Analysis.BaseURL, cfg.Analysis.Timeout())
	workspaces := handlers.NewWorkspaces(cfg.SessionTTL(), func() *handlers.Workspace {
		results := store.New(store.NewMemoryKV())
		exportOpts := []certificate.Option{certificate.WithLogger(log), certificate.WithMetrics(wfMetrics)}
		if certs != nil {
			exportOpts = append(exportOpts, certificate.WithArchiver(certs))
		}
		return &handlers.Workspace{
			Controller: workflow.New(client, results, workflow.WithLogger(log), workflow.WithMetrics(wfMetrics)),
			Exporter:   certificate.NewExporter(client, exportOpts...),
			Results:    results,
		}
	})
	go workspaces.Run(ctx, time.Minute)

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log))
	app.Use(prom.Handler())

	handlers.RegisterRoutes(app, handlers.NewWeb(workspaces, cfg.SessionTTL(), log), certs, reg)

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			log.Error("server_shutdown_failed", err, nil)
		}
	}()

	addr := ":" + cfg.Port
	log.Info("server_start", map[string]any{
		"addr":             addr,
		"analysis_api":     cfg.Analysis.BaseURL,
		"certificate_repo": certs != nil,
	})
	return app.Listen(addr)
}

// certificateArchive wires the optional certificate registry. Both the database
// and the bucket must be configured; with neither the server runs without it.
func certificateArchive(ctx context.Context, cfg *config.AppConfig, log *logging.Logger) (service.CertificateService, *sql.DB, error) {
	switch {
	case !cfg.Database.Enabled() && !cfg.MinIO.Enabled():
		log.Info("certificate_archive_disabled", nil)
		return nil, nil, nil
	case !cfg.Database.Enabled() || !cfg.MinIO.Enabled():
		return nil, nil, errors.New("certificate archive needs both DB_HOST and MINIO_ENDPOINT")
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	presignTTL := time.Duration(cfg.MinIO.PresignTTLSec) * time.Second
	return service.NewCertificateService(objStore, postgres.NewCertificatePostgres(db), presignTTL), db, nil
}
