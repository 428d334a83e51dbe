// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"biblios/internal/audit"
	"biblios/internal/circulation"
	"biblios/internal/fines"
	"biblios/internal/inventory"
	"biblios/internal/ledger"
	"biblios/internal/patrons"
	"biblios/internal/platform/config"
	"biblios/internal/platform/db"
	"biblios/internal/platform/telemetry"
	"biblios/internal/workflow"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the yaml config file")
	memMode := flag.Bool("mem", false, "run against in-memory stores instead of postgres")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("[WARN] tracer shutdown: %v", err)
		}
	}()

	var (
		invStore    inventory.Store
		ledgerStore ledger.Store
		reqStore    workflow.Store
		patronStore patrons.Store
		trail       audit.Log
	)
	if *memMode {
		log.Printf("[INFO] running with in-memory stores")
		invStore = inventory.NewMemoryStore()
		ledgerStore = ledger.NewMemoryStore()
		reqStore = workflow.NewMemoryStore()
		patronStore = patrons.NewMemoryStore()
		trail = audit.NewMemoryLog()
	} else {
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			log.Fatalf("[FATAL] %v", err)
		}
		defer pool.Close()
		invStore = inventory.NewPostgresStore(pool)
		ledgerStore = ledger.NewPostgresStore(pool)
		reqStore = workflow.NewPostgresStore(pool)
		patronStore = patrons.NewPostgresStore(pool)
		trail = audit.NewPostgresLog(pool)
	}

	registry := patrons.NewRegistry(patronStore, cfg.Auth.StudentDomain)
	if cfg.Auth.AdminPassword != "" {
		if err := registry.SeedAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, "Library Admin"); err != nil {
			log.Fatalf("[FATAL] seed admin: %v", err)
		}
	}

	led := ledger.NewLedger(ledgerStore, invStore, fines.NewCalculator(cfg.Circulation.FineDailyRate))
	wf := workflow.NewWorkflow(reqStore, invStore, led, registry, workflow.Policy{
		StudentLoanDays:   cfg.Circulation.StudentLoanDays,
		FacultyLoanDays:   cfg.Circulation.FacultyLoanDays,
		StudentTokenLimit: cfg.Circulation.StudentTokenLimit,
		FacultyTokenLimit: cfg.Circulation.FacultyTokenLimit,
	})
	svc := circulation.NewService(invStore, led, wf, registry, trail)
	handler := circulation.NewHandler(svc)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler.Routes([]byte(cfg.Auth.JWTSecret)),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] listening on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[FATAL] server: %v", err)
		}
	case <-ctx.Done():
		log.Printf("[INFO] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] shutdown: %v", err)
		}
	}
}
