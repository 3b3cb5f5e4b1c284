package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/vraagbaak/dbopen"
	"github.com/hazyhaar/vraagbaak/faq"
)

func main() {
	port := env("PORT", "8086")
	dbPath := env("DB_PATH", "db/vraagbaak.db")
	configPath := env("CONFIG", "")
	bufferDir := env("BUFFER_DIR", "")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		slog.Error("ADMIN_TOKEN is required")
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration.
	var cfg *faq.Config
	if configPath != "" {
		var err error
		cfg, err = faq.LoadConfig(configPath)
		if err != nil {
			slog.Error("load config", "error", err)
			os.Exit(1)
		}
	} else {
		cfg = &faq.Config{}
	}
	if bufferDir != "" {
		cfg.BufferDir = bufferDir
	}

	// Database.
	db, err := dbopen.Open(dbPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(faq.Schema),
	)
	if err != nil {
		slog.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := faq.New(db, cfg, logger)

	// Ensure configured contexts exist.
	for _, cc := range cfg.Contexts {
		if _, err := svc.GetContext(ctx, cc.Slug); err == nil {
			continue
		}
		if _, err := svc.CreateContext(ctx, cc.Slug, cc.Name); err != nil {
			slog.Error("create context", "slug", cc.Slug, "error", err)
			os.Exit(1)
		}
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/", svc.Routes(adminToken))

	// Optional MCP over stdio.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "vraagbaak",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		go func() {
			slog.Info("MCP stdio starting")
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil {
				slog.Error("MCP stdio", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
