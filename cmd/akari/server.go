package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/Uttutt17/akari/internal/api"
	"github.com/Uttutt17/akari/internal/catalog"
	"github.com/Uttutt17/akari/internal/config"
	"github.com/Uttutt17/akari/internal/explain"
	"github.com/Uttutt17/akari/internal/ingest"
	"github.com/Uttutt17/akari/internal/intent"
	"github.com/Uttutt17/akari/internal/llm"
	"github.com/Uttutt17/akari/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the akari server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running akari server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show akari system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "akari.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "akari version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Fail fast on intent table drift before accepting traffic.
	if err := intent.ValidateMappings(); err != nil {
		return fmt.Errorf("validating intent mappings: %w", err)
	}

	// Management endpoints need a bearer token. Generate an ephemeral one
	// when none is configured so the server still comes up.
	apiToken := cfg.Server.APIToken
	if apiToken == "" {
		apiToken = uuid.New().String()
		printWarning("no API token configured; generated ephemeral token %s", apiToken)
	}

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("akari is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("akari is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := catalog.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the decision pipeline and the optional explanation layer.
	pipe := pipeline.New(intent.NewClassifier(), store)

	var explainer *explain.Explainer
	if cfg.Explain.APIKey != "" {
		var client *llm.Client
		if cfg.Explain.BaseURL != "" {
			client = llm.NewClientWithBaseURL(cfg.Explain.APIKey, cfg.Explain.Model, cfg.Explain.BaseURL)
		} else {
			client = llm.NewClient(cfg.Explain.APIKey, cfg.Explain.Model)
		}
		explainer = explain.New(client)
		slog.Info("explanation service enabled", "model", cfg.Explain.Model)
	} else {
		slog.Info("explanation service disabled: no API key configured")
	}

	// Compose top-level router: public decision routes + management routes.
	intentHandler := api.NewIntentHandler(pipe, explainer)
	catalogHandler := api.NewCatalogHandler(api.CatalogDeps{
		Store:      store,
		Token:      apiToken,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	})

	topRouter := chi.NewRouter()
	topRouter.Mount("/api/v1/catalog", catalogHandler)
	topRouter.Mount("/", intentHandler)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: topRouter,
	}

	// Start the import worker.
	pollInterval, err := time.ParseDuration(cfg.Ingest.PollInterval)
	if err != nil {
		slog.Warn("invalid ingest poll interval, using default 500ms", "value", cfg.Ingest.PollInterval, "error", err)
		pollInterval = 500 * time.Millisecond
	}
	checker := &ingest.HTTPAssetChecker{Client: &http.Client{Timeout: 10 * time.Second}}
	worker := ingest.NewWorker(store, checker, pollInterval)
	go worker.Run(ctx)

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:    store,
		Pipeline: pipe,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "akari listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("akari is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop akari (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to akari (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if cfg.Explain.APIKey != "" {
		printStatus("Explanations", "enabled (model %s)", cfg.Explain.Model)
	} else {
		printStatus("Explanations", "disabled (no API key)")
	}

	// Show product count if the server is running and a token is configured.
	if running && cfg.Server.APIToken != "" {
		apiC := &apiClient{baseURL: serverURL, token: cfg.Server.APIToken, httpClient: client}
		if productsResp, err := apiC.get(context.Background(), "/api/v1/catalog/products"); err == nil {
			var products []catalog.Product
			if decodeJSON(productsResp, &products) == nil {
				printStatus("Products", "%d", len(products))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
