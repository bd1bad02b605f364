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

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chatlens/chatlens/internal/api"
	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/dashboard"
	"github.com/chatlens/chatlens/internal/ingest"
	"github.com/chatlens/chatlens/internal/insight"
	"github.com/chatlens/chatlens/internal/llm"
	"github.com/chatlens/chatlens/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the chatlens server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running chatlens server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show chatlens system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "chatlens.pid")
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
	fmt.Fprintf(os.Stderr, "chatlens version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(os.Getenv("CHATLENS_LOG_LEVEL"), "debug") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	token, err := config.LoadOrCreateToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("chatlens is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("chatlens is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage. The local SQLite database always exists: it backs the
	// import job queue and serves as the fallback record store when no
	// Postgres DSN is configured or the remote is unreachable.
	local, err := storage.OpenSQLite(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening local storage: %w", err)
	}
	defer func() {
		if err := local.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing local storage: %v\n", err)
		}
	}()

	store := storage.Open(cfg.Storage.DatabaseURL, local, logger)
	if pg, ok := store.(*storage.Postgres); ok {
		slog.Info("using Postgres record store")
		defer func() {
			if err := pg.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: closing Postgres: %v\n", err)
			}
		}()
	}

	// Build the analytics stack.
	state := dashboard.NewState(store, cfg.Server.PageSize)
	if err := state.Refresh(); err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	slog.Info("dashboard state loaded", "records", len(state.Records()))

	var providers []insight.Provider
	if cfg.Insight.APIKey != "" {
		providers = append(providers, llm.NewClient("openai", cfg.Insight.APIKey, cfg.Insight.BaseURL, cfg.Insight.Model))
		slog.Info("LLM insight provider configured")
	} else {
		slog.Info("no LLM API key, using rule-based insights only")
	}
	engine := insight.NewEngine(providers, cfg.Insight.Timeout, logger)
	importer := ingest.NewImporter(store, logger)

	deps := api.Deps{
		Store:    store,
		State:    state,
		Engine:   engine,
		Importer: importer,
		Jobs:     local,
		Token:    token,
		Logger:   logger,
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(deps),
	}

	mcpAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.MCPPort)
	mcpSrv := mcpserver.NewStreamableHTTPServer(api.NewMCPServer(deps))

	worker := ingest.NewWorker(local, importer, 500*time.Millisecond, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("chatlens listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("MCP server listening", "addr", mcpAddr)
		if err := mcpSrv.Start(mcpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	// Graceful shutdown with timeout once the context is cancelled, either
	// by signal or by a failing server goroutine.
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mcpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("MCP server shutdown", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
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
		printError("chatlens is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop chatlens (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to chatlens (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
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
	printStatus("MCP port", "%d", cfg.Server.MCPPort)

	if cfg.Storage.DatabaseURL != "" {
		printStatus("Record store", "Postgres")
	} else {
		printStatus("Record store", "SQLite (local)")
	}

	if cfg.Insight.APIKey != "" {
		model := cfg.Insight.Model
		if model == "" {
			model = "gpt-3.5-turbo"
		}
		printStatus("Insights", "LLM (%s) with rule fallback", model)
	} else {
		printStatus("Insights", "rule-based")
	}

	// Show the record count if the server is up.
	if token, tokenErr := config.LoadOrCreateToken(cfg.Storage.DataDir); tokenErr == nil && running {
		statsResp, err := apiGet(client, serverURL+"/stats", token)
		if err == nil {
			var stats struct {
				Summary struct {
					TotalRecords int `json:"total_records"`
				} `json:"summary"`
			}
			if statsResp.StatusCode == 404 {
				statsResp.Body.Close()
				printStatus("Records", "0")
			} else if decodeJSON(statsResp, &stats) == nil {
				printStatus("Records", "%d", stats.Summary.TotalRecords)
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
