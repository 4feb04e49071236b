package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/pkg/config"
	"github.com/lakegate/lakegate/pkg/metrics"
	"github.com/lakegate/lakegate/pkg/share/awsclients"
	"github.com/lakegate/lakegate/pkg/share/dispatch"
	"github.com/lakegate/lakegate/pkg/share/processor"
	"github.com/lakegate/lakegate/pkg/share/processor/bucket"
	"github.com/lakegate/lakegate/pkg/share/processor/catalog"
	"github.com/lakegate/lakegate/pkg/share/service"
	"github.com/lakegate/lakegate/pkg/share/store"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// runtime bundles the wired components every server-side command needs.
type runtime struct {
	Store      *store.GORMStore
	Service    *service.Service
	Handlers   *dispatch.Registry
	Dispatcher dispatch.Dispatcher
}

// Close releases the database connection.
func (r *runtime) Close() {
	if err := r.Store.Close(); err != nil {
		logger.Error("store close error", logger.KeyError, err.Error())
	}
}

// buildRuntime wires the store, processors, dispatcher and sharing service
// from configuration. The same wiring serves the API server, the worker
// entrypoint and the one-shot sweep commands.
func buildRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	st, err := store.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	clients, err := awsclients.NewSTSFactory(ctx)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize AWS clients: %w", err)
	}

	procRegistry := processor.NewRegistry()
	for _, p := range []processor.Processor{catalog.New(clients), bucket.New(clients)} {
		if err := procRegistry.Register(p); err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	procRegistry.Seal()

	handlers := dispatch.NewRegistry()

	var dispatcher dispatch.Dispatcher
	switch cfg.Dispatcher.Mode {
	case "subprocess":
		dispatcher, err = dispatch.NewSubprocessDispatcher()
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	default:
		dispatcher = dispatch.NewLocalDispatcher(handlers)
	}

	svc := service.New(st, procRegistry, dispatcher, cfg.Service,
		service.WithMetrics(metrics.NewShareMetrics()))
	svc.RegisterHandlers(handlers)

	return &runtime{
		Store:      st,
		Service:    svc,
		Handlers:   handlers,
		Dispatcher: dispatcher,
	}, nil
}

// GetDefaultStateDir returns the default state directory path.
func GetDefaultStateDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "/tmp"
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateDir, "lakegate")
}

// GetDefaultPidFile returns the default PID file path.
func GetDefaultPidFile() string {
	return filepath.Join(GetDefaultStateDir(), "lakegate.pid")
}

// GetDefaultLogFile returns the default log file path for daemon mode.
func GetDefaultLogFile() string {
	return filepath.Join(GetDefaultStateDir(), "lakegate.log")
}
