package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/pkg/config"
	"github.com/lakegate/lakegate/pkg/share/dispatch"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Execute a single share run and exit",
	Long: `Execute one share provisioning run and exit.

This is the entrypoint launched by the subprocess dispatcher. The handler
name and share URI are read from the ` + dispatch.EnvHandler + ` and
` + dispatch.EnvShareURI + ` environment variables. It is not meant to be
invoked by hand, but doing so is harmless: the run is the same one the
server would execute in-process with the local dispatcher.`,
	Hidden: true,
	RunE:   runWorkerCmd,
}

func runWorkerCmd(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// SIGTERM cancels the run; the advisory lock lease makes a killed
	// worker's share stealable after the TTL
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := dispatch.RunWorker(ctx, rt.Handlers); err != nil {
		logger.Error("share run failed", logger.KeyError, err.Error())
		return err
	}
	return nil
}
