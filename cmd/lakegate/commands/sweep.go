package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lakegate/lakegate/pkg/config"
	"github.com/lakegate/lakegate/pkg/share/dispatch"
	"github.com/lakegate/lakegate/pkg/share/tasks"
)

// The sweep commands run a single pass of a background task and exit.
// They exist for cron-style deployments where the server runs with the
// periodic sweeps disabled.

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run one verification sweep",
	Long: `Run one verification sweep and exit.

Every share with successfully applied items gets a verification run that
re-checks the grants against the backing AWS accounts and marks items
healthy or unhealthy.

Examples:
  # One-shot verification, e.g. from cron
  lakegate verify --config /etc/lakegate/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSweep("verification", func(ctx context.Context, rt *runtime) (int, error) {
			return tasks.NewVerifier(rt.Store, rt.Dispatcher, 0).RunOnce(ctx)
		})
	},
}

var reapplyCmd = &cobra.Command{
	Use:   "reapply",
	Short: "Run one re-apply sweep",
	Long: `Run one re-apply sweep and exit.

Every share holding unhealthy items gets a re-apply run that issues the
grants again. Healthy shares are left untouched.

Examples:
  lakegate reapply --config /etc/lakegate/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSweep("re-apply", func(ctx context.Context, rt *runtime) (int, error) {
			return tasks.NewReapplier(rt.Store, rt.Dispatcher, 0).RunOnce(ctx)
		})
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run one expiry sweep",
	Long: `Run one expiry sweep and exit.

Every share past its expiry date is sent to revocation.

Examples:
  lakegate expire --config /etc/lakegate/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSweep("expiry", func(ctx context.Context, rt *runtime) (int, error) {
			return tasks.NewExpirer(rt.Service, 0).RunOnce(ctx)
		})
	},
}

func runSweep(name string, sweep func(ctx context.Context, rt *runtime) (int, error)) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	count, err := sweep(ctx, rt)
	if err != nil {
		return fmt.Errorf("%s sweep failed: %w", name, err)
	}

	// With the local dispatcher the runs happen in-process; wait for them
	// so the process does not exit mid-run
	if local, ok := rt.Dispatcher.(*dispatch.LocalDispatcher); ok {
		local.Wait()
	}

	fmt.Printf("%s sweep complete: %d shares processed\n", name, count)
	return nil
}
