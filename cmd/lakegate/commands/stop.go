package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopPidFile string
	stopTimeout time.Duration
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the LakeGate server",
	Long: `Stop a LakeGate server running in daemon mode.

The server is sent SIGTERM and given time to finish in-flight share runs
before this command gives up and reports an error.

Examples:
  # Stop the server
  lakegate stop

  # Stop with a custom PID file
  lakegate stop --pid-file /var/run/lakegate.pid`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/lakegate/lakegate.pid)")
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 30*time.Second, "Time to wait for graceful shutdown")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := stopPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	pidData, err := os.ReadFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("LakeGate is not running (no PID file at %s)", pidPath)
		}
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return fmt.Errorf("invalid PID file %s: %w", pidPath, err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		// Process already gone, clean up the stale PID file
		_ = os.Remove(pidPath)
		return fmt.Errorf("LakeGate is not running (stale PID %d)", pid)
	}

	fmt.Printf("Stopping LakeGate (PID %d)...\n", pid)

	// Poll until the process exits or the timeout elapses
	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if err := process.Signal(syscall.Signal(0)); err != nil {
			_ = os.Remove(pidPath)
			fmt.Println("LakeGate stopped")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}

	return fmt.Errorf("LakeGate did not stop within %s (PID %d)", stopTimeout, pid)
}
