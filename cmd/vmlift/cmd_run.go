package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vmlift/vmlift/internal/errx"
	"github.com/vmlift/vmlift/pkg/events"
	"github.com/vmlift/vmlift/pkg/state"
	"github.com/vmlift/vmlift/pkg/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Launch a micro VM and supervise it until it exits",
	Long: `Launch a cloud-hypervisor micro VM and supervise it.

The effective launch configuration is built from the defaults, then an
optional --config file, then any launch flags (last write wins). The VM
is stopped gracefully on SIGINT/SIGTERM.`,
	Example: `  vmlift run --name micro-vm --memory size=512M --cpus boot=2,max=4
  vmlift run --config /tmp/micro-vm-config.json
  vmlift run --kernel ./vmlinux --disk ./rootfs.img --disk ./data.img:ro`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	addLaunchFlags(runCmd)
	runCmd.Flags().String("ch-binary", vm.DefaultBinary, "Hypervisor binary to spawn")
	runCmd.Flags().Duration("ready-timeout", vm.DefaultReadyTimeout, "Wait for the control socket after spawn")
	runCmd.Flags().Duration("shutdown-timeout", vm.DefaultShutdownTimeout, "Wait for graceful shutdown before forcing termination")
	runCmd.Flags().String("event-log", "", "Append lifecycle events to a JSON-L file")

	viper.BindPFlag("run.ch-binary", runCmd.Flags().Lookup("ch-binary"))
	viper.BindPFlag("run.ready-timeout", runCmd.Flags().Lookup("ready-timeout"))
	viper.BindPFlag("run.shutdown-timeout", runCmd.Flags().Lookup("shutdown-timeout"))
	viper.BindPFlag("run.event-log", runCmd.Flags().Lookup("event-log"))

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	name := vmName(cmd)
	cfg, err := buildLaunchConfig(cmd, name)
	if err != nil {
		return err
	}

	binary, _ := cmd.Flags().GetString("ch-binary")
	readyTimeout, _ := cmd.Flags().GetDuration("ready-timeout")
	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

	opts := []vm.Option{
		vm.WithBinary(binary),
		vm.WithReadyTimeout(readyTimeout),
		vm.WithShutdownTimeout(shutdownTimeout),
	}

	mgr, err := openRegistry()
	if err != nil {
		slog.Warn("run registry unavailable", "error", err)
	} else {
		defer mgr.Close()
		opts = append(opts, vm.WithRegistry(mgr))
	}

	if eventLog, _ := cmd.Flags().GetString("event-log"); eventLog != "" {
		sink, err := events.NewJSONLWriter(eventLog)
		if err != nil {
			return errx.Wrap(ErrOpenEventLog, err)
		}
		journal := events.NewJournal(name, sink)
		defer journal.Close()
		opts = append(opts, vm.WithJournal(journal))
	}

	c := vm.New(name, cfg, opts...)
	if err := c.Start(cmd.Context()); err != nil {
		dumpCrashLogs(c)
		return errx.Wrap(ErrStartVM, err)
	}
	fmt.Printf("VM %s started (pid %d, socket %s)\n", c.Name(), c.PID(), c.SocketPath())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		slog.Info("signal received, stopping VM", "signal", sig.String())
	case <-c.Done():
		slog.Warn("VM process exited", "name", c.Name())
		dumpCrashLogs(c)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*shutdownTimeout)
	defer cancel()
	if err := c.Stop(stopCtx); err != nil {
		return errx.Wrap(ErrStopVM, err)
	}
	fmt.Printf("VM %s stopped\n", c.Name())
	return nil
}

// dumpCrashLogs surfaces captured hypervisor output after an abnormal
// exit or a failed start.
func dumpCrashLogs(c *vm.Controller) {
	logs, err := c.Logs()
	if err != nil {
		return
	}
	if out := strings.TrimSpace(logs.Stderr); out != "" {
		fmt.Fprintln(os.Stderr, out)
	}
}

func openRegistry() (*state.Manager, error) {
	mgr, err := state.NewManager()
	if err != nil {
		return nil, errx.Wrap(ErrOpenRegistry, err)
	}
	return mgr, nil
}
