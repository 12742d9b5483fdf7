package main

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmlift/vmlift/internal/errx"
	"github.com/vmlift/vmlift/pkg/api"
	"github.com/vmlift/vmlift/pkg/state"
)

// addLaunchFlags registers the launch-parameter flags shared by run
// and config.
func addLaunchFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "VM name (default: random vm-<id>)")
	cmd.Flags().String("config", "", "Load launch configuration from a JSON file")
	cmd.Flags().String("kernel", "", "Kernel image path")
	cmd.Flags().StringSlice("disk", nil, "Disk image (path[:ro][:direct], can be repeated)")
	cmd.Flags().String("cmdline", "", "Kernel command line")
	cmd.Flags().String("cpus", "", "CPU configuration (e.g. boot=2,max=4)")
	cmd.Flags().String("memory", "", "Memory configuration (e.g. size=512M)")
	cmd.Flags().String("serial", "", "Serial mode")
	cmd.Flags().String("console", "", "Console mode")
	cmd.Flags().String("api-socket", "", "Control socket path")
}

// parseDiskSpec parses "path[:ro][:direct]".
func parseDiskSpec(raw string) (api.DiskSpec, error) {
	parts := strings.Split(raw, ":")
	if parts[0] == "" {
		return api.DiskSpec{}, errx.With(ErrInvalidDisk, ": %q", raw)
	}
	spec := api.DiskSpec{Path: parts[0]}
	for _, opt := range parts[1:] {
		switch opt {
		case "ro", "readonly":
			spec.Readonly = true
		case "direct":
			spec.Direct = true
		default:
			return api.DiskSpec{}, errx.With(ErrInvalidDisk, ": unknown option %q in %q", opt, raw)
		}
	}
	return spec, nil
}

// launchPatchFromFlags builds a partial launch configuration out of
// the flags that were set.
func launchPatchFromFlags(cmd *cobra.Command) (*api.LaunchConfig, error) {
	patch := &api.LaunchConfig{}
	patch.Kernel, _ = cmd.Flags().GetString("kernel")
	patch.Cmdline, _ = cmd.Flags().GetString("cmdline")
	patch.CPUs, _ = cmd.Flags().GetString("cpus")
	patch.Memory, _ = cmd.Flags().GetString("memory")
	patch.Serial, _ = cmd.Flags().GetString("serial")
	patch.Console, _ = cmd.Flags().GetString("console")
	patch.APISocket, _ = cmd.Flags().GetString("api-socket")

	disks, _ := cmd.Flags().GetStringSlice("disk")
	for _, raw := range disks {
		spec, err := parseDiskSpec(raw)
		if err != nil {
			return nil, err
		}
		patch.Disks = append(patch.Disks, spec)
	}
	return patch, nil
}

// buildLaunchConfig assembles the effective configuration: defaults,
// then the optional config file, then flag patches (last write wins).
// A missing config file keeps the defaults, matching the store's
// recoverable not-found contract.
func buildLaunchConfig(cmd *cobra.Command, name string) (*api.LaunchConfig, error) {
	cfg := api.DefaultLaunchConfig(name)

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := cfg.Load(path); err != nil {
			if !errors.Is(err, api.ErrConfigNotFound) {
				return nil, errx.Wrap(ErrLoadConfig, err)
			}
			slog.Warn("config file not found, using defaults", "path", path)
		}
	}

	patch, err := launchPatchFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	cfg.Update(patch)
	return cfg, nil
}

// vmName resolves the --name flag, defaulting to a random name.
func vmName(cmd *cobra.Command) string {
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = api.NewVMName()
	}
	return name
}

// socketFor resolves the control socket for a named VM: an explicit
// --api-socket wins, then the registry record, then the conventional
// default path.
func socketFor(cmd *cobra.Command, name string) string {
	if sock, _ := cmd.Flags().GetString("api-socket"); sock != "" {
		return sock
	}
	if mgr, err := state.NewManager(); err == nil {
		defer mgr.Close()
		if rec, err := mgr.Get(name); err == nil && rec.SocketPath != "" {
			return rec.SocketPath
		}
	}
	return api.SocketPathFor(name)
}
