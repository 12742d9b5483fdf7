package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmlift/vmlift/pkg/api"
)

func newLaunchFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test", Run: func(cmd *cobra.Command, args []string) {}}
	addLaunchFlags(cmd)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return cmd
}

func TestParseDiskSpec(t *testing.T) {
	spec, err := parseDiskSpec("./rootfs.img")
	require.NoError(t, err)
	assert.Equal(t, api.DiskSpec{Path: "./rootfs.img"}, spec)

	spec, err = parseDiskSpec("/var/lib/vm/data.img:ro")
	require.NoError(t, err)
	assert.True(t, spec.Readonly)

	spec, err = parseDiskSpec("/var/lib/vm/data.img:ro:direct")
	require.NoError(t, err)
	assert.True(t, spec.Readonly)
	assert.True(t, spec.Direct)

	_, err = parseDiskSpec(":ro")
	assert.True(t, errors.Is(err, ErrInvalidDisk))

	_, err = parseDiskSpec("disk.img:bogus")
	assert.True(t, errors.Is(err, ErrInvalidDisk))
}

func TestBuildLaunchConfigFlagsOverrideDefaults(t *testing.T) {
	cmd := newLaunchFlagCommand(t,
		"--memory", "size=1G",
		"--disk", "./root.img",
		"--disk", "./data.img:ro",
	)

	cfg, err := buildLaunchConfig(cmd, "test-vm")
	require.NoError(t, err)

	args := cfg.Args()
	assert.Contains(t, args, "size=1G")
	assert.Contains(t, args, "path=./root.img")
	assert.Contains(t, args, "path=./data.img,readonly=on")
	// Untouched parameters keep their defaults.
	assert.Contains(t, args, "./vmlinux")
}

func TestBuildLaunchConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	saved := api.DefaultLaunchConfig("test-vm")
	saved.Update(&api.LaunchConfig{Memory: "size=512M", CPUs: "boot=4"})
	require.NoError(t, saved.Save(path))

	cmd := newLaunchFlagCommand(t, "--config", path, "--memory", "size=2G")

	cfg, err := buildLaunchConfig(cmd, "test-vm")
	require.NoError(t, err)

	args := cfg.Args()
	assert.Contains(t, args, "size=2G", "flag wins over file")
	assert.Contains(t, args, "boot=4", "file wins over default")
}

func TestBuildLaunchConfigMissingFileKeepsDefaults(t *testing.T) {
	cmd := newLaunchFlagCommand(t, "--config", filepath.Join(t.TempDir(), "nope.json"))

	cfg, err := buildLaunchConfig(cmd, "test-vm")
	require.NoError(t, err)
	assert.Equal(t, api.DefaultLaunchConfig("test-vm").Args(), cfg.Args())
}

func TestVMNameDefaultsToRandom(t *testing.T) {
	cmd := newLaunchFlagCommand(t)
	name := vmName(cmd)
	assert.NotEmpty(t, name)

	cmd = newLaunchFlagCommand(t, "--name", "micro-vm")
	assert.Equal(t, "micro-vm", vmName(cmd))
}
