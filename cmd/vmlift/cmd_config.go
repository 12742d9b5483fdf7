package main

import (
	"fmt"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/vmlift/vmlift/pkg/api"
	"github.com/vmlift/vmlift/pkg/vm"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and persist launch configurations",
}

var configRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the effective launch command line",
	Args:  cobra.NoArgs,
	RunE:  runConfigRender,
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the effective launch configuration to a file",
	Args:  cobra.NoArgs,
	RunE:  runConfigSave,
}

func init() {
	addLaunchFlags(configRenderCmd)
	configRenderCmd.Flags().String("ch-binary", vm.DefaultBinary, "Hypervisor binary")

	addLaunchFlags(configSaveCmd)
	configSaveCmd.Flags().String("output", "", "Destination path (default: /tmp/<name>-config.json)")

	configCmd.AddCommand(configRenderCmd, configSaveCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigRender(cmd *cobra.Command, args []string) error {
	name := vmName(cmd)
	cfg, err := buildLaunchConfig(cmd, name)
	if err != nil {
		return err
	}
	binary, _ := cmd.Flags().GetString("ch-binary")
	fmt.Println(shellquote.Join(append([]string{binary}, cfg.Args()...)...))
	return nil
}

func runConfigSave(cmd *cobra.Command, args []string) error {
	name := vmName(cmd)
	cfg, err := buildLaunchConfig(cmd, name)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = api.ConfigPathFor(name)
	}
	if err := cfg.Save(out); err != nil {
		return err
	}
	fmt.Printf("configuration saved to %s\n", out)
	return nil
}
