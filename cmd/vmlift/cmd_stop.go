package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmlift/vmlift/internal/errx"
	"github.com/vmlift/vmlift/pkg/client"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Request a graceful shutdown of a running VM",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().String("name", "micro-vm", "VM name")
	stopCmd.Flags().String("api-socket", "", "Control socket path (default: derived from name)")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	c := client.New(socketFor(cmd, name))

	if _, err := c.Put(cmd.Context(), "/api/v1/vm.shutdown", nil); err != nil {
		return errx.Wrap(ErrRemoteCommand, err)
	}
	fmt.Printf("shutdown requested for %s\n", name)
	return nil
}
