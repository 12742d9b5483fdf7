package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmlift/vmlift/internal/errx"
	"github.com/vmlift/vmlift/pkg/api"
	"github.com/vmlift/vmlift/pkg/client"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Probe the VMM liveness endpoint",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

func init() {
	pingCmd.Flags().String("name", "micro-vm", "VM name")
	pingCmd.Flags().String("api-socket", "", "Control socket path (default: derived from name)")
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	c := client.New(socketFor(cmd, name))

	resp, err := c.Get(cmd.Context(), "/api/v1/vmm.ping")
	if err != nil {
		return errx.Wrap(ErrRemoteCommand, err)
	}

	var ping api.VmmPing
	if err := resp.Decode(&ping); err != nil {
		fmt.Println(resp.Text())
		return nil
	}
	fmt.Printf("vmm alive: version %s (pid %d)\n", ping.Version, ping.PID)
	return nil
}
