package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmlift/vmlift/internal/errx"
	"github.com/vmlift/vmlift/pkg/client"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the hypervisor's view of the VM",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().String("name", "micro-vm", "VM name")
	infoCmd.Flags().String("api-socket", "", "Control socket path (default: derived from name)")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	c := client.New(socketFor(cmd, name))

	resp, err := c.Get(cmd.Context(), "/api/v1/vm.info")
	if err != nil {
		return errx.Wrap(ErrRemoteCommand, err)
	}
	if payload, ok := resp.JSON(); ok {
		pretty, _ := json.MarshalIndent(payload, "", "  ")
		fmt.Println(string(pretty))
		return nil
	}
	fmt.Println(resp.Text())
	return nil
}
