package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmlift/vmlift/internal/errx"
	"github.com/vmlift/vmlift/pkg/client"
)

func init() {
	rootCmd.AddCommand(
		newPowerCommand("pause", "/api/v1/vm.pause", "Pause a running VM"),
		newPowerCommand("resume", "/api/v1/vm.resume", "Resume a paused VM"),
		newPowerCommand("reboot", "/api/v1/vm.reboot", "Reboot a running VM"),
	)
}

// newPowerCommand builds one single-endpoint PUT command. The power
// verbs differ only in their endpoint.
func newPowerCommand(verb, endpoint, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   verb,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			c := client.New(socketFor(cmd, name))

			if _, err := c.Put(cmd.Context(), endpoint, nil); err != nil {
				return errx.Wrap(ErrRemoteCommand, err)
			}
			fmt.Printf("%s: ok\n", verb)
			return nil
		},
	}
	cmd.Flags().String("name", "micro-vm", "VM name")
	cmd.Flags().String("api-socket", "", "Control socket path (default: derived from name)")
	return cmd
}
