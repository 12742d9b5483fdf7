package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vmlift/vmlift/pkg/state"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recorded VM runs",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().Bool("running", false, "Show only running VMs")
	viper.BindPFlag("list.running", listCmd.Flags().Lookup("running"))

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	running, _ := cmd.Flags().GetBool("running")

	mgr, err := openRegistry()
	if err != nil {
		return err
	}
	defer mgr.Close()

	recs, err := mgr.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tPID\tSOCKET\tSTARTED")
	for _, rec := range recs {
		if running && rec.Status != state.StatusRunning {
			continue
		}
		pid := "-"
		if rec.PID > 0 {
			pid = fmt.Sprintf("%d", rec.PID)
		}
		started := rec.StartedAt.Format("2006-01-02 15:04")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rec.Name, rec.Status, pid, rec.SocketPath, started)
	}
	return w.Flush()
}
