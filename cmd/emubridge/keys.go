package main

import (
	"fmt"
	"text/tabwriter"

	"emubridge/internal/keymap"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List key names usable in capture.release_hotkey",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tANDROID\tEVDEV\tSCAN")
			for _, k := range keymap.Keys() {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", k.Name, k.Android, k.Evdev, k.Scan)
			}
			fmt.Fprintln(w, "Mouse1-Mouse5\t\t\t")
			return w.Flush()
		},
	}
}
