package main

import (
	"fmt"
	"text/tabwriter"

	"emubridge/internal/device"

	"github.com/spf13/cobra"
)

func newDevicesCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List evdev keyboards and mice",
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := device.ScanDir(dir)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tPATH\tNAME")
			for _, d := range devices {
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Type, d.Path, d.Name)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&dir, "dir", device.ByIDDir, "directory of by-id device links")
	return cmd
}
