package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"emubridge/internal/network"
	"emubridge/internal/protocol"

	"github.com/spf13/cobra"
)

var errHostRejected = errors.New("host rejected request")

func newCtlCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Control a running host over its WebSocket API",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "", "host API address (default 127.0.0.1:<api_port>)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the host")

	request := func(typ protocol.MessageType) *cobra.Command {
		return &cobra.Command{
			Use:   string(typ),
			Short: fmt.Sprintf("Ask the host to %s the pointer", typ),
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCtl(cmd, addr, timeout, typ)
			},
		}
	}
	cmd.AddCommand(request(protocol.TypeCapture))
	cmd.AddCommand(request(protocol.TypeUncapture))
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the host's capture state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCtl(cmd, addr, timeout, "")
		},
	})
	cmd.AddCommand(newDiscoverCmd(&timeout))
	return cmd
}

func newDiscoverCmd(timeout *time.Duration) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan the local /24 for running hosts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgMgr, err := loadConfig()
			if err != nil {
				return err
			}
			cfg := cfgMgr.Get()
			if port == 0 {
				port = cfg.Network.APIPort
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			defer cancel()

			hosts, err := network.ScanLAN(ctx, port, cfg.Network.APIToken)
			if err != nil {
				return err
			}
			if len(hosts) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no hosts found")
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tSTATE")
			for _, h := range hosts {
				state := "released"
				switch {
				case !h.Authorized:
					state = "unauthorized"
				case h.Captured:
					state = "captured"
				}
				fmt.Fprintf(w, "%s:%d\t%s\n", h.IP, h.Port, state)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "API port to probe (default api_port)")
	return cmd
}

// runCtl connects, optionally sends one request and prints the first state
// that answers it
func runCtl(cmd *cobra.Command, addr string, timeout time.Duration, typ protocol.MessageType) error {
	cfgMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := cfgMgr.Get()
	if addr == "" {
		addr = fmt.Sprintf("127.0.0.1:%d", cfg.Network.APIPort)
	}

	states := make(chan bool, 4)
	failures := make(chan string, 1)

	client := network.NewWSClient(addr, cfg.Network.APIToken)
	client.OnState = func(captured bool) { states <- captured }
	client.OnError = func(_ protocol.MessageType, msg string) {
		select {
		case failures <- msg:
		default:
		}
	}
	client.Start()
	defer client.Close()

	deadline := time.After(timeout)

	// The host greets every client with its current state
	select {
	case captured := <-states:
		if typ == "" || captured == (typ == protocol.TypeCapture) {
			return printState(cmd, captured)
		}
	case <-deadline:
		return noAnswer(client, addr)
	}

	switch typ {
	case protocol.TypeCapture:
		client.RequestCapture()
	case protocol.TypeUncapture:
		client.RequestUncapture()
	}

	select {
	case msg := <-failures:
		return fmt.Errorf("%w: %s", errHostRejected, msg)
	case captured := <-states:
		// a rejection is always sent before the state that follows it
		select {
		case msg := <-failures:
			return fmt.Errorf("%w: %s", errHostRejected, msg)
		default:
		}
		return printState(cmd, captured)
	case <-deadline:
		return noAnswer(client, addr)
	}
}

func noAnswer(client *network.WSClient, addr string) error {
	if !client.IsConnected() {
		return fmt.Errorf("cannot connect to %s", addr)
	}
	return fmt.Errorf("no answer from %s", addr)
}

func printState(cmd *cobra.Command, captured bool) error {
	state := "released"
	if captured {
		state = "captured"
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), state)
	return err
}
