package main

import (
	"math"
	"os"
	"os/signal"
	"syscall"

	"emubridge/internal/gioinput"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/io/system"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/unit"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const windowPointerKinds = pointer.Press | pointer.Release | pointer.Move | pointer.Drag |
	pointer.Scroll | pointer.Leave | pointer.Cancel

func newWindowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "window",
		Short: "Open a window that captures the pointer on click",
		Long: "Open a window acting as the input host. A primary click inside it captures\n" +
			"the pointer and hides the cursor; the release hotkey gives it back.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgMgr, err := loadConfig()
			if err != nil {
				return err
			}
			if err := requireHost("window", cfgMgr.Get()); err != nil {
				return err
			}

			host := gioinput.NewHost()
			s, err := newSession(cfgMgr, host)
			if err != nil {
				return err
			}

			w := new(app.Window)
			w.Option(app.Title("emubridge"), app.Size(unit.Dp(640), unit.Dp(480)))
			s.observe(func(bool) { w.Invalidate() })

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigs
				w.Perform(system.ActionClose)
			}()

			go func() {
				err := windowLoop(w, host, s)
				s.close()
				if err != nil {
					log.Error().Str("component", "window").Err(err).Msg("Window closed")
					os.Exit(1)
				}
				os.Exit(0)
			}()

			// gio needs the main goroutine on some platforms; Main never returns
			app.Main()
			return nil
		},
	}
}

func windowLoop(w *app.Window, host *gioinput.Host, s *session) error {
	adapter := gioinput.NewAdapter()
	tag := new(int)

	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			for {
				ev, ok := gtx.Event(
					pointer.Filter{
						Target:  tag,
						Kinds:   windowPointerKinds,
						ScrollY: pointer.ScrollRange{Min: math.MinInt32, Max: math.MaxInt32},
					},
					key.Filter{Optional: key.ModCtrl | key.ModShift | key.ModAlt | key.ModSuper},
				)
				if !ok {
					break
				}
				deliverWindowEvent(s, host, adapter, ev)
			}

			area := clip.Rect{Max: gtx.Constraints.Max}.Push(gtx.Ops)
			event.Op(gtx.Ops, tag)
			host.Cursor().Add(gtx.Ops)
			area.Pop()
			e.Frame(gtx.Ops)
		}
	}
}

// deliverWindowEvent feeds ev to the bridge. A primary click while released
// captures the pointer and is not forwarded.
func deliverWindowEvent(s *session, host *gioinput.Host, a *gioinput.Adapter, ev event.Event) {
	wasCaptured := s.bridge.Captured()
	host.Deliver(a, s.bridge, ev)

	if pe, ok := ev.(pointer.Event); ok && !wasCaptured &&
		pe.Kind == pointer.Press && pe.Buttons == pointer.ButtonPrimary {
		s.toggle("click")
	}
}
