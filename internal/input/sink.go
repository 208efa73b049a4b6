package input

import "github.com/rs/zerolog/log"

// Dispatch delivers a translated event to sink
func Dispatch(sink Sink, ev Event) {
	switch e := ev.(type) {
	case KeyState:
		sink.OnKey(e.Code, e.Down)
	case MouseMove:
		sink.OnMouseMove(e.DX, e.DY, e.Wheel)
	case MouseButton:
		sink.OnMouseButton(e.Pressed, e.Mask)
	}
}

// MultiSink fans every event out to each sink in order
type MultiSink []Sink

func (m MultiSink) OnKey(code int, down bool) {
	for _, s := range m {
		s.OnKey(code, down)
	}
}

func (m MultiSink) OnMouseMove(dx, dy, wheel float32) {
	for _, s := range m {
		s.OnMouseMove(dx, dy, wheel)
	}
}

func (m MultiSink) OnMouseButton(pressed bool, mask int) {
	for _, s := range m {
		s.OnMouseButton(pressed, mask)
	}
}

// LogSink writes every translated event to the debug log
type LogSink struct{}

func (LogSink) OnKey(code int, down bool) {
	log.Debug().Str("component", "sink").Int("code", code).Bool("down", down).Msg("key")
}

func (LogSink) OnMouseMove(dx, dy, wheel float32) {
	log.Debug().Str("component", "sink").Float32("dx", dx).Float32("dy", dy).Float32("wheel", wheel).Msg("mouse move")
}

func (LogSink) OnMouseButton(pressed bool, mask int) {
	log.Debug().Str("component", "sink").Bool("pressed", pressed).Int("mask", mask).Msg("mouse button")
}
