package icmpdaemon

import "github.com/netvigil/tnmcore/pkg/probe"

// window tracks the global in-flight counter: the
// daemon admits new jobs only while fewer than the effective window size
// are in flight, where the effective size is the smallest of the
// request's own window and probe.DaemonMaxInFlight.
type window struct {
	limit   int
	current int
}

func newWindow(requestWindow uint16) *window {
	req := probe.Request{Window: requestWindow}
	return &window{limit: req.EffectiveWindow()}
}

func (w *window) canAdmit() bool {
	return w.current < w.limit
}

func (w *window) admit() {
	w.current++
}

func (w *window) release() {
	if w.current > 0 {
		w.current--
	}
}
