package progress

import (
	"strings"
	"sync/atomic"
	"time"
)

type Spinner struct {
	message string
	parts   []string

	value   atomic.Int64
	stopped atomic.Bool

	ticker *time.Ticker
}

func NewSpinner(message string) *Spinner {
	s := &Spinner{
		message: message,
		parts: []string{
			"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏",
		},
		ticker: time.NewTicker(100 * time.Millisecond),
	}
	go s.start()
	return s
}

func (s *Spinner) String() string {
	var sb strings.Builder
	if len(s.message) > 0 {
		sb.WriteString(strings.TrimSpace(s.message))
		sb.WriteString(" ")
	}

	if !s.stopped.Load() {
		sb.WriteString(s.parts[int(s.value.Load())%len(s.parts)])
		sb.WriteString(" ")
	}

	return sb.String()
}

func (s *Spinner) start() {
	defer s.ticker.Stop()
	for range s.ticker.C {
		if s.stopped.Load() {
			return
		}
		s.value.Add(1)
	}
}

func (s *Spinner) Stop() {
	s.stopped.Store(true)
}
