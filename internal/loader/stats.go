package loader

import (
	"sync"
	"time"
)

// FormatStats summarises decode timings for one file format.
type FormatStats struct {
	Count    int
	Failures int
	Total    time.Duration
	Max      time.Duration
}

// Average is the mean successful decode time.
func (s FormatStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

type timings struct {
	mu       sync.Mutex
	byFormat map[string]*FormatStats
}

func newTimings() *timings {
	return &timings{byFormat: make(map[string]*FormatStats)}
}

func (t *timings) record(format string, d time.Duration, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.byFormat[format]
	if s == nil {
		s = &FormatStats{}
		t.byFormat[format] = s
	}
	if failed {
		s.Failures++
		return
	}
	s.Count++
	s.Total += d
	if d > s.Max {
		s.Max = d
	}
}

func (t *timings) snapshot() map[string]FormatStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]FormatStats, len(t.byFormat))
	for format, s := range t.byFormat {
		out[format] = *s
	}
	return out
}

func (t *timings) fields() map[string]interface{} {
	fields := make(map[string]interface{})
	for format, s := range t.snapshot() {
		fields[format] = map[string]interface{}{
			"count":    s.Count,
			"failures": s.Failures,
			"avg_ms":   s.Average().Milliseconds(),
			"max_ms":   s.Max.Milliseconds(),
		}
	}
	return fields
}
