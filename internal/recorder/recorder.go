// Package recorder keeps the per-step result log of a workflow run and
// computes its summary.
package recorder

import (
	"encoding/json"
	"math"
	"sync"
	"time"
)

// Status is the outcome of one workflow step.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
)

// Entry is one recorded step. Entries are values; once appended they are
// never modified.
type Entry struct {
	Name       string    `json:"testName"`
	Status     Status    `json:"status"`
	StatusCode int       `json:"statusCode"`
	Response   string    `json:"response"`
	Validation string    `json:"validation"`
	Timestamp  time.Time `json:"timestamp"`
}

// Summary aggregates the recorded entries.
type Summary struct {
	Total       int `json:"total"`
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
	Errors      int `json:"errors"`
	SuccessRate int `json:"successRate"`
}

// Sink observes entries as they are recorded.
type Sink interface {
	Observe(e Entry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry)

func (f SinkFunc) Observe(e Entry) { f(e) }

// Recorder accumulates entries for a single run.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	sinks   []Sink
	now     func() time.Time
}

func New(sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks, now: time.Now}
}

// WithClock replaces the timestamp source. It is safe to call while other
// goroutines record.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
	return r
}

// Record appends an entry stamped with the current time and returns it.
// response is stored verbatim when it is a string or []byte, otherwise as
// indented JSON.
func (r *Recorder) Record(name string, status Status, statusCode int, response interface{}, validation string) Entry {
	e := Entry{
		Name:       name,
		Status:     status,
		StatusCode: statusCode,
		Response:   stringify(response),
		Validation: validation,
	}

	r.mu.Lock()
	e.Timestamp = r.now().UTC()
	r.entries = append(r.entries, e)
	sinks := r.sinks
	r.mu.Unlock()

	for _, s := range sinks {
		s.Observe(e)
	}
	return e
}

// Entries returns a copy of the recorded entries in order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Summarize counts entries by status. SuccessRate is round(100*passed/total)
// and 0 for an empty log.
func (r *Recorder) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return summarize(r.entries)
}

func summarize(entries []Entry) Summary {
	s := Summary{Total: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusError:
			s.Errors++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = int(math.Round(100 * float64(s.Passed) / float64(s.Total)))
	}
	return s
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case json.RawMessage:
		return string(t)
	case error:
		return t.Error()
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(b)
}
