// Package metrics provides a lightweight in-process counter collector for
// the interaction engine, exposed through the session snapshot and the
// status command.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Well-known counter names.
const (
	CommandsSubmitted     = "commands_submitted"
	TransportFailures     = "transport_failures"
	RepliesSpoken         = "replies_spoken"
	SpeakFailures         = "speak_failures"
	VoiceSessions         = "voice_sessions"
	VoiceErrors           = "voice_errors"
	ConfirmationsResolved = "confirmations_resolved"
	ConfirmationReprompts = "confirmation_reprompts"
)

// Collector aggregates named counters.
type Collector struct {
	counters  sync.Map // name -> *Counter
	startTime time.Time
}

func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	value atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Counter returns (creating if needed) the counter with the given name.
func (c *Collector) Counter(name string) *Counter {
	if v, ok := c.counters.Load(name); ok {
		return v.(*Counter)
	}
	v, _ := c.counters.LoadOrStore(name, &Counter{})
	return v.(*Counter)
}

// Inc increments the named counter by 1.
func (c *Collector) Inc(name string) {
	c.Counter(name).Inc()
}

// Snapshot returns all counter values keyed by name.
func (c *Collector) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	c.counters.Range(func(k, v any) bool {
		out[k.(string)] = v.(*Counter).Value()
		return true
	})
	return out
}

// Names returns the sorted counter names, for stable status output.
func (c *Collector) Names() []string {
	var names []string
	c.counters.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}
