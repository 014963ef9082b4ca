package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncAndSnapshot(t *testing.T) {
	c := NewCollector()
	c.Inc(CommandsSubmitted)
	c.Inc(CommandsSubmitted)
	c.Inc(TransportFailures)

	snap := c.Snapshot()
	if snap[CommandsSubmitted] != 2 {
		t.Errorf("commands_submitted = %d", snap[CommandsSubmitted])
	}
	if snap[TransportFailures] != 1 {
		t.Errorf("transport_failures = %d", snap[TransportFailures])
	}
}

func TestCollector_ConcurrentInc(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc(VoiceSessions)
		}()
	}
	wg.Wait()

	if got := c.Counter(VoiceSessions).Value(); got != 50 {
		t.Errorf("voice_sessions = %d, want 50", got)
	}
}

func TestCollector_NamesSorted(t *testing.T) {
	c := NewCollector()
	c.Inc("zeta")
	c.Inc("alpha")
	c.Inc("mid")

	names := c.Names()
	if len(names) != 3 || names[0] != "alpha" || names[2] != "zeta" {
		t.Errorf("names = %v", names)
	}
}
