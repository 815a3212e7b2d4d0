package escalate

import (
	"sync"
	"testing"
	"time"
)

func trackerAt(window time.Duration, threshold int, clock *time.Time) *Tracker {
	t := NewTracker(window, threshold)
	t.now = func() time.Time { return *clock }
	return t
}

func TestTrackerBelowThreshold(t *testing.T) {
	clock := time.Now()
	tr := trackerAt(60*time.Second, 3, &clock)

	tr.RecordDenial()
	tr.RecordBlock()
	if tr.ShouldEscalate() {
		t.Error("2 events must not reach threshold 3")
	}
	if tr.Count() != 2 {
		t.Errorf("count = %d, want 2", tr.Count())
	}
}

func TestTrackerReachesThreshold(t *testing.T) {
	clock := time.Now()
	tr := trackerAt(60*time.Second, 3, &clock)

	tr.RecordDenial()
	tr.RecordDenial()
	tr.RecordBlock()
	if !tr.ShouldEscalate() {
		t.Error("3 events in window must escalate")
	}
	// Read-only check: asking twice gives the same answer.
	if !tr.ShouldEscalate() {
		t.Error("ShouldEscalate must be idempotent")
	}
}

func TestTrackerWindowExpiry(t *testing.T) {
	clock := time.Now()
	tr := trackerAt(60*time.Second, 3, &clock)

	tr.RecordDenial()
	tr.RecordDenial()
	clock = clock.Add(61 * time.Second)
	tr.RecordDenial()
	if tr.ShouldEscalate() {
		t.Error("expired events must not count toward the threshold")
	}
	if tr.Count() != 1 {
		t.Errorf("count = %d, want 1 after expiry", tr.Count())
	}
}

func TestTrackerReset(t *testing.T) {
	clock := time.Now()
	tr := trackerAt(60*time.Second, 3, &clock)

	tr.RecordDenial()
	tr.RecordDenial()
	tr.RecordDenial()
	tr.Reset()
	if tr.ShouldEscalate() {
		t.Error("reset tracker must not escalate")
	}

	// A single post-reset refusal starts a fresh count.
	tr.RecordDenial()
	if tr.Count() != 1 {
		t.Errorf("count = %d, want 1 after reset", tr.Count())
	}
}

func TestTrackerDefaults(t *testing.T) {
	tr := NewTracker(0, 0)
	if tr.Window() != DefaultWindow {
		t.Errorf("window = %v, want %v", tr.Window(), DefaultWindow)
	}
	if tr.Threshold() != DefaultThreshold {
		t.Errorf("threshold = %d, want %d", tr.Threshold(), DefaultThreshold)
	}
}

func TestTrackerConcurrentRecords(t *testing.T) {
	tr := NewTracker(time.Minute, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				tr.RecordBlock()
			}
		}()
	}
	wg.Wait()

	if tr.Count() != 1000 {
		t.Errorf("count = %d, want 1000", tr.Count())
	}
}
