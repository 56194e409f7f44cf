package watch

import (
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"
)

func TestDebouncer_SingleEvent(t *testing.T) {
	var (
		mu     sync.Mutex
		result []string
	)

	d := NewDebouncer(50*time.Millisecond, func(paths []string) {
		mu.Lock()
		result = paths
		mu.Unlock()
	})
	defer d.Stop()

	d.Add("reactive/charm.py")

	// Wait for debounce window to expire
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(result) != 1 || result[0] != "reactive/charm.py" {
		t.Errorf("expected [reactive/charm.py], got %v", result)
	}
}

func TestDebouncer_MultipleEvents(t *testing.T) {
	var (
		mu     sync.Mutex
		result []string
	)

	d := NewDebouncer(100*time.Millisecond, func(paths []string) {
		mu.Lock()
		result = paths
		mu.Unlock()
	})
	defer d.Stop()

	// Add multiple paths rapidly
	d.Add("metadata.yaml")
	time.Sleep(20 * time.Millisecond)
	d.Add("layer.yaml")
	time.Sleep(20 * time.Millisecond)
	d.Add("reactive/charm.py")

	// Wait for debounce window to expire
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	slices.Sort(result)
	expected := []string{"layer.yaml", "metadata.yaml", "reactive/charm.py"}
	if !slices.Equal(result, expected) {
		t.Errorf("expected %v, got %v", expected, result)
	}
}

func TestDebouncer_Deduplication(t *testing.T) {
	var (
		mu     sync.Mutex
		result []string
	)

	d := NewDebouncer(50*time.Millisecond, func(paths []string) {
		mu.Lock()
		result = paths
		mu.Unlock()
	})
	defer d.Stop()

	// Same path saved three times in a row
	d.Add("metadata.yaml")
	d.Add("metadata.yaml")
	d.Add("metadata.yaml")

	// Wait for debounce window to expire
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(result) != 1 || result[0] != "metadata.yaml" {
		t.Errorf("expected single [metadata.yaml], got %v", result)
	}
}

func TestDebouncer_ResetOnNewEvent(t *testing.T) {
	var (
		mu        sync.Mutex
		callCount int
	)

	d := NewDebouncer(50*time.Millisecond, func(paths []string) {
		mu.Lock()
		callCount++
		mu.Unlock()
	})
	defer d.Stop()

	// Add event, wait partial window, add another
	d.Add("metadata.yaml")
	time.Sleep(30 * time.Millisecond)
	d.Add("layer.yaml")
	time.Sleep(30 * time.Millisecond)
	d.Add("reactive/charm.py")

	// Wait for final debounce
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	// Should only have flushed once
	if callCount != 1 {
		t.Errorf("expected 1 flush, got %d", callCount)
	}
}

func TestDebouncer_FlushNow(t *testing.T) {
	var (
		mu     sync.Mutex
		result []string
	)

	d := NewDebouncer(1*time.Second, func(paths []string) {
		mu.Lock()
		result = paths
		mu.Unlock()
	})

	d.Add("metadata.yaml")
	d.Add("layer.yaml")

	// Flush immediately without waiting for timer
	d.FlushNow()

	mu.Lock()
	defer mu.Unlock()

	if len(result) != 2 {
		t.Errorf("expected 2 paths, got %d", len(result))
	}
}

func TestDebouncer_Stop(t *testing.T) {
	var (
		mu     sync.Mutex
		result []string
	)

	d := NewDebouncer(1*time.Second, func(paths []string) {
		mu.Lock()
		result = paths
		mu.Unlock()
	})

	d.Add("metadata.yaml")
	d.Stop()

	mu.Lock()
	defer mu.Unlock()

	// Stop should flush pending
	if len(result) != 1 || result[0] != "metadata.yaml" {
		t.Errorf("expected [metadata.yaml], got %v", result)
	}
}

func TestDebouncer_StopIgnoresNewEvents(t *testing.T) {
	var (
		mu        sync.Mutex
		callCount int
	)

	d := NewDebouncer(50*time.Millisecond, func(paths []string) {
		mu.Lock()
		callCount++
		mu.Unlock()
	})

	d.Add("metadata.yaml")
	d.Stop()

	// Adding after stop should be ignored
	d.Add("layer.yaml")

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestDebouncer_PendingCount(t *testing.T) {
	d := NewDebouncer(1*time.Second, func(paths []string) {})
	defer d.Stop()

	if count := d.PendingCount(); count != 0 {
		t.Errorf("expected 0 pending, got %d", count)
	}

	d.Add("metadata.yaml")
	d.Add("layer.yaml")
	d.Add("metadata.yaml") // duplicate

	if count := d.PendingCount(); count != 2 {
		t.Errorf("expected 2 pending, got %d", count)
	}
}

func TestDebouncer_MaxPendingLimit(t *testing.T) {
	var (
		mu        sync.Mutex
		callCount int
	)

	d := NewDebouncer(1*time.Second, func(paths []string) {
		mu.Lock()
		callCount++
		mu.Unlock()
	})
	defer d.Stop()

	// Add more than MaxPendingPaths paths
	for i := 0; i < MaxPendingPaths+10; i++ {
		d.Add(fmt.Sprintf("file%d.py", i))
	}

	// Should have flushed immediately when the limit was reached
	mu.Lock()
	defer mu.Unlock()

	if callCount < 1 {
		t.Errorf("expected at least 1 flush due to limit, got %d", callCount)
	}
}
