package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("yaegi", "go", "fs", "kernel-001")

	c.IncMessage("shell")
	c.IncMessage("shell")
	c.IncMessage("control")
	c.IncDecodeError()
	c.IncAuthError()
	c.IncAuthError()
	c.IncHeartbeat()
	c.IncIOPubPublished()
	c.IncIOPubPublished()
	c.IncIOPubPublished()
	c.IncExecution(true)
	c.IncExecution(true)
	c.IncExecution(false)
	c.IncTaskFailure()
	c.IncHistoryWrite(true)
	c.IncHistoryWrite(false)
	c.IncNotify(true)
	c.IncNotify(false)
	c.IncNotify(false)

	s := c.Snapshot()

	if s.MessagesReceived["shell"] != 2 {
		t.Errorf("MessagesReceived[shell] = %d, want 2", s.MessagesReceived["shell"])
	}
	if s.MessagesReceived["control"] != 1 {
		t.Errorf("MessagesReceived[control] = %d, want 1", s.MessagesReceived["control"])
	}
	if s.DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", s.DecodeErrors)
	}
	if s.AuthErrors != 2 {
		t.Errorf("AuthErrors = %d, want 2", s.AuthErrors)
	}
	if s.Heartbeats != 1 {
		t.Errorf("Heartbeats = %d, want 1", s.Heartbeats)
	}
	if s.IOPubPublished != 3 {
		t.Errorf("IOPubPublished = %d, want 3", s.IOPubPublished)
	}
	if s.ExecutionsOK != 2 {
		t.Errorf("ExecutionsOK = %d, want 2", s.ExecutionsOK)
	}
	if s.ExecutionsFailed != 1 {
		t.Errorf("ExecutionsFailed = %d, want 1", s.ExecutionsFailed)
	}
	if s.TaskFailures != 1 {
		t.Errorf("TaskFailures = %d, want 1", s.TaskFailures)
	}
	if s.HistoryWriteSuccess != 1 || s.HistoryWriteFailure != 1 {
		t.Errorf("HistoryWrite = %d/%d, want 1/1", s.HistoryWriteSuccess, s.HistoryWriteFailure)
	}
	if s.NotifySuccess != 1 || s.NotifyFailure != 2 {
		t.Errorf("Notify = %d/%d, want 1/2", s.NotifySuccess, s.NotifyFailure)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("process", "aiken", "s3", "kernel-42")
	s := c.Snapshot()

	if s.Engine != "process" {
		t.Errorf("Engine = %q, want %q", s.Engine, "process")
	}
	if s.Dialect != "aiken" {
		t.Errorf("Dialect = %q, want %q", s.Dialect, "aiken")
	}
	if s.HistoryBackend != "s3" {
		t.Errorf("HistoryBackend = %q, want %q", s.HistoryBackend, "s3")
	}
	if s.KernelID != "kernel-42" {
		t.Errorf("KernelID = %q, want %q", s.KernelID, "kernel-42")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("yaegi", "go", "none", "k")
	c.IncExecution(true)
	c.IncMessage("shell")

	s1 := c.Snapshot()

	c.IncExecution(true)
	c.IncMessage("shell")
	s1.MessagesReceived["injected"] = 1

	if s1.ExecutionsOK != 1 {
		t.Errorf("s1.ExecutionsOK = %d, want 1 (snapshot should be frozen)", s1.ExecutionsOK)
	}
	if s1.MessagesReceived["shell"] != 1 {
		t.Errorf("s1.MessagesReceived[shell] = %d, want 1", s1.MessagesReceived["shell"])
	}

	s2 := c.Snapshot()
	if s2.ExecutionsOK != 2 {
		t.Errorf("s2.ExecutionsOK = %d, want 2", s2.ExecutionsOK)
	}
	if _, exists := s2.MessagesReceived["injected"]; exists {
		t.Error("collector should be isolated from snapshot mutation")
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncMessage("shell")
	c.IncDecodeError()
	c.IncAuthError()
	c.IncHeartbeat()
	c.IncIOPubPublished()
	c.IncExecution(true)
	c.IncTaskFailure()
	c.IncHistoryWrite(false)
	c.IncNotify(true)

	s := c.Snapshot()
	if s.ExecutionsOK != 0 {
		t.Errorf("nil collector snapshot ExecutionsOK = %d, want 0", s.ExecutionsOK)
	}
	if s.MessagesReceived != nil {
		t.Errorf("nil collector snapshot MessagesReceived should be nil, got %v", s.MessagesReceived)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("yaegi", "go", "none", "k")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncMessage("shell")
				c.IncHeartbeat()
				c.IncIOPubPublished()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.MessagesReceived["shell"] != want {
		t.Errorf("MessagesReceived[shell] = %d, want %d", s.MessagesReceived["shell"], want)
	}
	if s.Heartbeats != want {
		t.Errorf("Heartbeats = %d, want %d", s.Heartbeats, want)
	}
	if s.IOPubPublished != want {
		t.Errorf("IOPubPublished = %d, want %d", s.IOPubPublished, want)
	}
}
