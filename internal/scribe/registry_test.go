package scribe

import "testing"

func TestRegistry_CreateAndGet(t *testing.T) {
	r := NewRegistry()
	r.Create("abc")

	s, ok := r.Get("abc")
	if !ok {
		t.Fatal("expected session to exist")
	}
	if s.ID() != "abc" {
		t.Errorf("expected id abc, got %s", s.ID())
	}
	if s.Status() != StatusReady {
		t.Errorf("expected ready status, got %s", s.Status())
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("nope"); ok {
		t.Error("expected missing session")
	}
}

func TestRegistry_CreateResets(t *testing.T) {
	r := NewRegistry()
	first := r.Create("abc")
	first.updateTranscript("Speaker 1: Hello there")
	first.complete("note")

	second := r.Create("abc")
	if second == first {
		t.Error("expected a fresh session instance")
	}
	if second.Transcript() != "" {
		t.Errorf("expected empty transcript after reset, got %q", second.Transcript())
	}
	if second.Status() != StatusReady {
		t.Errorf("expected ready status after reset, got %s", second.Status())
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	r.Create("abc")
	r.Remove("abc")
	if _, ok := r.Get("abc"); ok {
		t.Error("expected session to be removed")
	}

	// Removing an absent id is a no-op
	r.Remove("abc")
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	r.Create("a")
	r.Create("b")

	got := r.List()
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	ids := map[string]bool{}
	for _, s := range got {
		ids[s.ID()] = true
	}
	if !ids["a"] || !ids["b"] {
		t.Errorf("expected sessions a and b, got %v", ids)
	}
}

func TestSession_LifecycleTransitions(t *testing.T) {
	s := newSession("x")

	s.setRecording(baseTime)
	if !s.IsRecording() || s.Status() != StatusRecording {
		t.Fatalf("expected recording state, got %s", s.Status())
	}

	s.updateTranscript("Speaker 1: Hello")
	s.beginProcessing("Speaker 1: Hello Speaker 2: Hi")
	if s.IsRecording() {
		t.Error("expected recording to stop")
	}
	if s.Status() != StatusProcessing {
		t.Errorf("expected processing status, got %s", s.Status())
	}
	if s.Transcript() != "Speaker 1: Hello Speaker 2: Hi" {
		t.Errorf("unexpected transcript %q", s.Transcript())
	}

	s.complete("SOAP")
	if s.Status() != StatusCompleted || s.SOAPNote() != "SOAP" {
		t.Errorf("expected completed with note, got %s %q", s.Status(), s.SOAPNote())
	}
}

func TestSession_BeginProcessingKeepsLiveTranscript(t *testing.T) {
	s := newSession("x")
	s.setRecording(baseTime)
	s.updateTranscript("Speaker 1: Hello")

	// An empty final transcript must not wipe what accumulated live
	s.beginProcessing("")
	if s.Transcript() != "Speaker 1: Hello" {
		t.Errorf("expected live transcript preserved, got %q", s.Transcript())
	}
}

func TestSession_FailPreservesTranscript(t *testing.T) {
	s := newSession("x")
	s.updateTranscript("Speaker 1: Hello")
	s.fail("boom")

	if s.Status() != StatusError {
		t.Errorf("expected error status, got %s", s.Status())
	}
	if s.Transcript() != "Speaker 1: Hello" {
		t.Errorf("expected transcript preserved, got %q", s.Transcript())
	}
	view := s.Snapshot()
	if view.ErrorMessage != "boom" {
		t.Errorf("expected error message in snapshot, got %q", view.ErrorMessage)
	}
}
