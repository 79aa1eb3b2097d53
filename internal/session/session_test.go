package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetOrCreate_Idempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "session"))

	first, err := s.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if first == "" {
		t.Fatal("GetOrCreate() returned empty id")
	}
	second, err := s.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if first != second {
		t.Errorf("second GetOrCreate() = %q, want %q", second, first)
	}
}

func TestGetOrCreate_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session")
	id, err := New(path).GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	reopened, err := New(path).GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if reopened != id {
		t.Errorf("reopened id = %q, want %q", reopened, id)
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	s := New(path)

	id, err := s.Rotate()
	if err != nil {
		t.Fatalf("Rotate() error: %v", err)
	}
	got, err := s.Current()
	if err != nil || got != id {
		t.Fatalf("Current() = %q, %v, want %q", got, err, id)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("session file still present after Clear()")
	}
	got, _ = s.Current()
	if got != "" {
		t.Errorf("Current() after Clear() = %q, want empty", got)
	}
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear() error: %v", err)
	}

	fresh, err := s.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if fresh == id {
		t.Error("GetOrCreate() after Clear() reused the cleared id")
	}
}

func TestInMemory(t *testing.T) {
	s := New("")
	s.newID = func() string { return "fixed" }

	id, err := s.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if id != "fixed" {
		t.Errorf("GetOrCreate() = %q, want %q", id, "fixed")
	}
}

func TestRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	s := New(path)
	first, err := s.GetOrCreate()
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}

	rotated, err := s.Rotate()
	if err != nil {
		t.Fatalf("Rotate() error: %v", err)
	}
	if rotated == first {
		t.Error("Rotate() kept the old id")
	}
	got, _ := New(path).Current()
	if got != rotated {
		t.Errorf("persisted id = %q, want %q", got, rotated)
	}
}
