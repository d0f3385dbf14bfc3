package resumable

import "testing"

func TestStore_SaveAndResume(t *testing.T) {
	var s Store
	s.Save("k", "etag-1", []byte("hello"))

	if got := s.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}

	e, ok := s.Resume("k")
	if !ok {
		t.Fatal("Resume should find the saved entry")
	}
	if e.Validator != "etag-1" || string(e.Data) != "hello" {
		t.Errorf("Resume() = %+v, want validator etag-1, data hello", e)
	}

	if s.Len() != 0 {
		t.Error("Resume should be one-shot: entry must be removed after retrieval")
	}

	if _, ok := s.Resume("k"); ok {
		t.Error("second Resume on the same key should miss")
	}
}

func TestStore_SaveIgnoresEmptyValidatorOrData(t *testing.T) {
	var s Store
	s.Save("k", "", []byte("data"))
	s.Save("k", "etag", nil)
	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0 (saves with missing validator or data should be no-ops)", got)
	}
}

func TestStore_SaveCopiesData(t *testing.T) {
	var s Store
	buf := []byte("mutable")
	s.Save("k", "etag", buf)
	buf[0] = 'X'

	e, ok := s.Resume("k")
	if !ok {
		t.Fatal("expected saved entry")
	}
	if string(e.Data) != "mutable" {
		t.Errorf("Store should copy data on Save, got %q after caller mutation", e.Data)
	}
}

func TestStore_SaveReplacesPriorEntry(t *testing.T) {
	var s Store
	s.Save("k", "etag-1", []byte("first"))
	s.Save("k", "etag-2", []byte("second"))

	if got := s.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1 (replace, not append)", got)
	}
	e, _ := s.Resume("k")
	if e.Validator != "etag-2" || string(e.Data) != "second" {
		t.Errorf("Resume() = %+v, want the replaced entry", e)
	}
}

func TestStore_Discard(t *testing.T) {
	var s Store
	s.Save("k", "etag", []byte("data"))
	s.Discard("k")
	if s.Len() != 0 {
		t.Error("Discard should remove the entry")
	}
	if _, ok := s.Resume("k"); ok {
		t.Error("Resume after Discard should miss")
	}
}

func TestStore_DiscardMissingKeyIsNoop(t *testing.T) {
	var s Store
	s.Discard("missing")
	if s.Len() != 0 {
		t.Error("Discard on an empty store should be a no-op, not panic")
	}
}

func TestStore_IndependentKeys(t *testing.T) {
	var s Store
	s.Save("a", "etag-a", []byte("1"))
	s.Save("b", "etag-b", []byte("2"))
	if got := s.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	s.Resume("a")
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1 after resuming only one key", got)
	}
	if _, ok := s.Resume("b"); !ok {
		t.Error("other key should be unaffected")
	}
}
