//go:build unix || windows

package lockedfile

import (
	"path/filepath"
	"testing"
	"time"
)

func TestMutexLockUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ".lock")
	mu := MutexAt(path)

	unlock, err := mu.Lock()
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	unlock()

	unlock, err = mu.Lock()
	if err != nil {
		t.Fatalf("second Lock failed: %v", err)
	}
	unlock()
}

func TestMutexExcludes(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	unlock, err := MutexAt(path).Lock()
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	acquired := make(chan func())
	go func() {
		u, err := MutexAt(path).Lock()
		if err != nil {
			t.Errorf("Lock in goroutine failed: %v", err)
			close(acquired)
			return
		}
		acquired <- u
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock succeeded while the first was held")
	case <-time.After(100 * time.Millisecond):
	}

	unlock()
	select {
	case u, ok := <-acquired:
		if ok {
			u()
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second Lock did not succeed after unlock")
	}
}

func TestMutexAtEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MutexAt(\"\") did not panic")
		}
	}()
	MutexAt("")
}
