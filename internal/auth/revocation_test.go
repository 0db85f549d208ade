package auth

import (
	"strconv"
	"sync"
	"testing"
)

func TestMemoryRevocations(t *testing.T) {
	store := NewMemoryRevocations()
	if store.IsRevoked("t1") {
		t.Fatalf("fresh store reports revoked")
	}
	store.Revoke("t1")
	store.Revoke("t1")
	store.Revoke("")
	if !store.IsRevoked("t1") {
		t.Fatalf("expected t1 revoked")
	}
	if store.IsRevoked("t2") {
		t.Fatalf("t2 must not be revoked")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", store.Len())
	}
}

func TestMemoryRevocationsConcurrent(t *testing.T) {
	store := NewMemoryRevocations()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tok := strconv.Itoa(i*1000 + j)
				store.Revoke(tok)
				if !store.IsRevoked(tok) {
					t.Errorf("token %s not revoked after Revoke", tok)
				}
			}
		}(i)
	}
	wg.Wait()
	if store.Len() != 32*50 {
		t.Fatalf("expected %d entries, got %d", 32*50, store.Len())
	}
}

func TestRevokeIfAbsentSingleWinner(t *testing.T) {
	store := NewMemoryRevocations()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.RevokeIfAbsent("shared") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected one winner, got %d", wins)
	}
	if store.RevokeIfAbsent("  ") {
		t.Fatalf("blank token must not be revoked")
	}
}
