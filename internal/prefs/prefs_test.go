package prefs

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDefaultsWhenNeverSet(t *testing.T) {
	s := openTestStore(t)

	ok, err := s.Authenticated()
	if err != nil {
		t.Fatalf("Authenticated() returned error: %v", err)
	}
	if ok {
		t.Error("Authenticated() = true on fresh store, want false")
	}

	market, err := s.LastMarket()
	if err != nil {
		t.Fatalf("LastMarket() returned error: %v", err)
	}
	if market != "" {
		t.Errorf("LastMarket() = %q on fresh store, want empty", market)
	}
}

func TestAuthenticatedRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetAuthenticated(true); err != nil {
		t.Fatalf("SetAuthenticated(true) returned error: %v", err)
	}
	ok, err := s.Authenticated()
	if err != nil {
		t.Fatalf("Authenticated() returned error: %v", err)
	}
	if !ok {
		t.Error("Authenticated() = false after SetAuthenticated(true)")
	}

	if err := s.SetAuthenticated(false); err != nil {
		t.Fatalf("SetAuthenticated(false) returned error: %v", err)
	}
	ok, err = s.Authenticated()
	if err != nil {
		t.Fatalf("Authenticated() returned error: %v", err)
	}
	if ok {
		t.Error("Authenticated() = true after SetAuthenticated(false)")
	}
}

func TestLastMarketOverwrites(t *testing.T) {
	s := openTestStore(t)

	if err := s.SetLastMarket("bist100"); err != nil {
		t.Fatalf("SetLastMarket() returned error: %v", err)
	}
	if err := s.SetLastMarket("binance"); err != nil {
		t.Fatalf("SetLastMarket() returned error: %v", err)
	}

	market, err := s.LastMarket()
	if err != nil {
		t.Fatalf("LastMarket() returned error: %v", err)
	}
	if market != "binance" {
		t.Errorf("LastMarket() = %q, want %q", market, "binance")
	}
}

func TestReopenKeepsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	if err := s.SetAuthenticated(true); err != nil {
		t.Fatalf("SetAuthenticated() returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer s2.Close()

	ok, err := s2.Authenticated()
	if err != nil {
		t.Fatalf("Authenticated() returned error: %v", err)
	}
	if !ok {
		t.Error("Authenticated() = false after reopen, want true")
	}
}
