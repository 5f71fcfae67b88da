package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	pkgs := []string{"python-telegram-bot", "google-auth"}
	if Fingerprint(pkgs) != Fingerprint(pkgs) {
		t.Error("non-deterministic fingerprint")
	}
}

func TestFingerprint_OrderAndSpellingIndependent(t *testing.T) {
	t.Parallel()

	h1 := Fingerprint([]string{"python-telegram-bot", "google-auth"})
	h2 := Fingerprint([]string{"Google_Auth", "python-telegram-bot"})
	if h1 != h2 {
		t.Errorf("fingerprints differ: %q != %q", h1, h2)
	}
}

func TestFingerprint_Different(t *testing.T) {
	t.Parallel()

	if Fingerprint([]string{"google-auth"}) == Fingerprint([]string{"google-auth-oauthlib"}) {
		t.Error("different inputs produced the same fingerprint")
	}
}

func TestFingerprint_Empty(t *testing.T) {
	t.Parallel()

	h1 := Fingerprint(nil)
	h2 := Fingerprint([]string{})
	if h1 != h2 {
		t.Errorf("nil vs empty: %q != %q", h1, h2)
	}
	if h1 == "" {
		t.Error("empty list should still produce a fingerprint")
	}
}

func TestMarker_RoundTripAndNeedsInstall(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pkgs := []string{"python-telegram-bot", "google-auth"}

	if !NeedsInstall(dir, pkgs) {
		t.Error("missing marker should need an install")
	}

	now := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	if err := WriteMarker(dir, pkgs, now); err != nil {
		t.Fatalf("WriteMarker: %v", err)
	}

	m, err := ReadMarker(dir)
	if err != nil {
		t.Fatalf("ReadMarker: %v", err)
	}
	if m == nil || !m.InstalledAt.Equal(now) || len(m.Packages) != 2 {
		t.Errorf("marker = %+v", m)
	}

	if NeedsInstall(dir, []string{"google-auth", "python-telegram-bot"}) {
		t.Error("same package set should not need an install")
	}
	if !NeedsInstall(dir, append(pkgs, "google-api-python-client")) {
		t.Error("changed package set should need an install")
	}
}

func TestReadMarker_Corrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, MarkerFile), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadMarker(dir); err == nil {
		t.Error("expected parse error")
	}
	if !NeedsInstall(dir, []string{"x"}) {
		t.Error("corrupt marker should need an install")
	}
}
