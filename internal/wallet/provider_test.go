package wallet

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShortenAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full address", "0x71C7656EC7ab88b098defB751B7401B5f6d89A21", "0x71C...9A21"},
		{"short passthrough", "0x1234", "0x1234"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortenAddress(tt.in); got != tt.want {
				t.Errorf("ShortenAddress(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestProvider_Address_EphemeralKey(t *testing.T) {
	p := NewProvider(Options{ConnectDelay: -1}, testLogger())

	addr, err := p.Address(context.Background())
	if err != nil {
		t.Fatalf("Address() error = %v", err)
	}
	if !strings.HasPrefix(addr, "0x") || !strings.Contains(addr, "...") {
		t.Errorf("address = %q, want shortened display form", addr)
	}

	// The resolved key is cached; the address is stable per process.
	again, err := p.Address(context.Background())
	if err != nil {
		t.Fatalf("second Address() error = %v", err)
	}
	if again != addr {
		t.Errorf("second Address() = %q, want cached %q", again, addr)
	}
}

func TestProvider_Address_HonorsCancellation(t *testing.T) {
	p := NewProvider(Options{ConnectDelay: time.Minute}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := p.Address(ctx); err == nil {
		t.Fatal("Address() error = nil, want cancellation")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Address() blocked %v past cancellation", elapsed)
	}
}

func TestProvider_Address_KeystorePersistence(t *testing.T) {
	path := t.TempDir() + "/session.json"

	p1 := NewProvider(Options{KeystorePath: path, KeystorePassword: "pw", ConnectDelay: -1}, testLogger())
	addr1, err := p1.Address(context.Background())
	if err != nil {
		t.Fatalf("first Address() error = %v", err)
	}

	// A fresh provider over the same keystore derives the same address.
	p2 := NewProvider(Options{KeystorePath: path, KeystorePassword: "pw", ConnectDelay: -1}, testLogger())
	addr2, err := p2.Address(context.Background())
	if err != nil {
		t.Fatalf("second Address() error = %v", err)
	}
	if addr1 != addr2 {
		t.Errorf("addresses differ across restarts: %q vs %q", addr1, addr2)
	}
}
