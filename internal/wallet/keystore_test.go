package wallet

import (
	"os"
	"path/filepath"
	"testing"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptDecryptKey_RoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey() error = %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey() error = %v", err)
	}
	if got != testKeyHex {
		t.Errorf("DecryptKey() = %q, want original key", got)
	}
}

func TestDecryptKey_WrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey() error = %v", err)
	}

	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Error("DecryptKey() with wrong password error = nil, want failure")
	}
}

func TestEncryptKey_Validation(t *testing.T) {
	if _, err := EncryptKey(testKeyHex, ""); err == nil {
		t.Error("empty password error = nil, want failure")
	}
	if _, err := EncryptKey("not-hex", "pw"); err == nil {
		t.Error("invalid hex error = nil, want failure")
	}
	if _, err := EncryptKey("abcd", "pw"); err == nil {
		t.Error("short key error = nil, want failure")
	}
}

func TestDecryptKey_UnsupportedVersion(t *testing.T) {
	if _, err := DecryptKey([]byte(`{"version":99}`), "pw"); err == nil {
		t.Error("unsupported version error = nil, want failure")
	}
}

func TestLoadOrCreateKeystore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "session.json")

	generated := 0
	generate := func() (string, error) {
		generated++
		return testKeyHex, nil
	}

	// First call generates and writes the keystore.
	got, err := loadOrCreateKeystore(path, "pw", generate)
	if err != nil {
		t.Fatalf("loadOrCreateKeystore() error = %v", err)
	}
	if got != testKeyHex {
		t.Errorf("key = %q, want generated key", got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("keystore file not written: %v", err)
	}

	// Second call loads the existing keystore without regenerating.
	got, err = loadOrCreateKeystore(path, "pw", generate)
	if err != nil {
		t.Fatalf("second loadOrCreateKeystore() error = %v", err)
	}
	if got != testKeyHex {
		t.Errorf("reloaded key = %q, want stored key", got)
	}
	if generated != 1 {
		t.Errorf("generate called %d times, want 1", generated)
	}
}
