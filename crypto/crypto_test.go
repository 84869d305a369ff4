package crypto

import (
	"bytes"
	"testing"
)

func TestEncryptor(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	enc, err := NewEncryptor(key)
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}

	t.Run("round trip stream key", func(t *testing.T) {
		streamKey := "abcd-efgh-ijkl-mnop"

		ciphertext, err := enc.EncryptString(streamKey)
		if err != nil {
			t.Fatalf("EncryptString failed: %v", err)
		}
		if ciphertext == streamKey {
			t.Fatal("ciphertext equals plaintext")
		}

		got, err := enc.DecryptString(ciphertext)
		if err != nil {
			t.Fatalf("DecryptString failed: %v", err)
		}
		if got != streamKey {
			t.Errorf("DecryptString = %q, want %q", got, streamKey)
		}
	})

	t.Run("nonce makes ciphertexts differ", func(t *testing.T) {
		a, _ := enc.Encrypt([]byte("same"))
		b, _ := enc.Encrypt([]byte("same"))
		if bytes.Equal(a, b) {
			t.Error("expected different ciphertexts for identical plaintexts")
		}
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		ciphertext, _ := enc.Encrypt([]byte("secret"))
		ciphertext[len(ciphertext)-1] ^= 0xFF
		if _, err := enc.Decrypt(ciphertext); err != ErrDecryptionFailed {
			t.Errorf("Decrypt(tampered) = %v, want ErrDecryptionFailed", err)
		}
	})

	t.Run("short ciphertext", func(t *testing.T) {
		if _, err := enc.Decrypt([]byte{1, 2, 3}); err != ErrInvalidCiphertext {
			t.Errorf("Decrypt(short) = %v, want ErrInvalidCiphertext", err)
		}
	})

	t.Run("bad base64", func(t *testing.T) {
		if _, err := enc.DecryptString("%%%"); err != ErrInvalidCiphertext {
			t.Errorf("DecryptString(bad) = %v, want ErrInvalidCiphertext", err)
		}
	})
}

func TestNewEncryptor_InvalidKey(t *testing.T) {
	for _, size := range []int{0, 8, 15, 33} {
		if _, err := NewEncryptor(make([]byte, size)); err != ErrInvalidKey {
			t.Errorf("NewEncryptor(%d bytes) = %v, want ErrInvalidKey", size, err)
		}
	}
	if _, err := NewEncryptorFromBase64("not base64!"); err != ErrInvalidKey {
		t.Errorf("NewEncryptorFromBase64(bad) = %v, want ErrInvalidKey", err)
	}
}

func TestNewEncryptorFromBase64(t *testing.T) {
	keyB64, err := GenerateKeyBase64()
	if err != nil {
		t.Fatalf("GenerateKeyBase64 failed: %v", err)
	}
	if _, err := NewEncryptorFromBase64(keyB64); err != nil {
		t.Errorf("NewEncryptorFromBase64 failed: %v", err)
	}
}

func TestDeriveKey(t *testing.T) {
	master := []byte("master-secret")

	a, err := DeriveKey(master, "solstream-challenge", 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("len = %d, want 32", len(a))
	}

	again, _ := DeriveKey(master, "solstream-challenge", 32)
	if !bytes.Equal(a, again) {
		t.Error("DeriveKey is not deterministic")
	}

	other, _ := DeriveKey(master, "solstream-token", 32)
	if bytes.Equal(a, other) {
		t.Error("different purposes produced the same key")
	}

	if _, err := DeriveKey(nil, "x", 32); err != ErrInvalidKey {
		t.Errorf("DeriveKey(empty master) = %v, want ErrInvalidKey", err)
	}
}
