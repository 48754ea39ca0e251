package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

func TestEncryptDecrypt(t *testing.T) {
	key := testKey(t)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"keypair json", []byte("[1,2,3,4,5,6,7,8]")},
		{"empty", []byte{}},
		{"binary", []byte{0, 255, 10, 13}},
		{"unicode", []byte("ключ ликвидатора")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := Encrypt(tt.plaintext, key)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			got, err := Decrypt(ciphertext, key)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if !bytes.Equal(got, tt.plaintext) {
				t.Errorf("ожидали %q, получили %q", tt.plaintext, got)
			}
		})
	}
}

func TestEncrypt_DifferentNonces(t *testing.T) {
	key := testKey(t)
	a, _ := Encrypt([]byte("same"), key)
	b, _ := Encrypt([]byte("same"), key)
	if a == b {
		t.Error("одинаковый шифротекст для двух шифрований - nonce не случайный")
	}
}

func TestEncryptDecrypt_InvalidKey(t *testing.T) {
	if _, err := Encrypt([]byte("x"), []byte("short")); !errors.Is(err, ErrInvalidKeyLength) {
		t.Errorf("Encrypt: ожидали ErrInvalidKeyLength, получили %v", err)
	}
	if _, err := Decrypt("AAAA", make([]byte, 16)); !errors.Is(err, ErrInvalidKeyLength) {
		t.Errorf("Decrypt: ожидали ErrInvalidKeyLength, получили %v", err)
	}
}

func TestDecrypt_Errors(t *testing.T) {
	key := testKey(t)
	ciphertext, _ := Encrypt([]byte("secret"), key)

	if _, err := Decrypt(ciphertext, testKey(t)); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("чужой ключ: ожидали ErrDecryptionFailed, получили %v", err)
	}
	if _, err := Decrypt("not base64!!!", key); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("не base64: ожидали ErrInvalidCiphertext, получили %v", err)
	}
	if _, err := Decrypt(base64.StdEncoding.EncodeToString([]byte("abc")), key); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("короткий: ожидали ErrCiphertextTooShort, получили %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(ciphertext)
	raw[len(raw)-1] ^= 0xFF
	if _, err := Decrypt(base64.StdEncoding.EncodeToString(raw), key); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("изменённый: ожидали ErrDecryptionFailed, получили %v", err)
	}
}

func TestParseKey(t *testing.T) {
	key := testKey(t)

	fromHex, err := ParseKey(hex.EncodeToString(key))
	if err != nil || !bytes.Equal(fromHex, key) {
		t.Errorf("hex: получили %x, %v", fromHex, err)
	}

	fromB64, err := ParseKey(" " + base64.StdEncoding.EncodeToString(key) + "\n")
	if err != nil || !bytes.Equal(fromB64, key) {
		t.Errorf("base64: получили %x, %v", fromB64, err)
	}

	for _, bad := range []string{"", "abc", base64.StdEncoding.EncodeToString(make([]byte, 16))} {
		if _, err := ParseKey(bad); !errors.Is(err, ErrInvalidKeyLength) {
			t.Errorf("ParseKey(%q): ожидали ErrInvalidKeyLength, получили %v", bad, err)
		}
	}
}

func BenchmarkDecrypt(b *testing.B) {
	key, _ := GenerateKey()
	ciphertext, _ := Encrypt(make([]byte, 64), key)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decrypt(ciphertext, key)
	}
}
