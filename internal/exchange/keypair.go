package exchange

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"

	"github.com/mr-tron/base58"

	"liquidator/pkg/crypto"
)

// ErrInvalidKeypair - файл не содержит корректную ed25519 пару
var ErrInvalidKeypair = errors.New("invalid keypair")

// Keypair - ключ ликвидатора в формате solana-keygen (JSON-массив из 64 байт)
type Keypair struct {
	private ed25519.PrivateKey
}

// LoadKeypair читает keypair с диска
//
// Если encryptionKey задан, файл содержит результат crypto.Encrypt от JSON-массива.
func LoadKeypair(path string, encryptionKey []byte) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair %s: %w", path, err)
	}

	if encryptionKey != nil {
		data, err = crypto.Decrypt(string(data), encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("decrypt keypair %s: %w", path, err)
		}
	}

	return ParseKeypair(data)
}

// ParseKeypair разбирает JSON-массив из 64 байт (seed || public key)
func ParseKeypair(data []byte) (*Keypair, error) {
	var raw []int
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeypair, ed25519.PrivateKeySize, len(raw))
	}

	secret := make([]byte, ed25519.PrivateKeySize)
	for i, b := range raw {
		if b < 0 || b > 255 {
			return nil, fmt.Errorf("%w: byte %d out of range", ErrInvalidKeypair, i)
		}
		secret[i] = byte(b)
	}

	// Публичная половина должна соответствовать seed
	derived := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], secret[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidKeypair)
	}

	return &Keypair{private: derived}, nil
}

// PublicKey возвращает адрес ключа в base58
func (k *Keypair) PublicKey() string {
	return base58.Encode(k.private.Public().(ed25519.PublicKey))
}

// Sign подписывает сообщение
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// MarshalJSON возвращает keypair в формате solana-keygen
func (k *Keypair) MarshalJSON() ([]byte, error) {
	raw := make([]int, len(k.private))
	for i, b := range k.private {
		raw[i] = int(b)
	}
	return json.Marshal(raw)
}

// EncryptKeypairFile шифрует открытый keypair-файл для хранения на диске
func EncryptKeypairFile(src, dst string, encryptionKey []byte) error {
	kp, err := LoadKeypair(src, nil)
	if err != nil {
		return err
	}
	plain, err := kp.MarshalJSON()
	if err != nil {
		return err
	}
	sealed, err := crypto.Encrypt(plain, encryptionKey)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, []byte(sealed), 0o600)
}
