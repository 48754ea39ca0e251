package utils

// validator.go - проверка входных данных API и конфигурации

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKeySize - длина публичного ключа ed25519
const PublicKeySize = 32

// ErrInvalidAddress - адрес не является base58-ключом длиной 32 байта
var ErrInvalidAddress = errors.New("invalid address")

// ValidateAddress проверяет адрес счёта, группы или программы
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w: %s is not base58", ErrInvalidAddress, address)
	}
	if len(raw) != PublicKeySize {
		return fmt.Errorf("%w: %s decodes to %d bytes", ErrInvalidAddress, address, len(raw))
	}
	return nil
}

// ValidatePercent проверяет процентный параметр в диапазоне [0, max]
func ValidatePercent(name string, v float64, max float64) error {
	if v < 0 || v > max {
		return fmt.Errorf("%s must be between 0 and %g, got %g", name, max, v)
	}
	return nil
}
