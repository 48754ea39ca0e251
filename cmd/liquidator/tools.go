package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"liquidator/internal/exchange"
	"liquidator/pkg/crypto"
)

const (
	passwordKey = "password"
	keyKey      = "key"
	inKey       = "in"
	outKey      = "out"

	encryptionKeyEnv = "ENCRYPTION_KEY"
)

// hashPasswordCommand печатает bcrypt-хеш для API_PASSWORD_HASH
func hashPasswordCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "hash-password",
		Short: "Prints a bcrypt hash for API_PASSWORD_HASH",
		Args:  cobra.NoArgs,
		RunE:  hashPasswordFunc,
	}
	c.Flags().String(passwordKey, "", "Password to hash (read from stdin when empty)")
	return c
}

func hashPasswordFunc(c *cobra.Command, _ []string) error {
	password, err := c.Flags().GetString(passwordKey)
	if err != nil {
		return err
	}
	if password == "" {
		fmt.Fprint(c.ErrOrStderr(), "password: ")
		line, err := bufio.NewReader(c.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.OutOrStdout(), hash)
	return nil
}

// encryptKeypairCommand шифрует файл keypair ключом ENCRYPTION_KEY
//
// Без ключа генерирует новый ключ AES-256 и печатает его для .env.
func encryptKeypairCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "encrypt-keypair",
		Short: "Encrypts a keypair file with ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE:  encryptKeypairFunc,
	}
	addKeypairFlags(c.Flags())
	return c
}

func addKeypairFlags(flags *pflag.FlagSet) {
	flags.String(inKey, "", "Plain keypair file, JSON array of 64 bytes (required)")
	flags.String(outKey, "", "Destination of the encrypted keypair (required)")
	flags.String(keyKey, os.Getenv(encryptionKeyEnv), "Encryption key, hex or base64 of 32 bytes (generated and printed when empty)")
}

func encryptKeypairFunc(c *cobra.Command, _ []string) error {
	flags := c.Flags()
	src, err := flags.GetString(inKey)
	if err != nil {
		return err
	}
	dst, err := flags.GetString(outKey)
	if err != nil {
		return err
	}
	rawKey, err := flags.GetString(keyKey)
	if err != nil {
		return err
	}
	if src == "" || dst == "" {
		return fmt.Errorf("--%s and --%s are required", inKey, outKey)
	}

	key, err := encryptionKey(c, rawKey)
	if err != nil {
		return err
	}
	if err := exchange.EncryptKeypairFile(src, dst, key); err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "encrypted keypair written to %s\n", dst)
	return nil
}

// encryptionKey разбирает --key; без ключа генерирует новый и печатает его один раз
func encryptionKey(c *cobra.Command, rawKey string) ([]byte, error) {
	if rawKey == "" {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generate encryption key: %w", err)
		}
		fmt.Fprintf(c.OutOrStdout(), "%s=%s\n", encryptionKeyEnv, hex.EncodeToString(key))
		return key, nil
	}

	key, err := crypto.ParseKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	return key, nil
}
