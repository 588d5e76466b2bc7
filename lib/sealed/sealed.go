// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts and decrypts API tokens with age x25519 keys
// so a configuration file can carry a token without exposing it.
//
// Ciphertext is standard base64 of the binary age format, which fits
// in a single YAML scalar. An identity file holds one or more
// AGE-SECRET-KEY-1 lines in the format written by age-keygen.
package sealed

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// Keypair is an age x25519 keypair in its text encodings.
type Keypair struct {
	// PrivateKey is AGE-SECRET-KEY-1... Never log it.
	PrivateKey string

	// PublicKey is age1...
	PublicKey string
}

// GenerateKeypair returns a new x25519 keypair.
func GenerateKeypair() (Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return Keypair{}, fmt.Errorf("generating age keypair: %w", err)
	}
	return Keypair{
		PrivateKey: identity.String(),
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Encrypt encrypts plaintext to every recipient public key and returns
// base64 ciphertext.
func Encrypt(plaintext []byte, recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", errors.New("at least one recipient is required")
	}
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return "", fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// Decrypt decrypts base64 ciphertext with any of the identities.
func Decrypt(ciphertext string, identities ...age.Identity) ([]byte, error) {
	if len(identities) == 0 {
		return nil, errors.New("at least one identity is required")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("decoding base64 ciphertext: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(raw), identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return plaintext, nil
}

// ParsePrivateKey parses one AGE-SECRET-KEY-1 string.
func ParsePrivateKey(key string) (age.Identity, error) {
	identity, err := age.ParseX25519Identity(strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return identity, nil
}

// ReadIdentityFile parses an age identity file. Comment lines and
// blank lines are ignored.
func ReadIdentityFile(path string) ([]age.Identity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer file.Close()
	identities, err := age.ParseIdentities(file)
	if err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
	}
	return identities, nil
}

// DecryptString decrypts ciphertext with the identities in
// identityFile and returns the plaintext with surrounding whitespace
// removed, the form a sealed token is used in.
func DecryptString(ciphertext, identityFile string) (string, error) {
	identities, err := ReadIdentityFile(identityFile)
	if err != nil {
		return "", err
	}
	plaintext, err := Decrypt(ciphertext, identities...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(plaintext)), nil
}
