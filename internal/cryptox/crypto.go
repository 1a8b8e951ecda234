// Package cryptox hashes account passwords with argon2id.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen      = 16
	keyLen       = 32
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var ErrMalformedHash = errors.New("malformed password hash")

// DeriveKey stretches password with salt using the fixed argon2id parameters.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, keyLen)
}

// HashPassword returns "<salt>$<key>", both parts raw base64.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := DeriveKey([]byte(password), salt)
	enc := base64.RawStdEncoding
	return enc.EncodeToString(salt) + "$" + enc.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches an encoded hash produced
// by HashPassword.
func VerifyPassword(password, encoded string) (bool, error) {
	saltPart, keyPart, ok := strings.Cut(encoded, "$")
	if !ok {
		return false, ErrMalformedHash
	}
	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(saltPart)
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := enc.DecodeString(keyPart)
	if err != nil {
		return false, ErrMalformedHash
	}
	got := DeriveKey([]byte(password), salt)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
