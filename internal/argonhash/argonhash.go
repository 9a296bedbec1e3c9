// Package argonhash hashes and verifies passwords with argon2id, in the
// encoded form used throughout the state document's password fields.
package argonhash

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
	saltLen  = 16
	keyLen   = 32
	timeCost = 1
	memory   = 64 * 1024
	threads  = 4
)

// ErrMismatch is returned by Verify when the password does not match the
// hash.
var ErrMismatch = errors.New("argonhash: password mismatch")

// Hash returns the encoded argon2id hash of password, in the standard
// $argon2id$v=...$m=...,t=...,p=...$salt$hash form.
func Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argonhash: read salt: %w", err)
	}
	sum := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, keyLen)
	enc := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memory, timeCost, threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum))
	return enc, nil
}

// Verify reports whether password matches the encoded hash produced by
// Hash. It returns ErrMismatch (not a bare bool) so callers can
// distinguish a wrong password from a malformed hash via errors.Is.
func Verify(password, encoded string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return fmt.Errorf("argonhash: malformed hash")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return fmt.Errorf("argonhash: malformed version: %w", err)
	}
	var m uint32
	var t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return fmt.Errorf("argonhash: malformed params: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("argonhash: malformed salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("argonhash: malformed digest: %w", err)
	}
	got := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(want)))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrMismatch
	}
	return nil
}
