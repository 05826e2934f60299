// Package security holds the credential hasher and the token issuer. Both are
// built once at startup from immutable secret material and are safe for
// concurrent use.
package security

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2KeyLen  = 32
	argon2SaltLen = 16

	// Cost ceilings for configured and stored hashes. A stored hash above
	// them is treated as malformed rather than handed to argon2.
	MaxArgon2Memory     = 256 * 1024 // KiB
	MaxArgon2Iterations = 16
)

var (
	ErrEmptyPepper   = errors.New("hash pepper must not be empty")
	ErrMalformedHash = errors.New("malformed password hash")
	ErrInvalidParams = errors.New("argon2 parameters out of range")
)

// Argon2Params captures the tunable Argon2id cost parameters.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultArgon2Params targets roughly 100ms per hash on commodity hardware.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
}

// Argon2idHasher hashes passwords with Argon2id. The pepper keys every
// password through HMAC-SHA256 before it reaches Argon2id, and a fresh salt
// is generated per hash and embedded in the encoded result.
type Argon2idHasher struct {
	pepper []byte
	params Argon2Params
}

// NewArgon2idHasher returns a hasher bound to pepper. Zero-valued params fall
// back to DefaultArgon2Params.
func NewArgon2idHasher(pepper []byte, params Argon2Params) (*Argon2idHasher, error) {
	if len(pepper) == 0 {
		return nil, ErrEmptyPepper
	}
	if params.Memory == 0 {
		params.Memory = DefaultArgon2Params.Memory
	}
	if params.Iterations == 0 {
		params.Iterations = DefaultArgon2Params.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = DefaultArgon2Params.Parallelism
	}
	if params.Memory > MaxArgon2Memory || params.Iterations > MaxArgon2Iterations {
		return nil, fmt.Errorf("%w: m=%d t=%d", ErrInvalidParams, params.Memory, params.Iterations)
	}
	p := make([]byte, len(pepper))
	copy(p, pepper)
	return &Argon2idHasher{pepper: p, params: params}, nil
}

// Hash returns a PHC-formatted Argon2id hash:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
func (h *Argon2idHasher) Hash(ctx context.Context, password []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("hash password: generate salt: %w", err)
	}

	key := argon2.IDKey(h.keyed(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, argon2KeyLen)
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. A mismatch is (false, nil);
// a hash that cannot be parsed returns an error wrapping ErrMalformedHash.
func (h *Argon2idHasher) Verify(ctx context.Context, encoded string, password []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}

	params, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey(h.keyed(password), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(want)))
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func (h *Argon2idHasher) keyed(password []byte) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write(password)
	return mac.Sum(nil)
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, nil, nil, fmt.Errorf("%w: expected 6 segments", ErrMalformedHash)
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: version: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: params: %v", ErrMalformedHash, err)
	}
	if fmt.Sprintf("m=%d,t=%d,p=%d", p.Memory, p.Iterations, threads) != parts[3] {
		return p, nil, nil, fmt.Errorf("%w: params not canonical", ErrMalformedHash)
	}
	if threads == 0 || threads > 255 || p.Iterations == 0 || p.Memory == 0 {
		return p, nil, nil, fmt.Errorf("%w: params out of range", ErrMalformedHash)
	}
	if p.Memory > MaxArgon2Memory || p.Iterations > MaxArgon2Iterations {
		return p, nil, nil, fmt.Errorf("%w: cost m=%d t=%d exceeds limit", ErrMalformedHash, p.Memory, p.Iterations)
	}
	p.Parallelism = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: key: %v", ErrMalformedHash, err)
	}
	if len(key) == 0 || len(key) > 1024 {
		return p, nil, nil, fmt.Errorf("%w: key length %d", ErrMalformedHash, len(key))
	}

	return p, salt, key, nil
}
