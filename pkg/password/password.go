// Package password hashes and verifies member credentials.
//
// New hashes are produced with the configured algorithm. Verification detects
// the algorithm from the encoded hash, so stored bcrypt and argon2 hashes keep
// working after the configured algorithm changes.
package password

import (
	"fmt"
	"strings"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt = "bcrypt"
	AlgorithmArgon2 = "argon2"

	// DefaultBcryptCost matches the cost the membership store was seeded with.
	DefaultBcryptCost = 10

	argon2Prefix = "$argon2"

	// bcryptMaxInput is how many password bytes bcrypt consumes. Longer
	// passwords are truncated, matching other bcrypt implementations.
	bcryptMaxInput = 72
)

// Bcrypt hashes with golang.org/x/crypto/bcrypt at a fixed cost.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(plain), b.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

func (b Bcrypt) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plain)) == nil
}

func bcryptInput(plain string) []byte {
	b := []byte(plain)
	if len(b) > bcryptMaxInput {
		b = b[:bcryptMaxInput]
	}
	return b
}

// Argon2 hashes with argon2id using the library defaults and PHC-encoded output.
type Argon2 struct {
	cfg argon2.Config
}

func NewArgon2() *Argon2 {
	return &Argon2{cfg: argon2.DefaultConfig()}
}

func (a *Argon2) Hash(plain string) (string, error) {
	encoded, err := a.cfg.HashEncoded([]byte(plain))
	if err != nil {
		return "", fmt.Errorf("argon2 hash: %w", err)
	}
	return string(encoded), nil
}

func (a *Argon2) Verify(hash, plain string) bool {
	ok, err := argon2.VerifyEncoded([]byte(plain), []byte(hash))
	return err == nil && ok
}

// Hasher hashes with one algorithm and verifies any supported one.
type Hasher struct {
	algorithm string
	bcrypt    Bcrypt
	argon2    *Argon2
}

// New returns a Hasher producing hashes with algorithm. bcryptCost is only
// used for new bcrypt hashes.
func New(algorithm string, bcryptCost int) (*Hasher, error) {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password: bcrypt cost %d out of range [%d, %d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	switch algorithm {
	case AlgorithmBcrypt, AlgorithmArgon2:
	default:
		return nil, fmt.Errorf("password: unknown algorithm %q", algorithm)
	}
	return &Hasher{
		algorithm: algorithm,
		bcrypt:    Bcrypt{Cost: bcryptCost},
		argon2:    NewArgon2(),
	}, nil
}

// Algorithm reports the algorithm used for new hashes.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

func (h *Hasher) Hash(plain string) (string, error) {
	if h.algorithm == AlgorithmArgon2 {
		return h.argon2.Hash(plain)
	}
	return h.bcrypt.Hash(plain)
}

func (h *Hasher) Verify(hash, plain string) bool {
	if strings.HasPrefix(hash, argon2Prefix) {
		return h.argon2.Verify(hash, plain)
	}
	return h.bcrypt.Verify(hash, plain)
}
