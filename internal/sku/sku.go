package sku

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	Length             = 8
	Alphabet           = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultMaxAttempts = 10
)

var ErrExhausted = errors.New("sku generation exhausted")

// Checker reports whether a candidate SKU is already taken.
type Checker func(ctx context.Context, candidate string) (bool, error)

type Generator struct {
	maxAttempts int
	random      func() (string, error)
}

func NewGenerator(maxAttempts int) *Generator {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{maxAttempts: maxAttempts, random: Generate}
}

// Generate returns Length characters drawn uniformly from Alphabet.
func Generate() (string, error) {
	limit := big.NewInt(int64(len(Alphabet)))
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Unique draws candidates until check reports one as free. A fresh candidate
// is drawn on every collision; after maxAttempts collisions ErrExhausted is
// returned. Checker errors abort immediately.
func (g *Generator) Unique(ctx context.Context, check Checker) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := g.random()
		if err != nil {
			return "", err
		}
		taken, err := check(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, g.maxAttempts)
}

// Valid reports whether s has the generated SKU shape.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
