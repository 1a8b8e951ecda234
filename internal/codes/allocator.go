// Package codes allocates globally unique short friend codes.
//
// A code is drawn uniformly from common.FriendCodeAlphabet and claimed
// through an Index, which must insert the code->owner entry and stamp the
// owner's profile as one atomic unit. A claim that hits an existing code is
// a collision and the allocator retries with a fresh code.
package codes

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/playkeeper/internal/common"
)

const DefaultMaxAttempts = 10

// Index is the atomicity anchor of allocation.
type Index interface {
	// Claim binds code to ownerID, or fails with common.ErrCodeTaken when the
	// code already belongs to someone.
	Claim(ctx context.Context, code, ownerID string) error
}

type Allocator struct {
	Index       Index
	MaxAttempts int
	// Rand defaults to crypto/rand.Reader.
	Rand io.Reader
}

func NewAllocator(index Index, maxAttempts int) *Allocator {
	return &Allocator{Index: index, MaxAttempts: maxAttempts, Rand: rand.Reader}
}

// Allocate claims a fresh code of the given length for ownerID. After
// MaxAttempts collisions it gives up with common.ErrAllocationExhausted.
func (a *Allocator) Allocate(ctx context.Context, ownerID string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: code length %d", common.ErrInvalidArgument, length)
	}
	attempts := a.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	src := a.Rand
	if src == nil {
		src = rand.Reader
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := Generate(src, length)
		if err != nil {
			return "", err
		}
		err = a.Index.Claim(ctx, code, ownerID)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, common.ErrCodeTaken) {
			return "", fmt.Errorf("failed to claim code: %w", err)
		}
	}
	return "", fmt.Errorf("%w: %d attempts", common.ErrAllocationExhausted, attempts)
}

// Generate draws length symbols from the alphabet. Bytes at or above the
// largest multiple of the alphabet size are rejected so every symbol is
// equally likely.
func Generate(r io.Reader, length int) (string, error) {
	alphabet := common.FriendCodeAlphabet
	n := len(alphabet)
	limit := 256 - 256%n

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
