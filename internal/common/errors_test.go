package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", ErrTransientNetwork, true},
		{"wrapped transient", fmt.Errorf("push: %w", ErrTransientNetwork), true},
		{"rejected", ErrRemoteRejected, false},
		{"conflict wrapped in rejected", fmt.Errorf("%w: %w", ErrRemoteRejected, ErrVersionConflict), false},
		{"local", ErrLocalStore, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestJoinedTaxonomyMatchesBoth(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrRemoteRejected, ErrVersionConflict)
	assert.ErrorIs(t, err, ErrRemoteRejected)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"expired token", fmt.Errorf("%w: %w", ErrRemoteRejected, ErrTokenExpired), true},
		{"invalid token", ErrInvalidToken, true},
		{"unauthorized", fmt.Errorf("%w: %w", ErrRemoteRejected, ErrorUnauthorized), true},
		{"not found", fmt.Errorf("%w: %w", ErrRemoteRejected, ErrorNotFound), false},
		{"not member", fmt.Errorf("%w: %w", ErrRemoteRejected, ErrNotMember), false},
		{"transient", ErrTransientNetwork, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthFailure(tt.err))
		})
	}
}
