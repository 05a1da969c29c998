package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("bad request"), false},
		{"tagged transient", NewTransientError(errors.New("rate limited"), 429), true},
		{"wrapped transient", fmt.Errorf("call failed: %w", NewTransientError(errors.New("overloaded"), 503)), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"reset by message", errors.New("read tcp: connection reset by peer"), true},
		{"io timeout by message", errors.New("net/http: i/o timeout"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		assert.False(t, IsTransientStatus(code), "status %d", code)
	}
}

func TestTransientErrorUnwrap(t *testing.T) {
	base := errors.New("gateway timeout")
	te := NewTransientError(base, 504)
	assert.ErrorIs(t, te, base)
	assert.Equal(t, 504, te.StatusCode)
	assert.Equal(t, "gateway timeout", te.Error())
}
