package clierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(Network, "backend unreachable", cause)

	assert.Equal(t, "backend unreachable", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, New(Validation, "bad", nil).Unwrap())
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Type
	}{
		{"direct", New(Auth, "session expired", nil), Auth},
		{"wrapped", fmt.Errorf("sign: %w", New(NotFound, "no such demande", nil)), NotFound},
		{"plain error", errors.New("boom"), Internal},
		{"nil", nil, Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(New(Validation, "x", nil)))
	assert.Equal(t, 3, ExitCode(New(NotFound, "x", nil)))
	assert.Equal(t, 4, ExitCode(New(Auth, "x", nil)))
	assert.Equal(t, 5, ExitCode(New(Network, "x", nil)))
	assert.Equal(t, 1, ExitCode(errors.New("x")))
	assert.Equal(t, 1, ExitCode(New(Type("other"), "x", nil)))
}
