package utils

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBackend = errors.New("backend down")

func TestBreaker_IgnoresNonFailures(t *testing.T) {
	errMissing := errors.New("missing")
	cb := NewBreaker("test", zap.NewNop(), func(err error) bool {
		return errors.Is(err, errBackend)
	})

	for i := 0; i < 10; i++ {
		_, err := ExecuteWithBreaker(cb, func() (int, error) {
			return 0, errMissing
		})
		require.ErrorIs(t, err, errMissing)
	}

	require.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestBreaker_OpensOnFailures(t *testing.T) {
	cb := NewBreaker("test", zap.NewNop(), func(err error) bool {
		return errors.Is(err, errBackend)
	})

	for i := 0; i < 5; i++ {
		_, _ = ExecuteWithBreaker(cb, func() (string, error) {
			return "", errBackend
		})
	}

	require.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := ExecuteWithBreaker(cb, func() (string, error) {
		return "ok", nil
	})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestExecuteWithBreaker_ReturnsValue(t *testing.T) {
	cb := NewBreaker("test", zap.NewNop(), func(error) bool { return true })

	got, err := ExecuteWithBreaker(cb, func() ([]int, error) {
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, got)
}

func TestFormatValidationError(t *testing.T) {
	type input struct {
		Role string `validate:"required,oneof=customer admin"`
		Note string `validate:"max=3"`
	}

	err := validator.New().Struct(input{Note: "toolong"})
	require.Error(t, err)

	got := FormatValidationError(err)
	require.Equal(t, "role is required", got["role"])
	require.Equal(t, "note must be at most 3 characters", got["note"])

	got = FormatValidationError(errors.New("broken json"))
	require.Equal(t, "broken json", got["request"])
}

func TestNewValidator_UsesJSONNames(t *testing.T) {
	type request struct {
		IsOpen *bool `json:"is_open" validate:"required"`
	}

	got := FormatValidationError(NewValidator().Struct(request{}))
	require.Equal(t, "is_open is required", got["is_open"])
}
