package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewError tests the basic creation of errors.
func TestNewError(t *testing.T) {
	tests := []struct {
		name    string
		code    ErrorCode
		message string
	}{
		{
			name:    "InvalidInput",
			code:    InvalidInput,
			message: "variable is not part of the model",
		},
		{
			name:    "ResourceNotFound",
			code:    ResourceNotFound,
			message: "engine not registered",
		},
		{
			name:    "EvaluationFailed",
			code:    EvaluationFailed,
			message: "likelihood evaluation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)

			customErr, ok := err.(*Error)

			assert.True(t, ok, "should be a custom *Error")
			assert.Equal(t, tt.code, customErr.Code())
			assert.Equal(t, tt.message, customErr.Error())

			// New errors carry no original error
			assert.Nil(t, customErr.Unwrap())
		})
	}
}

// TestWrapError tests error wrapping functionality.
func TestWrapError(t *testing.T) {
	originalErr := stderrors.New("simulation backend unavailable")

	tests := []struct {
		name       string
		err        error
		code       ErrorCode
		wrapMsg    string
		expectNil  bool
		expectCode ErrorCode
	}{
		{
			name:       "Wrap normal error",
			err:        originalErr,
			code:       EvaluationFailed,
			wrapMsg:    "evaluating candidate",
			expectNil:  false,
			expectCode: EvaluationFailed,
		},
		{
			name:      "Wrap nil error",
			err:       nil,
			code:      EvaluationFailed,
			wrapMsg:   "evaluating candidate",
			expectNil: true,
		},
		{
			name:       "Wrap custom error",
			err:        New(ResourceNotFound, "engine not registered"),
			code:       WorkerFailed,
			wrapMsg:    "worker run",
			expectNil:  false,
			expectCode: WorkerFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := Wrap(tt.err, tt.code, tt.wrapMsg)

			if tt.expectNil {
				assert.Nil(t, wrapped)
				return
			}

			assert.NotNil(t, wrapped)

			ourErr := wrapped.(*Error)
			assert.Equal(t, tt.expectCode, ourErr.Code())
			assert.Contains(t, ourErr.Error(), tt.wrapMsg)

			unwrapped := ourErr.Unwrap()
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), unwrapped.Error())
			}
		})
	}
}

// TestErrorInterfaces tests compliance with Go error interfaces.
func TestErrorInterfaces(t *testing.T) {
	t.Run("errors.Is support", func(t *testing.T) {
		err1 := New(ValidationFailed, "first")
		err2 := New(ValidationFailed, "second")
		err3 := New(ResourceNotFound, "third")

		assert.True(t, stderrors.Is(err1, err2),
			"Errors with same code should match with Is")
		assert.False(t, stderrors.Is(err1, err3),
			"Errors with different codes should not match with Is")
	})

	t.Run("errors.As support", func(t *testing.T) {
		originalErr := New(EvaluationFailed, "original")
		wrappedErr := Wrap(originalErr, WorkerFailed, "wrapped")

		var customErr *Error
		assert.True(t, stderrors.As(wrappedErr, &customErr),
			"Should be able to extract custom error type")
		assert.Equal(t, WorkerFailed, customErr.Code())
	})

	t.Run("error unwrapping", func(t *testing.T) {
		baseErr := stderrors.New("base error")
		wrapped := Wrap(baseErr, CheckpointFailed, "loading run state")

		unwrapped := stderrors.Unwrap(wrapped)
		assert.Equal(t, baseErr.Error(), unwrapped.Error())
	})
}

// TestErrorString tests the string representation of errors.
func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "Simple error",
			err:      New(InvalidInput, "lower bound above upper bound"),
			contains: []string{"lower bound above upper bound"},
		},
		{
			name: "Wrapped error",
			err: Wrap(
				stderrors.New("no such file"),
				CheckpointFailed,
				"reading state file",
			),
			contains: []string{
				"reading state file",
				"no such file",
			},
		},
		{
			name: "Multiple wraps",
			err: Wrap(
				Wrap(
					stderrors.New("root cause"),
					EvaluationFailed,
					"engine call",
				),
				WorkerFailed,
				"worker 3",
			),
			contains: []string{
				"worker 3",
				"engine call",
				"root cause",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errString := tt.err.Error()
			for _, str := range tt.contains {
				assert.Contains(t, errString, str,
					"Error string should contain expected message")
			}
		})
	}
}

func TestErrorFields(t *testing.T) {
	t.Run("Empty fields", func(t *testing.T) {
		err := New(ValidationFailed, "error")
		customErr := err.(*Error)
		assert.Empty(t, customErr.Fields())
	})

	t.Run("Add fields", func(t *testing.T) {
		fields := Fields{
			"worker":    4,
			"iteration": 17,
			"prefix":    "4",
		}
		err := WithFields(New(WorkerFailed, "run aborted"), fields)
		customErr := err.(*Error)
		assert.Equal(t, fields, customErr.Fields())
	})

	t.Run("Merge fields", func(t *testing.T) {
		err := WithFields(New(ValidationFailed, "error"), Fields{"a": 1})
		err = WithFields(err, Fields{"b": 2})
		customErr := err.(*Error)
		assert.Len(t, customErr.Fields(), 2)
		assert.Equal(t, 1, customErr.Fields()["a"])
		assert.Equal(t, 2, customErr.Fields()["b"])
	})

	t.Run("Fields returns copy not reference", func(t *testing.T) {
		err := WithFields(New(WorkerFailed, "run aborted"), Fields{"worker": 1})
		customErr := err.(*Error)

		returned := customErr.Fields()
		returned["worker"] = 99

		assert.Equal(t, 1, customErr.Fields()["worker"])
	})
}

// TestWithFieldsEdgeCases tests edge cases in WithFields.
func TestWithFieldsEdgeCases(t *testing.T) {
	t.Run("WithFields on nil error", func(t *testing.T) {
		result := WithFields(nil, Fields{"key": "value"})
		assert.Nil(t, result)
	})

	t.Run("WithFields on non-Error type", func(t *testing.T) {
		baseErr := stderrors.New("base error")
		fields := Fields{"context": "test"}

		result := WithFields(baseErr, fields)
		assert.NotNil(t, result)

		customErr, ok := result.(*Error)
		require.True(t, ok)
		assert.Equal(t, Unknown, customErr.Code())
		assert.Equal(t, baseErr, customErr.Unwrap())
		assert.Equal(t, "test", customErr.Fields()["context"])
	})

	t.Run("WithFields field overwriting", func(t *testing.T) {
		err := WithFields(
			New(ValidationFailed, "test"),
			Fields{"key": "original", "other": "value"},
		)

		result := WithFields(err, Fields{"key": "overwritten", "new": "added"})

		customErr, ok := result.(*Error)
		require.True(t, ok)
		fields := customErr.Fields()
		assert.Equal(t, "overwritten", fields["key"])
		assert.Equal(t, "value", fields["other"])
		assert.Equal(t, "added", fields["new"])
	})
}

// TestErrorIsEdgeCases tests edge cases in the Is() method.
func TestErrorIsEdgeCases(t *testing.T) {
	t.Run("Is method with non-Error target", func(t *testing.T) {
		err := New(ValidationFailed, "test")
		baseErr := stderrors.New("base error")

		customErr := err.(*Error)
		assert.False(t, customErr.Is(baseErr))
	})

	t.Run("Is method with nil target", func(t *testing.T) {
		err := New(ValidationFailed, "test")
		customErr := err.(*Error)
		assert.False(t, customErr.Is(nil))
	})

	t.Run("Is method with same instance", func(t *testing.T) {
		err := New(ValidationFailed, "test")
		customErr := err.(*Error)
		assert.True(t, customErr.Is(customErr))
	})
}

func TestCheckContext(t *testing.T) {
	t.Run("Active context", func(t *testing.T) {
		assert.NoError(t, CheckContext(context.Background(), "search"))
	})

	t.Run("Canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := CheckContext(ctx, "search")
		require.Error(t, err)

		customErr, ok := err.(*Error)
		require.True(t, ok)
		assert.Equal(t, Canceled, customErr.Code())
		assert.Contains(t, err.Error(), "search canceled")
		assert.True(t, stderrors.Is(customErr.Unwrap(), context.Canceled))
	})
}

// TestErrorChainIntegration tests a realistic chain from engine to supervisor.
func TestErrorChainIntegration(t *testing.T) {
	baseErr := stderrors.New("matrix solve diverged")

	evalErr := Wrap(baseErr, EvaluationFailed, "evaluating log-likelihood")
	evalErr = WithFields(evalErr, Fields{"iteration": 42})

	workerErr := Wrap(evalErr, WorkerFailed, "genetic algorithm run failed")
	workerErr = WithFields(workerErr, Fields{"worker": 2})

	finalErr := workerErr.(*Error)
	assert.Equal(t, WorkerFailed, finalErr.Code())
	assert.Contains(t, finalErr.Error(), "genetic algorithm run failed")
	assert.Contains(t, finalErr.Error(), "evaluating log-likelihood")
	assert.Contains(t, finalErr.Error(), "matrix solve diverged")
	assert.Contains(t, finalErr.Error(), "worker=2")

	unwrapped := finalErr.Unwrap().(*Error)
	assert.Equal(t, EvaluationFailed, unwrapped.Code())
	assert.Equal(t, 42, unwrapped.Fields()["iteration"])
}
