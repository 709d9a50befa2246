package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ruteri/issuance-factory/interfaces"
)

// MockStateBackend implements interfaces.StateBackend for testing
type MockStateBackend struct {
	mock.Mock
	name string
}

func (m *MockStateBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStateBackend) Commit(ctx context.Context, changes []interfaces.StateChange) error {
	args := m.Called(ctx, changes)
	return args.Error(0)
}

func (m *MockStateBackend) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockStateBackend) Name() string {
	return m.name
}

func (m *MockStateBackend) LocationURI() string {
	return "mock://" + m.name
}

func TestMultiStateBackend_Available(t *testing.T) {
	tests := []struct {
		name     string
		backends []bool
		expected bool
	}{
		{
			name:     "all backends available",
			backends: []bool{true, true, true},
			expected: true,
		},
		{
			name:     "some backends available",
			backends: []bool{false, true, false},
			expected: true,
		},
		{
			name:     "no backends available",
			backends: []bool{false, false, false},
			expected: false,
		},
		{
			name:     "no backends",
			backends: []bool{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var backends []interfaces.StateBackend
			for i, available := range tt.backends {
				mockState := &MockStateBackend{name: fmt.Sprintf("mock-A%x", i)}
				mockState.On("Available", mock.Anything).Return(available).Maybe()
				backends = append(backends, mockState)
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStateBackend(backends, logger)

			assert.Equal(t, tt.expected, multi.Available(context.Background()))

			for _, backend := range backends {
				backend.(*MockStateBackend).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStateBackend_Fetch(t *testing.T) {
	testData := []byte(`{"max_items":3}`)
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.StateBackend
		expectedData  []byte
		expectedError error
	}{
		{
			name: "first backend successful",
			setupMocks: func() []interfaces.StateBackend {
				mock1 := &MockStateBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, "config").Return(testData, nil)

				// not consulted once the first backend answers
				mock2 := &MockStateBackend{name: "mock-B"}

				return []interfaces.StateBackend{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "first backend fails, second succeeds",
			setupMocks: func() []interfaces.StateBackend {
				mock1 := &MockStateBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, "config").Return(nil, testErr)

				mock2 := &MockStateBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, "config").Return(testData, nil)

				return []interfaces.StateBackend{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "all backends fail",
			setupMocks: func() []interfaces.StateBackend {
				mock1 := &MockStateBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, "config").Return(nil, testErr)

				mock2 := &MockStateBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, "config").Return(nil, interfaces.ErrStateNotFound)

				return []interfaces.StateBackend{mock1, mock2}
			},
			expectedError: interfaces.ErrBackendUnavailable,
		},
		{
			name: "key missing everywhere",
			setupMocks: func() []interfaces.StateBackend {
				mock1 := &MockStateBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Fetch", mock.Anything, "config").Return(nil, interfaces.ErrStateNotFound)

				mock2 := &MockStateBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(false)

				return []interfaces.StateBackend{mock1, mock2}
			},
			expectedError: interfaces.ErrStateNotFound,
		},
		{
			name: "unavailable backends are skipped",
			setupMocks: func() []interfaces.StateBackend {
				mock1 := &MockStateBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockStateBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Fetch", mock.Anything, "config").Return(testData, nil)

				return []interfaces.StateBackend{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "nothing available",
			setupMocks: func() []interfaces.StateBackend {
				mock1 := &MockStateBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)
				return []interfaces.StateBackend{mock1}
			},
			expectedError: interfaces.ErrBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStateBackend(backends, logger)

			data, err := multi.Fetch(context.Background(), "config")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedData, data)

			for _, backend := range backends {
				backend.(*MockStateBackend).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStateBackend_Commit(t *testing.T) {
	changes := []interfaces.StateChange{{Key: "config", Value: []byte(`{}`)}}
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.StateBackend
		expectedError bool
	}{
		{
			name: "all backends successful",
			setupMocks: func() []interfaces.StateBackend {
				mock1 := &MockStateBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Commit", mock.Anything, changes).Return(nil)

				mock2 := &MockStateBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Commit", mock.Anything, changes).Return(nil)

				return []interfaces.StateBackend{mock1, mock2}
			},
		},
		{
			name: "some backends fail",
			setupMocks: func() []interfaces.StateBackend {
				mock1 := &MockStateBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Commit", mock.Anything, changes).Return(testErr)

				mock2 := &MockStateBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Commit", mock.Anything, changes).Return(nil)

				return []interfaces.StateBackend{mock1, mock2}
			},
		},
		{
			name: "all backends fail",
			setupMocks: func() []interfaces.StateBackend {
				mock1 := &MockStateBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Commit", mock.Anything, changes).Return(testErr)

				mock2 := &MockStateBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Commit", mock.Anything, changes).Return(testErr)

				return []interfaces.StateBackend{mock1, mock2}
			},
			expectedError: true,
		},
		{
			name: "unavailable backends are skipped",
			setupMocks: func() []interfaces.StateBackend {
				mock1 := &MockStateBackend{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockStateBackend{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Commit", mock.Anything, changes).Return(nil)

				return []interfaces.StateBackend{mock1, mock2}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStateBackend(backends, logger)

			err := multi.Commit(context.Background(), changes)

			if tt.expectedError {
				assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
			} else {
				assert.NoError(t, err)
			}

			for _, backend := range backends {
				backend.(*MockStateBackend).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStateBackend_LocationURI(t *testing.T) {
	multi := NewMultiStateBackend([]interfaces.StateBackend{
		&MockStateBackend{name: "a"},
		&MockStateBackend{name: "b"},
	}, nil)

	assert.Equal(t, "multi:[mock://a,mock://b]", multi.LocationURI())
}
