package dispatch

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/issuance-factory/interfaces"
)

// MockDispatcher mocks the interfaces.Dispatcher interface
type MockDispatcher struct {
	mock.Mock
}

// Dispatch mocks the Dispatch method
func (m *MockDispatcher) Dispatch(ctx context.Context, msg interfaces.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// Name mocks the Name method
func (m *MockDispatcher) Name() string {
	return "mock"
}
