package clients

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/issuance-factory/interfaces"
)

// MockFactoryOperations implements interfaces.FactoryOperations for testing.
type MockFactoryOperations struct {
	mock.Mock
}

func (m *MockFactoryOperations) Initialize(ctx context.Context, params interfaces.InstantiateParams) (*interfaces.CreationRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.CreationRequest), args.Error(1)
}

func (m *MockFactoryOperations) AcceptPayment(ctx context.Context, notification interfaces.PaymentNotification) (*interfaces.CreateItemCommand, error) {
	args := m.Called(ctx, notification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.CreateItemCommand), args.Error(1)
}

func (m *MockFactoryOperations) HandleDeferredCompletion(ctx context.Context, notification interfaces.CompletionNotification) (interfaces.Address, error) {
	args := m.Called(ctx, notification)
	return args.Get(0).(interfaces.Address), args.Error(1)
}

func (m *MockFactoryOperations) ReadConfiguration(ctx context.Context) (*interfaces.ConfigResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ConfigResponse), args.Error(1)
}

func (m *MockFactoryOperations) ReadContractInfo(ctx context.Context) (*interfaces.ContractInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ContractInfo), args.Error(1)
}

func (m *MockFactoryOperations) Migrate(ctx context.Context, req interfaces.MigrateRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
