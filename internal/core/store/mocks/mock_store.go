package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/solatis/windowkeeper/internal/types"
)

// MockStore is a mock implementation of store.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key types.ConditionKey) (*types.ConditionRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ConditionRecord), args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, key types.ConditionKey, rec *types.ConditionRecord) error {
	args := m.Called(ctx, key, rec)
	return args.Error(0)
}
