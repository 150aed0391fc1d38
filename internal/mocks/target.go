package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/target"
	"github.com/2ykwang/mac-maintain-go/internal/types"
)

// MockTarget implements target.Target interface for testing.
type MockTarget struct {
	mock.Mock
}

func (m *MockTarget) Scan(ctx context.Context, mode scanner.Mode, progress target.ProgressFunc) (*types.ScanResult, error) {
	args := m.Called(ctx, mode, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ScanResult), args.Error(1)
}

func (m *MockTarget) Category() types.Category {
	args := m.Called()
	return args.Get(0).(types.Category)
}

func (m *MockTarget) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}
