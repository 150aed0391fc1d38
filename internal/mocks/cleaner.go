package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/2ykwang/mac-maintain-go/internal/privilege"
)

// MockTrasher implements cleaner.Trasher interface for testing.
type MockTrasher struct {
	mock.Mock
}

func (m *MockTrasher) Trash(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

// MockPrivilegedRunner implements cleaner.PrivilegedRunner interface for testing.
type MockPrivilegedRunner struct {
	mock.Mock
}

func (m *MockPrivilegedRunner) RunPrivilegedBatch(ctx context.Context, s *privilege.Session, cmds []privilege.Command) []error {
	args := m.Called(ctx, s, cmds)
	if fn, ok := args.Get(0).(func([]privilege.Command) []error); ok {
		return fn(cmds)
	}
	return args.Get(0).([]error)
}

// MockElevator implements privilege.Elevator interface for testing.
type MockElevator struct {
	mock.Mock
}

func (m *MockElevator) Authorize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockElevator) Execute(ctx context.Context, script string) ([]byte, error) {
	args := m.Called(ctx, script)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}
