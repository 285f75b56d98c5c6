// Package mocks provides testify mocks for the adapter interfaces.
package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	m "vistet.dev/pkg/devtask/internal/model"
)

// MockToolRunnerAdapter is a mock implementation of adapter.ToolRunnerAdapter.
type MockToolRunnerAdapter struct {
	mock.Mock
}

// NewMockToolRunnerAdapter creates a mock and registers expectation checks on cleanup.
func NewMockToolRunnerAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockToolRunnerAdapter {
	mockAdapter := &MockToolRunnerAdapter{}
	mockAdapter.Mock.Test(t)

	t.Cleanup(func() { mockAdapter.AssertExpectations(t) })

	return mockAdapter
}

// LookPath provides a mock function.
func (_m *MockToolRunnerAdapter) LookPath(ctx context.Context, command string) (string, error) {
	ret := _m.Called(ctx, command)

	return ret.String(0), ret.Error(1)
}

// Run provides a mock function.
func (_m *MockToolRunnerAdapter) Run(ctx context.Context, workDir string, invocation m.Invocation, stdout, stderr io.Writer) (int, error) {
	ret := _m.Called(ctx, workDir, invocation, stdout, stderr)

	return ret.Int(0), ret.Error(1)
}
