package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	m "vistet.dev/pkg/devtask/internal/model"
)

// MockWatcherAdapter is a mock implementation of adapter.WatcherAdapter.
type MockWatcherAdapter struct {
	mock.Mock
}

// NewMockWatcherAdapter creates a mock and registers expectation checks on cleanup.
func NewMockWatcherAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWatcherAdapter {
	mockAdapter := &MockWatcherAdapter{}
	mockAdapter.Mock.Test(t)

	t.Cleanup(func() { mockAdapter.AssertExpectations(t) })

	return mockAdapter
}

// Watch provides a mock function.
func (_m *MockWatcherAdapter) Watch(ctx context.Context, roots []m.Path, skipDirs []string) (<-chan m.Path, <-chan error, error) {
	ret := _m.Called(ctx, roots, skipDirs)

	var changes <-chan m.Path
	if fn, ok := ret.Get(0).(func() <-chan m.Path); ok {
		changes = fn()
	} else if ret.Get(0) != nil {
		changes = ret.Get(0).(<-chan m.Path)
	}

	var errs <-chan error
	if ret.Get(1) != nil {
		errs = ret.Get(1).(<-chan error)
	}

	return changes, errs, ret.Error(2)
}
