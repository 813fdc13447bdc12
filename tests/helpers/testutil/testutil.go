// Package testutil provides mocks and fixtures shared by shell tests.
package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/modshell/internal/domain/activation"
	"github.com/GriffinCanCode/modshell/internal/domain/navigation"
)

// MockHandler is a mock activation.Handler
type MockHandler struct {
	mock.Mock
}

// CanHandle mocks the CanHandle method.
func (m *MockHandler) CanHandle(ctx context.Context, e *activation.Event) (bool, error) {
	args := m.Called(ctx, e)
	return args.Bool(0), args.Error(1)
}

// Handle mocks the Handle method.
func (m *MockHandler) Handle(ctx context.Context, e *activation.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

// NewMockHandler creates a handler that accepts (or refuses) every event
// and handles it successfully.
func NewMockHandler(t *testing.T, accepts bool) *MockHandler {
	t.Helper()
	m := new(MockHandler)
	m.On("CanHandle", mock.Anything, mock.Anything).Return(accepts, nil).Maybe()
	m.On("Handle", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// MockIdentifiableHandler is a MockHandler with a stable GUID
type MockIdentifiableHandler struct {
	MockHandler
	ID uuid.UUID
}

// HandlerID returns the handler GUID
func (m *MockIdentifiableHandler) HandlerID() uuid.UUID {
	return m.ID
}

// MockGuard is a mock navigation.Guard
type MockGuard struct {
	mock.Mock
}

// CanNavigate mocks the CanNavigate method.
func (m *MockGuard) CanNavigate(ctx context.Context, req *navigation.Request) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}

// NewMockGuard creates a guard with a fixed answer
func NewMockGuard(t *testing.T, allow bool) *MockGuard {
	t.Helper()
	m := new(MockGuard)
	m.On("CanNavigate", mock.Anything, mock.Anything).Return(allow, nil).Maybe()
	return m
}

// MockPresenter is a mock navigation.Presenter
type MockPresenter struct {
	mock.Mock
}

// Present mocks the Present method.
func (m *MockPresenter) Present(ctx context.Context, meta navigation.Metadata, frame navigation.Frame, req *navigation.Request) error {
	args := m.Called(ctx, meta, frame, req)
	return args.Error(0)
}

// NewMockPresenter creates a presenter that accepts every frame
func NewMockPresenter(t *testing.T) *MockPresenter {
	t.Helper()
	m := new(MockPresenter)
	m.On("Present", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// StubFrame is a frame that records the requests it was shown with
type StubFrame struct {
	Name     string
	Requests []*navigation.Request
	// Err, when set, is returned instead of recording the request
	Err error
}

// OnNavigatedTo records the request
func (f *StubFrame) OnNavigatedTo(_ context.Context, req *navigation.Request) error {
	if f.Err != nil {
		return f.Err
	}
	f.Requests = append(f.Requests, req)
	return nil
}
