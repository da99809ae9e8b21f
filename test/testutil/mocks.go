package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/arloliu/tether"
	"github.com/arloliu/tether/types"
)

// MockFaultReason is the reason carried by MockService.GetError's remote fault.
const MockFaultReason = "Error"

// MockService is a minimal remote contract used across tether tests.
type MockService interface {
	GetData(ctx context.Context) (string, error)
	GetError(ctx context.Context) (string, error)
}

// mockService answers GetData with "Success" and faults on GetError.
type mockService struct {
	calls *atomic.Int32
}

// GetData returns "Success".
func (s *mockService) GetData(_ context.Context) (string, error) {
	s.calls.Add(1)
	return "Success", nil
}

// GetError returns a remote fault.
func (s *mockService) GetError(_ context.Context) (string, error) {
	s.calls.Add(1)
	return "", &types.RemoteFault{Reason: MockFaultReason}
}

// MockHandle is a mock implementation of tether.Handle for testing.
//
// It records every state transition and counts Close and Abort calls.
type MockHandle[C any] struct {
	mu          sync.Mutex
	state       types.HandleState
	transitions []types.HandleState
	cfg         types.EndpointConfig
	contract    C

	closeCalls atomic.Int32
	abortCalls atomic.Int32

	// Hooks for custom behavior
	OpenErr  error
	CloseErr error
	OnOpen   func(ctx context.Context) error
	OnClose  func(ctx context.Context) error
	OnAbort  func()
}

// Compile-time assertion that MockHandle implements tether.Handle.
var _ tether.Handle[MockService] = (*MockHandle[MockService])(nil)

// NewMockHandle creates a handle in the Created state.
func NewMockHandle[C any](contract C, cfg types.EndpointConfig) *MockHandle[C] {
	return &MockHandle[C]{
		state:       types.StateCreated,
		transitions: []types.HandleState{types.StateCreated},
		cfg:         cfg,
		contract:    contract,
	}
}

func (h *MockHandle[C]) set(s types.HandleState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state = s
	h.transitions = append(h.transitions, s)
}

// Open transitions to Open unless OpenErr or OnOpen fails.
func (h *MockHandle[C]) Open(ctx context.Context) error {
	if h.OnOpen != nil {
		if err := h.OnOpen(ctx); err != nil {
			return err
		}
	}
	if h.OpenErr != nil {
		return h.OpenErr
	}
	if h.State() != types.StateCreated {
		return types.ErrHandleState
	}
	h.set(types.StateOpen)

	return nil
}

// Contract returns the bound contract.
func (h *MockHandle[C]) Contract() C {
	return h.contract
}

// Close transitions to Closed unless CloseErr or OnClose fails.
func (h *MockHandle[C]) Close(ctx context.Context) error {
	h.closeCalls.Add(1)
	if h.OnClose != nil {
		if err := h.OnClose(ctx); err != nil {
			return err
		}
	}
	if h.CloseErr != nil {
		return h.CloseErr
	}
	if h.State() != types.StateOpen {
		return types.ErrHandleState
	}
	h.set(types.StateClosed)

	return nil
}

// Abort transitions to Aborted.
func (h *MockHandle[C]) Abort() {
	h.abortCalls.Add(1)
	if h.OnAbort != nil {
		h.OnAbort()
	}
	h.set(types.StateAborted)
}

// Fault marks the handle Faulted, as a broken transport would.
func (h *MockHandle[C]) Fault() {
	h.set(types.StateFaulted)
}

// State returns the current state.
func (h *MockHandle[C]) State() types.HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

// Transitions returns every state the handle has been in, in order.
func (h *MockHandle[C]) Transitions() []types.HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()

	return slices.Clone(h.transitions)
}

// Endpoint returns the configuration the handle was created with.
func (h *MockHandle[C]) Endpoint() types.EndpointConfig {
	return h.cfg
}

// CloseCalls returns how many times Close was called.
func (h *MockHandle[C]) CloseCalls() int {
	return int(h.closeCalls.Load())
}

// AbortCalls returns how many times Abort was called.
func (h *MockHandle[C]) AbortCalls() int {
	return int(h.abortCalls.Load())
}

// MockFactory is a mock implementation of tether.ConnectionFactory.
//
// Every created handle is retained for inspection.
type MockFactory[C any] struct {
	mu      sync.Mutex
	handles []*MockHandle[C]
	newC    func() C

	// Hooks
	CreateErr error
	OnCreate  func(h *MockHandle[C])
}

// NewMockFactory creates a factory whose handles carry newC().
func NewMockFactory[C any](newC func() C) *MockFactory[C] {
	return &MockFactory[C]{newC: newC}
}

// NewMockServiceFactory creates a factory for MockService.
//
// Returns:
//   - *MockFactory[MockService]: The factory
//   - *atomic.Int32: Number of calls made on any handle's contract
func NewMockServiceFactory() (*MockFactory[MockService], *atomic.Int32) {
	calls := &atomic.Int32{}
	f := NewMockFactory(func() MockService { return &mockService{calls: calls} })

	return f, calls
}

// Create implements tether.ConnectionFactory.
func (f *MockFactory[C]) Create(_ context.Context, cfg types.EndpointConfig) (tether.Handle[C], error) {
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	h := NewMockHandle(f.newC(), cfg)
	if f.OnCreate != nil {
		f.OnCreate(h)
	}

	f.mu.Lock()
	f.handles = append(f.handles, h)
	f.mu.Unlock()

	return h, nil
}

// Handles returns every handle created so far.
func (f *MockFactory[C]) Handles() []*MockHandle[C] {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.handles)
}

// Last returns the most recently created handle, or nil.
func (f *MockFactory[C]) Last() *MockHandle[C] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.handles) == 0 {
		return nil
	}

	return f.handles[len(f.handles)-1]
}

// MockObserver records notifications.
type MockObserver struct {
	mu            sync.Mutex
	notifications []types.Notification
}

// NewMockObserver creates an empty recording observer.
func NewMockObserver() *MockObserver {
	return &MockObserver{}
}

// OnFailure records n.
func (o *MockObserver) OnFailure(n types.Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.notifications = append(o.notifications, n)
}

// Notifications returns every recorded notification.
func (o *MockObserver) Notifications() []types.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()

	return slices.Clone(o.notifications)
}

// Count returns the number of recorded notifications.
func (o *MockObserver) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.notifications)
}

// HasError reports whether any notification's error matches target.
func (o *MockObserver) HasError(target error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, n := range o.notifications {
		if errors.Is(n.Err, target) {
			return true
		}
	}

	return false
}
