// Package lifecycle adapts the teacher's BaseService start/stop/health
// state machine into the connector process supervisor: it owns the
// top-level context the stream client and IPC dispatch loop run under,
// and waits for their worker goroutines on shutdown.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service lifecycle errors.
var (
	ErrAlreadyStarted = errors.New("service already started")
	ErrNotRunning     = errors.New("service not running")
)

// State represents the current state of a service.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateError
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// HealthStatus is the service's current health snapshot.
type HealthStatus struct {
	Status    string
	Message   string
	Timestamp time.Time
	Details   map[string]string
}

// BaseService provides start/stop/health bookkeeping for a long-running
// process component: the connector's stream client plus IPC sender run
// under one BaseService per cmd/connector.
type BaseService struct {
	name    string
	version string
	logger  *zap.Logger

	state   State
	stateMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	health   HealthStatus
	healthMu sync.RWMutex

	startHook func(ctx context.Context) error
	stopHook  func(ctx context.Context) error

	wg sync.WaitGroup
}

// NewBaseService creates a new base service.
func NewBaseService(name, version string, logger *zap.Logger) *BaseService {
	return &BaseService{
		name:    name,
		version: version,
		logger:  logger,
		state:   StateStopped,
		health: HealthStatus{
			Status:    "healthy",
			Message:   "service initialized",
			Timestamp: time.Now(),
			Details:   make(map[string]string),
		},
	}
}

// SetStartHook sets the function called when the service starts.
func (bs *BaseService) SetStartHook(hook func(ctx context.Context) error) {
	bs.startHook = hook
}

// SetStopHook sets the function called when the service stops.
func (bs *BaseService) SetStopHook(hook func(ctx context.Context) error) {
	bs.stopHook = hook
}

// Start transitions the service from stopped to running, deriving a
// cancelable context from ctx and invoking the start hook if set.
func (bs *BaseService) Start(ctx context.Context) error {
	bs.stateMu.Lock()
	defer bs.stateMu.Unlock()

	if bs.state != StateStopped {
		return ErrAlreadyStarted
	}

	bs.state = StateStarting
	bs.ctx, bs.cancel = context.WithCancel(ctx)

	bs.logger.Info("starting service", zap.String("service", bs.name))

	if bs.startHook != nil {
		if err := bs.startHook(bs.ctx); err != nil {
			bs.state = StateError
			bs.updateHealth("unhealthy", "failed to start: "+err.Error())
			return err
		}
	}

	bs.state = StateRunning
	bs.updateHealth("healthy", "service running")

	bs.logger.Info("service started", zap.String("service", bs.name))
	return nil
}

// Stop cancels the service context, runs the stop hook, and waits for
// worker goroutines registered via AddWorker to finish or for ctx to
// expire, whichever comes first.
func (bs *BaseService) Stop(ctx context.Context) error {
	bs.stateMu.Lock()
	defer bs.stateMu.Unlock()

	if bs.state != StateRunning {
		return ErrNotRunning
	}

	bs.state = StateStopping
	bs.logger.Info("stopping service", zap.String("service", bs.name))

	if bs.cancel != nil {
		bs.cancel()
	}

	if bs.stopHook != nil {
		if err := bs.stopHook(ctx); err != nil {
			bs.logger.Error("error during service stop", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		bs.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		bs.logger.Warn("service shutdown timeout", zap.String("service", bs.name))
	}

	bs.state = StateStopped
	bs.updateHealth("healthy", "service stopped")

	bs.logger.Info("service stopped", zap.String("service", bs.name))
	return nil
}

// Health returns the current health status.
func (bs *BaseService) Health() HealthStatus {
	bs.healthMu.RLock()
	defer bs.healthMu.RUnlock()
	return bs.health
}

func (bs *BaseService) Name() string    { return bs.name }
func (bs *BaseService) Version() string { return bs.version }

// State returns the current service state.
func (bs *BaseService) State() State {
	bs.stateMu.RLock()
	defer bs.stateMu.RUnlock()
	return bs.state
}

// Context returns the service's derived context; valid only after Start.
func (bs *BaseService) Context() context.Context {
	return bs.ctx
}

// AddWorker registers a worker goroutine with the shutdown wait group.
func (bs *BaseService) AddWorker() {
	bs.wg.Add(1)
}

// WorkerDone signals that a worker goroutine registered via AddWorker has
// finished.
func (bs *BaseService) WorkerDone() {
	bs.wg.Done()
}

func (bs *BaseService) updateHealth(status, message string) {
	bs.healthMu.Lock()
	defer bs.healthMu.Unlock()

	bs.health.Status = status
	bs.health.Message = message
	bs.health.Timestamp = time.Now()
}

// SetHealthStatus sets the overall health status.
func (bs *BaseService) SetHealthStatus(status, message string) {
	bs.updateHealth(status, message)
}

// UpdateHealthDetails merges a detail key/value into the health snapshot.
func (bs *BaseService) UpdateHealthDetails(key, value string) {
	bs.healthMu.Lock()
	defer bs.healthMu.Unlock()

	if bs.health.Details == nil {
		bs.health.Details = make(map[string]string)
	}
	bs.health.Details[key] = value
	bs.health.Timestamp = time.Now()
}

// IsRunning reports whether the service is in the running state.
func (bs *BaseService) IsRunning() bool {
	bs.stateMu.RLock()
	defer bs.stateMu.RUnlock()
	return bs.state == StateRunning
}

// WaitForShutdown blocks until the service's context is canceled.
func (bs *BaseService) WaitForShutdown() {
	if bs.ctx != nil {
		<-bs.ctx.Done()
	}
}
