// Package session hosts server-driven task runs. Each session owns one engine
// and drives it from a single goroutine: timers, responses, and snapshot reads
// all arrive over the same event channel, so the engine never sees concurrent
// callers and stale timer events degrade to no-ops inside the engine itself.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ReadyPlayerEmma/looplace/internal/models"
	"github.com/ReadyPlayerEmma/looplace/internal/qc"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/nback"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/pvt"
	"github.com/ReadyPlayerEmma/looplace/internal/timing"
)

var (
	ErrNotFound    = errors.New("session not found")
	ErrUnknownTask = errors.New("unknown task")
)

// Store receives completed runs for persistence. Practice 2-back runs are
// never forwarded here.
type Store interface {
	SavePVTRun(ctx context.Context, m pvt.Metrics, trials []pvt.Trial, flags qc.Flags) error
	SaveNBackRun(ctx context.Context, m nback.Metrics, trials []nback.Trial, flags qc.Flags) error
}

// Snapshot is a point-in-time view of a session, safe to serialize.
type Snapshot struct {
	ID              string          `json:"id"`
	Task            string          `json:"task"`
	Mode            string          `json:"mode,omitempty"`
	Phase           string          `json:"phase"`
	RunID           uint64          `json:"run_id"`
	TotalTrials     int             `json:"total_trials"`
	CompletedTrials int             `json:"completed_trials"`
	FalseStarts     uint32          `json:"false_starts,omitempty"`
	Metrics         json.RawMessage `json:"metrics,omitempty"`
	PracticeMetrics json.RawMessage `json:"practice_metrics,omitempty"`
}

// Session is one live task run driven by its own goroutine.
type Session interface {
	ID() string
	Task() string
	// StartRun begins a new run on the existing engine, e.g. the main 2-back
	// run after practice. The engine ignores it while a run is active.
	StartRun(mode string)
	// Respond registers a keypress and reports how it was classified.
	Respond() string
	Abort()
	Snapshot() Snapshot
	// Done is closed once a run reaches a terminal phase.
	Done() <-chan struct{}
	stop()
}

// request/reply events shared by both drivers.
type (
	respondReq  struct{ reply chan string }
	snapshotReq struct{ reply chan Snapshot }
	abortReq    struct{ reply chan struct{} }
	startReq    struct {
		mode  string
		reply chan struct{}
	}
)

// Manager creates sessions and routes API calls to them by id.
type Manager struct {
	log   *zap.Logger
	clock timing.Clock
	sleep timing.SleepFunc
	store Store

	pvtCfg   pvt.Config
	nbackCfg nback.Config

	mu       sync.Mutex
	sessions map[string]Session
}

func NewManager(log *zap.Logger, clock timing.Clock, sleep timing.SleepFunc, store Store, pvtCfg pvt.Config, nbackCfg nback.Config) *Manager {
	return &Manager{
		log:      log,
		clock:    clock,
		sleep:    sleep,
		store:    store,
		pvtCfg:   pvtCfg,
		nbackCfg: nbackCfg,
		sessions: make(map[string]Session),
	}
}

// Start creates a session for the task and begins its first run. For 2-back
// the mode selects practice or main; PVT ignores it.
func (m *Manager) Start(task, mode string) (Snapshot, error) {
	id := uuid.NewString()

	var sess Session
	switch task {
	case models.TaskPVT:
		sess = newPVTSession(id, m)
	case models.TaskNBack2:
		nbMode := nback.ModeMain
		if mode == nback.ModePractice.String() {
			nbMode = nback.ModePractice
		}
		sess = newNBackSession(id, m, nbMode)
	default:
		return Snapshot{}, ErrUnknownTask
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.log.Info("session started", zap.String("session_id", id), zap.String("task", task))
	return sess.Snapshot(), nil
}

// StartRun begins another run on an existing session.
func (m *Manager) StartRun(id, mode string) (Snapshot, error) {
	sess, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.StartRun(mode)
	return sess.Snapshot(), nil
}

// Respond forwards a keypress and returns its classification.
func (m *Manager) Respond(id string) (string, error) {
	sess, err := m.get(id)
	if err != nil {
		return "", err
	}
	return sess.Respond(), nil
}

// Abort ends the session's run and removes the session.
func (m *Manager) Abort(id string) error {
	sess, err := m.get(id)
	if err != nil {
		return err
	}
	sess.Abort()

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	sess.stop()
	m.log.Info("session aborted", zap.String("session_id", id))
	return nil
}

// Snapshot returns the current view of a session.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	sess, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Close stops every session driver. Runs in flight are dropped, not persisted.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		sess.stop()
		delete(m.sessions, id)
	}
}

func marshalMetrics(v any, log *zap.Logger) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("failed to marshal metrics", zap.Error(err))
		return nil
	}
	return data
}

func (m *Manager) get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}
