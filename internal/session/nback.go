package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ReadyPlayerEmma/looplace/internal/models"
	"github.com/ReadyPlayerEmma/looplace/internal/qc"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/nback"
	"github.com/ReadyPlayerEmma/looplace/internal/timing"
)

type nbackStimulusEvent struct{ sched nback.TrialSchedule }
type nbackAdvanceEvent struct{ sched nback.ScheduledAdvance }

type nbackSession struct {
	id     string
	engine *nback.Engine
	clock  timing.Clock
	sleep  timing.SleepFunc
	store  Store
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	events   chan any
	done     chan struct{}
	doneOnce sync.Once

	firstMode nback.Mode
}

func newNBackSession(id string, m *Manager, mode nback.Mode) *nbackSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &nbackSession{
		id:        id,
		engine:    nback.NewEngine(m.nbackCfg),
		clock:     m.clock,
		sleep:     m.sleep,
		store:     m.store,
		log:       m.log.With(zap.String("session_id", id), zap.String("task", models.TaskNBack2)),
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan any, 32),
		done:      make(chan struct{}),
		firstMode: mode,
	}
	go s.run()
	return s
}

func (s *nbackSession) ID() string   { return s.id }
func (s *nbackSession) Task() string { return models.TaskNBack2 }

func (s *nbackSession) StartRun(mode string) {
	reply := make(chan struct{}, 1)
	if s.post(startReq{mode: mode, reply: reply}) {
		s.await(reply)
	}
}

func (s *nbackSession) Respond() string {
	reply := make(chan string, 1)
	if !s.post(respondReq{reply: reply}) {
		return "ignored"
	}
	select {
	case label := <-reply:
		return label
	case <-s.ctx.Done():
		return "ignored"
	}
}

func (s *nbackSession) Abort() {
	reply := make(chan struct{}, 1)
	if s.post(abortReq{reply: reply}) {
		s.await(reply)
	}
}

func (s *nbackSession) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !s.post(snapshotReq{reply: reply}) {
		return Snapshot{ID: s.id, Task: models.TaskNBack2}
	}
	select {
	case snap := <-reply:
		return snap
	case <-s.ctx.Done():
		return Snapshot{ID: s.id, Task: models.TaskNBack2}
	}
}

func (s *nbackSession) Done() <-chan struct{} { return s.done }

func (s *nbackSession) stop() { s.cancel() }

func (s *nbackSession) run() {
	s.startRun(s.firstMode)

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			switch ev := ev.(type) {
			case nbackStimulusEvent:
				// The response window is anchored at stimulus onset, so the
				// advance timer is armed only once the stimulus lands.
				if s.engine.MarkStimulusOn(ev.sched.Stimulus.RunID, ev.sched.Stimulus.TrialIndex, s.clock.Now()) {
					s.scheduleAdvance(ev.sched.Advance)
				}
			case nbackAdvanceEvent:
				s.handleAdvance(s.engine.Advance(ev.sched.RunID, ev.sched.TrialIndex))
			case respondReq:
				ev.reply <- responseLabel(s.engine.RegisterResponse(s.clock.Now()))
			case startReq:
				mode := nback.ModeMain
				if ev.mode == nback.ModePractice.String() {
					mode = nback.ModePractice
				}
				s.startRun(mode)
				ev.reply <- struct{}{}
			case abortReq:
				s.engine.Abort()
				s.markDone()
				ev.reply <- struct{}{}
			case snapshotReq:
				ev.reply <- s.buildSnapshot()
			}
		}
	}
}

func (s *nbackSession) startRun(mode nback.Mode) {
	if sched := s.engine.Start(mode); sched != nil {
		s.scheduleStimulus(*sched)
	}
}

func (s *nbackSession) handleAdvance(res nback.AdvanceResult) {
	switch res.Kind {
	case nback.AdvanceNext:
		s.scheduleStimulus(*res.Next)
	case nback.AdvanceCompleted:
		s.finish(res.Mode)
	}
}

// finish persists main runs only. Practice metrics stay on the engine for
// snapshot reads and are discarded with the session.
func (s *nbackSession) finish(mode nback.Mode) {
	if mode != nback.ModeMain {
		s.log.Info("practice run completed")
		return
	}

	metrics, ok := s.engine.MainMetrics()
	if !ok {
		return
	}
	if err := s.store.SaveNBackRun(s.ctx, metrics, s.engine.Trials(), qc.Pristine()); err != nil {
		s.log.Error("failed to persist completed run", zap.Error(err))
	} else {
		s.log.Info("run completed",
			zap.Float64("d_prime", metrics.DPrime),
			zap.Float64("accuracy", metrics.Accuracy))
	}
	s.markDone()
}

func (s *nbackSession) buildSnapshot() Snapshot {
	trials := s.engine.Trials()
	snap := Snapshot{
		ID:              s.id,
		Task:            models.TaskNBack2,
		Mode:            s.engine.Mode().String(),
		Phase:           s.engine.Phase().String(),
		RunID:           s.engine.RunID(),
		TotalTrials:     len(trials),
		CompletedTrials: retiredNBackTrials(trials),
	}
	if metrics, ok := s.engine.MainMetrics(); ok {
		snap.Metrics = marshalMetrics(metrics, s.log)
	}
	if metrics, ok := s.engine.PracticeMetrics(); ok {
		snap.PracticeMetrics = marshalMetrics(metrics, s.log)
	}
	return snap
}

func (s *nbackSession) scheduleStimulus(sched nback.TrialSchedule) {
	go func() {
		s.sleep(s.ctx, time.Duration(sched.Stimulus.WaitMs)*time.Millisecond)
		s.post(nbackStimulusEvent{sched: sched})
	}()
}

func (s *nbackSession) scheduleAdvance(sched nback.ScheduledAdvance) {
	go func() {
		s.sleep(s.ctx, time.Duration(sched.WaitMs)*time.Millisecond)
		s.post(nbackAdvanceEvent{sched: sched})
	}()
}

func (s *nbackSession) post(ev any) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *nbackSession) await(reply <-chan struct{}) {
	select {
	case <-reply:
	case <-s.ctx.Done():
	}
}

func (s *nbackSession) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func responseLabel(kind nback.ResponseKind) string {
	switch kind {
	case nback.ResponseHit:
		return models.OutcomeHit
	case nback.ResponseFalseAlarm:
		return models.OutcomeFalseAlarm
	}
	return "ignored"
}

func retiredNBackTrials(trials []nback.Trial) int {
	count := 0
	for i := range trials {
		if trials[i].Outcome.Kind != nback.OutcomePending {
			count++
		}
	}
	return count
}
