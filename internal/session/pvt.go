package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ReadyPlayerEmma/looplace/internal/models"
	"github.com/ReadyPlayerEmma/looplace/internal/qc"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/pvt"
	"github.com/ReadyPlayerEmma/looplace/internal/timing"
)

type pvtStimulusEvent struct{ sched pvt.ScheduledStimulus }
type pvtTimeoutEvent struct{ sched pvt.ScheduledTimeout }

type pvtSession struct {
	id     string
	engine *pvt.Engine
	clock  timing.Clock
	sleep  timing.SleepFunc
	store  Store
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	events   chan any
	done     chan struct{}
	doneOnce sync.Once
}

func newPVTSession(id string, m *Manager) *pvtSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &pvtSession{
		id:     id,
		engine: pvt.NewEngine(m.pvtCfg, nil),
		clock:  m.clock,
		sleep:  m.sleep,
		store:  m.store,
		log:    m.log.With(zap.String("session_id", id), zap.String("task", models.TaskPVT)),
		ctx:    ctx,
		cancel: cancel,
		events: make(chan any, 32),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *pvtSession) ID() string   { return s.id }
func (s *pvtSession) Task() string { return models.TaskPVT }

func (s *pvtSession) StartRun(string) {
	reply := make(chan struct{}, 1)
	if s.post(startReq{reply: reply}) {
		s.await(reply)
	}
}

func (s *pvtSession) Respond() string {
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

func (s *pvtSession) Abort() {
	reply := make(chan struct{}, 1)
	if s.post(abortReq{reply: reply}) {
		s.await(reply)
	}
}

func (s *pvtSession) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !s.post(snapshotReq{reply: reply}) {
		return Snapshot{ID: s.id, Task: models.TaskPVT}
	}
	select {
	case snap := <-reply:
		return snap
	case <-s.ctx.Done():
		return Snapshot{ID: s.id, Task: models.TaskPVT}
	}
}

func (s *pvtSession) Done() <-chan struct{} { return s.done }

func (s *pvtSession) stop() { s.cancel() }

// run is the session's single writer. Every engine call happens here.
func (s *pvtSession) run() {
	if sched := s.engine.Start(s.clock.Now()); sched != nil {
		s.scheduleStimulus(*sched)
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			switch ev := ev.(type) {
			case pvtStimulusEvent:
				if to := s.engine.MarkStimulusOn(ev.sched.RunID, ev.sched.TrialIndex, s.clock.Now()); to != nil {
					s.scheduleTimeout(*to)
				}
			case pvtTimeoutEvent:
				s.handleStep(s.engine.RegisterTimeout(ev.sched.RunID, ev.sched.TrialIndex, s.clock.Now()))
			case respondReq:
				before := s.engine.FalseStarts()
				res := s.engine.RegisterResponse(s.clock.Now())
				label := models.OutcomeReaction
				switch {
				case res.Kind == pvt.StepIgnored:
					label = "ignored"
				case s.engine.FalseStarts() > before:
					label = models.OutcomeFalseStart
				}
				ev.reply <- label
				s.handleStep(res)
			case startReq:
				if sched := s.engine.Start(s.clock.Now()); sched != nil {
					s.scheduleStimulus(*sched)
				}
				ev.reply <- struct{}{}
			case abortReq:
				s.engine.Abort(s.clock.Now())
				s.markDone()
				ev.reply <- struct{}{}
			case snapshotReq:
				ev.reply <- s.buildSnapshot()
			}
		}
	}
}

func (s *pvtSession) handleStep(res pvt.StepResult) {
	switch res.Kind {
	case pvt.StepNextScheduled:
		s.scheduleStimulus(*res.Next)
	case pvt.StepRunCompleted:
		s.finish()
	}
}

func (s *pvtSession) finish() {
	metrics, ok := s.engine.Metrics()
	if !ok {
		return
	}
	flags := qc.Flags{MinTrialsMet: metrics.MeetsMinTrialRequirement}
	if err := s.store.SavePVTRun(s.ctx, metrics, s.engine.Trials(), flags); err != nil {
		s.log.Error("failed to persist completed run", zap.Error(err))
	} else {
		s.log.Info("run completed",
			zap.Int("reacted_trials", metrics.ReactedTrials),
			zap.Float64("median_rt_ms", metrics.MedianRTMs))
	}
	s.markDone()
}

func (s *pvtSession) buildSnapshot() Snapshot {
	snap := Snapshot{
		ID:              s.id,
		Task:            models.TaskPVT,
		Phase:           s.engine.Phase().String(),
		RunID:           s.engine.RunID(),
		TotalTrials:     s.engine.Config().TargetTrials,
		CompletedTrials: completedPVTTrials(s.engine.Trials()),
		FalseStarts:     s.engine.FalseStarts(),
	}
	if metrics, ok := s.engine.Metrics(); ok {
		snap.Metrics = marshalMetrics(metrics, s.log)
	}
	return snap
}

func (s *pvtSession) scheduleStimulus(sched pvt.ScheduledStimulus) {
	go func() {
		s.sleep(s.ctx, time.Duration(sched.WaitMs)*time.Millisecond)
		s.post(pvtStimulusEvent{sched: sched})
	}()
}

func (s *pvtSession) scheduleTimeout(sched pvt.ScheduledTimeout) {
	go func() {
		s.sleep(s.ctx, time.Duration(sched.WaitMs)*time.Millisecond)
		s.post(pvtTimeoutEvent{sched: sched})
	}()
}

func (s *pvtSession) post(ev any) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *pvtSession) await(reply <-chan struct{}) {
	select {
	case <-reply:
	case <-s.ctx.Done():
	}
}

func (s *pvtSession) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func completedPVTTrials(trials []pvt.Trial) int {
	count := 0
	for i := range trials {
		if trials[i].Completed() {
			count++
		}
	}
	return count
}
