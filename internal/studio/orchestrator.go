package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const noArtifactsMessage = "Failed to generate any images."

type Options struct {
	Service Service
	Logger  *slog.Logger

	// PhaseHintDelay is how long a step with a cosmetic phase hint waits
	// before showing it. Zero disables hints.
	PhaseHintDelay time.Duration
	// AfterFunc schedules f after d and returns a function that cancels it.
	// Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) (stop func() bool)
	// NewID returns request ids. Defaults to uuid.NewString.
	NewID func() string
}

// Orchestrator turns generate intents into Service calls and reconciles the
// responses into a Session. It holds no per-session state, so one value
// serves every session of a process.
type Orchestrator struct {
	svc       Service
	logger    *slog.Logger
	hintDelay time.Duration
	afterFunc func(time.Duration, func()) func() bool
	newID     func() string
}

func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	after := opts.AfterFunc
	if after == nil {
		after = func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		}
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Orchestrator{
		svc:       opts.Service,
		logger:    logger,
		hintDelay: opts.PhaseHintDelay,
		afterFunc: after,
		newID:     newID,
	}
}

// Generate runs the first step of the active mode's flow. For AutoDesign
// that is the text suggestion; the poster batch follows ConfirmSuggestion.
// It blocks until the service answers.
//
// Errors: ErrBusy while another request or a credential check is
// outstanding, *ValidationError for missing inputs (no service call is
// made), *ServiceError for failed or empty responses, ErrStale when the
// session moved on while the call was in flight.
func (o *Orchestrator) Generate(ctx context.Context, s *Session) error {
	return o.run(ctx, s, 0, nil)
}

// ConfirmSuggestion commits the pending text suggestion, optionally replaced
// by an edited copy, and runs the poster batch.
func (o *Orchestrator) ConfirmSuggestion(ctx context.Context, s *Session, edited *TextSuggestion) error {
	return o.run(ctx, s, 1, edited)
}

// Start dispatches the first step like Generate but returns as soon as the
// session shows Loading. The service call happens in Call.Wait, which front
// ends without a blocking event loop run in the background. Every Call
// must be waited on; until then the session stays busy.
func (o *Orchestrator) Start(s *Session) (*Call, error) {
	return o.begin(s, 0, nil)
}

// StartConfirm is the non-blocking form of ConfirmSuggestion.
func (o *Orchestrator) StartConfirm(s *Session, edited *TextSuggestion) (*Call, error) {
	return o.begin(s, 1, edited)
}

// CancelSuggestion discards the pending suggestion and returns the flow to
// input collection.
func (o *Orchestrator) CancelSuggestion(s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.Phase != PhaseAwaitingConfirmation {
		return fmt.Errorf("%w: no suggestion awaiting confirmation", ErrWrongPhase)
	}
	s.st.PendingSuggestion = nil
	s.st.Phase = PhaseAwaitingInput
	s.st.Status = Idle()
	s.updatedAt = time.Now()
	o.logger.Debug("suggestion cancelled", "mode", s.st.Mode)
	return nil
}

// CheckReady reports whether the next step of st's flow could be dispatched,
// without touching any session. Front ends use it to disable triggers.
func CheckReady(st State) error {
	if st.Status.Busy() {
		return ErrBusy
	}
	fl, ok := flows[st.Mode]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, st.Mode)
	}
	sp := fl.steps[0]
	if st.Phase == PhaseAwaitingConfirmation && len(fl.steps) > 1 {
		sp = fl.steps[1]
	}
	if verr := sp.validate(st.Inputs); verr != nil {
		return verr
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, s *Session, idx int, edited *TextSuggestion) error {
	call, err := o.begin(s, idx, edited)
	if err != nil {
		return err
	}
	return call.Wait(ctx)
}

// Call is one dispatched request. Its Loading status is already visible in
// the session.
type Call struct {
	o     *Orchestrator
	s     *Session
	sp    step
	req   request
	id    string
	epoch uint64
	once  sync.Once
}

// ID is the request id the response is matched against.
func (c *Call) ID() string {
	return c.id
}

// begin runs the checks and the Loading transition under the session lock.
func (o *Orchestrator) begin(s *Session, idx int, edited *TextSuggestion) (*Call, error) {
	if o.svc == nil {
		return nil, errors.New("studio: orchestrator has no service")
	}

	s.mu.Lock()
	fl, ok := flows[s.st.Mode]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, s.st.Mode)
	}
	if idx >= len(fl.steps) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: mode %s has no confirmation step", ErrWrongPhase, s.st.Mode)
	}
	if s.st.Status.Busy() {
		mode := s.st.Mode
		s.mu.Unlock()
		o.logger.Debug("generate rejected", "mode", mode, "reason", "busy")
		return nil, ErrBusy
	}
	if idx > 0 && (s.st.Phase != PhaseAwaitingConfirmation || s.st.PendingSuggestion == nil) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no suggestion awaiting confirmation", ErrWrongPhase)
	}

	sp := fl.steps[idx]
	if verr := sp.validate(s.st.Inputs); verr != nil {
		mode := s.st.Mode
		s.st.Status = ErrorStatus(verr.Message)
		s.updatedAt = time.Now()
		s.mu.Unlock()
		o.logger.Debug("generate rejected", "mode", mode, "op", sp.op, "reason", verr.Message)
		return nil, verr
	}

	if edited != nil {
		c := edited.Clone()
		s.st.PendingSuggestion = &c
	}
	req := request{
		mode:       s.st.Mode,
		inputs:     s.st.Inputs,
		tier:       s.st.Tier.Params(),
		modelLabel: s.st.Tier.ModelLabel(),
	}
	if s.st.PendingSuggestion != nil {
		req.suggestion = s.st.PendingSuggestion.Clone()
	}

	switch sp.produces {
	case kindSuggestion:
		s.st.PendingSuggestion = nil
	case kindAnalysis:
		s.st.MagazineResult = nil
	case kindBatch:
		s.st.Batch = nil
		s.st.SelectedIndex = 0
	}
	id := o.newID()
	epoch := s.epoch
	s.request = id
	s.st.Phase = sp.inflight
	s.st.Status = Loading(sp.loading(req))
	s.updatedAt = time.Now()
	s.mu.Unlock()

	return &Call{o: o, s: s, sp: sp, req: req, id: id, epoch: epoch}, nil
}

// Wait calls the service and reconciles the response into the session. It
// returns the same errors as Generate. Only the first call does any work.
func (c *Call) Wait(ctx context.Context) error {
	err := ErrStale
	c.once.Do(func() { err = c.o.finish(ctx, c) })
	return err
}

func (o *Orchestrator) finish(ctx context.Context, c *Call) error {
	s, sp, req, id, epoch := c.s, c.sp, c.req, c.id, c.epoch

	if sp.hint != nil && o.hintDelay > 0 {
		msg := sp.hint(req)
		stop := o.afterFunc(o.hintDelay, func() { s.applyHint(id, msg) })
		defer stop()
	}

	o.logger.Info("generation dispatched",
		"mode", req.mode,
		"op", sp.op,
		"batch", req.inputs.BatchSize,
		"premium", req.tier.Premium,
		"request_id", id,
	)
	start := time.Now()
	out, err := sp.invoke(ctx, o.svc, req)
	dur := time.Since(start).Milliseconds()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || s.request != id {
		o.logger.Debug("stale response discarded", "mode", req.mode, "op", sp.op, "request_id", id, "dur_ms", dur)
		return ErrStale
	}
	s.request = ""
	s.updatedAt = time.Now()

	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = sp.fallback
		}
		s.st.Phase = sp.failed
		s.st.Status = ErrorStatus(msg)
		o.logger.Error("generation failed", "mode", req.mode, "op", sp.op, "request_id", id, "dur_ms", dur, "err", err)
		return &ServiceError{Op: sp.op, Message: msg, Err: err}
	}

	switch sp.produces {
	case kindSuggestion:
		if out.suggestion == nil {
			return o.failLocked(s, sp, id, sp.fallback, nil)
		}
		sug := out.suggestion.Clone()
		s.st.PendingSuggestion = &sug
		s.st.Phase = PhaseAwaitingConfirmation
	case kindAnalysis:
		if out.analysis == nil {
			return o.failLocked(s, sp, id, sp.fallback, nil)
		}
		s.setMagazineLocked(out.analysis)
		s.st.Phase = PhaseAwaitingInput
	case kindBatch:
		if len(out.artifacts) == 0 {
			return o.failLocked(s, sp, id, noArtifactsMessage, ErrNoArtifacts)
		}
		s.setBatchLocked(out.artifacts)
		s.st.PendingSuggestion = nil
		s.st.Phase = PhaseAwaitingInput
	}
	s.st.Status = Idle()

	o.logger.Info("generation completed",
		"mode", req.mode,
		"op", sp.op,
		"request_id", id,
		"dur_ms", dur,
		"artifacts", len(out.artifacts),
	)
	return nil
}

func (o *Orchestrator) failLocked(s *Session, sp step, id, msg string, cause error) error {
	s.st.Phase = sp.failed
	s.st.Status = ErrorStatus(msg)
	if sp.produces == kindBatch {
		s.st.Batch = nil
		s.st.SelectedIndex = 0
	}
	o.logger.Warn("generation returned nothing", "mode", s.st.Mode, "op", sp.op, "request_id", id)
	return &ServiceError{Op: sp.op, Message: msg, Err: cause}
}

// applyHint replaces the loading message if request id is still the one in
// flight; late hints are dropped.
func (s *Session) applyHint(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.request != id || s.st.Status.Kind != StatusLoading {
		return
	}
	s.st.Status = Loading(message)
}
