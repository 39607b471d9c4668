package studio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

const (
	emptyCredentialMessage  = "API Key cannot be empty"
	validationFallbackError = "Validation failed. Check your key."
)

// Gate is the Model Tier Gate. It owns the Standard / PendingCredential /
// Premium transitions of a session's tier.
type Gate struct {
	validator CredentialValidator
	logger    *slog.Logger
}

type GateOptions struct {
	Validator CredentialValidator
	Logger    *slog.Logger
}

func NewGate(opts GateOptions) *Gate {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gate{validator: opts.Validator, logger: logger}
}

// SetPremium is the premium toggle. Turning it on without a stored
// credential opens the gate instead of enabling premium.
func (g *Gate) SetPremium(s *Session, on bool) Tier {
	if on {
		return g.RequestPremium(s)
	}
	return g.DisablePremium(s)
}

func (g *Gate) RequestPremium(s *Session) Tier {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &s.st.Tier
	if t.HasCredential() {
		t.Gate = GatePremium
		t.UsingPremium = true
		t.GateError = ""
	} else {
		t.Gate = GatePendingCredential
		t.UsingPremium = false
	}
	s.updatedAt = time.Now()
	return *t
}

// DisablePremium returns to Standard. The credential is kept so re-enabling
// does not prompt again.
func (g *Gate) DisablePremium(s *Session) Tier {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &s.st.Tier
	t.Gate = GateStandard
	t.UsingPremium = false
	t.GateError = ""
	s.updatedAt = time.Now()
	return *t
}

// CancelCredential closes the gate dialog. Only PendingCredential reverts;
// other states are returned unchanged.
func (g *Gate) CancelCredential(s *Session) Tier {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &s.st.Tier
	if t.Gate == GatePendingCredential {
		s.gateSeq++
		t.Gate = GateStandard
		t.UsingPremium = false
		t.GateError = ""
		t.Validating = false
		if s.st.Status.Kind == StatusValidating {
			s.st.Status = Idle()
		}
		s.updatedAt = time.Now()
	}
	return *t
}

// SubmitCredential validates candidate and, on success, stores it and
// enables Premium. On failure the gate stays open and the validator's
// reason is kept in Tier.GateError and returned as a *CredentialFailure.
// Validation may overlap a generation; only a second validation is ErrBusy.
func (g *Gate) SubmitCredential(ctx context.Context, s *Session, candidate string) error {
	candidate = strings.TrimSpace(candidate)

	s.mu.Lock()
	t := &s.st.Tier
	if t.Gate != GatePendingCredential {
		s.mu.Unlock()
		return fmt.Errorf("%w: credential dialog is not open", ErrWrongPhase)
	}
	if t.Validating {
		s.mu.Unlock()
		return ErrBusy
	}
	if candidate == "" {
		t.GateError = emptyCredentialMessage
		s.mu.Unlock()
		return &CredentialFailure{Message: emptyCredentialMessage}
	}
	if g.validator == nil {
		s.mu.Unlock()
		return fmt.Errorf("studio: gate has no validator")
	}
	s.gateSeq++
	seq := s.gateSeq
	prev := s.st.Status
	t.Validating = true
	t.GateError = ""
	// A generation in flight keeps its Loading status.
	if s.st.Status.Kind != StatusLoading {
		s.st.Status = Validating()
	}
	s.mu.Unlock()

	start := time.Now()
	err := g.validator.ValidateCredential(ctx, candidate)
	dur := time.Since(start).Milliseconds()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gateSeq != seq {
		g.logger.Debug("stale credential validation discarded", "dur_ms", dur)
		return ErrStale
	}
	t = &s.st.Tier
	t.Validating = false
	if s.st.Status.Kind == StatusValidating {
		s.st.Status = prev
	}
	s.updatedAt = time.Now()

	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = validationFallbackError
		}
		t.GateError = msg
		g.logger.Info("credential rejected", "dur_ms", dur, "reason", msg)
		return &CredentialFailure{Message: msg, Err: err}
	}

	t.Credential = candidate
	t.Gate = GatePremium
	t.UsingPremium = true
	t.GateError = ""
	g.logger.Info("premium enabled", "dur_ms", dur)
	return nil
}
