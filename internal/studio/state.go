package studio

import (
	"fmt"
	"sync"
	"time"
)

// Phase tracks where the active mode is in its request sequence.
type Phase string

const (
	PhaseAwaitingInput        Phase = "awaiting_input"
	PhaseAwaitingSuggestion   Phase = "awaiting_suggestion"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseAwaitingResult       Phase = "awaiting_result"
)

type StatusKind string

const (
	StatusIdle       StatusKind = "idle"
	StatusValidating StatusKind = "validating"
	StatusLoading    StatusKind = "loading"
	StatusError      StatusKind = "error"
)

type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message,omitempty"`
}

func Idle() Status                      { return Status{Kind: StatusIdle} }
func Validating() Status                { return Status{Kind: StatusValidating} }
func Loading(message string) Status     { return Status{Kind: StatusLoading, Message: message} }
func ErrorStatus(message string) Status { return Status{Kind: StatusError, Message: message} }

// Busy reports whether generate triggers must be disabled.
func (s Status) Busy() bool {
	return s.Kind == StatusLoading || s.Kind == StatusValidating
}

type GateState string

const (
	GateStandard          GateState = "standard"
	GatePendingCredential GateState = "pending_credential"
	GatePremium           GateState = "premium"
)

// Tier is the model-tier credential state. It survives mode switches.
type Tier struct {
	Gate         GateState `json:"gate"`
	UsingPremium bool      `json:"using_premium"`
	Credential   string    `json:"-"`
	GateError    string    `json:"gate_error,omitempty"`
	Validating   bool      `json:"validating,omitempty"`
}

func (t Tier) HasCredential() bool {
	return t.Credential != ""
}

// Params is what the generation service receives. The credential is passed
// whenever one is stored, premium or not.
func (t Tier) Params() TierParams {
	return TierParams{Premium: t.UsingPremium, Credential: t.Credential}
}

// ModelLabel is the display name of the model tier in use.
func (t Tier) ModelLabel() string {
	if t.UsingPremium {
		return "Gemini 3 Pro"
	}
	return "Gemini 2.5 Flash"
}

// State is the serializable session aggregate. Values returned by
// Session.Snapshot are copies and safe to keep.
type State struct {
	Mode              Mode              `json:"mode"`
	Phase             Phase             `json:"phase"`
	Inputs            Inputs            `json:"inputs"`
	PendingSuggestion *TextSuggestion   `json:"pending_suggestion,omitempty"`
	MagazineResult    *MagazineAnalysis `json:"magazine_result,omitempty"`
	Batch             []Artifact        `json:"batch,omitempty"`
	SelectedIndex     int               `json:"selected_index"`
	Status            Status            `json:"status"`
	Tier              Tier              `json:"tier"`
}

func (st State) clone() State {
	out := st
	if st.PendingSuggestion != nil {
		s := st.PendingSuggestion.Clone()
		out.PendingSuggestion = &s
	}
	if st.MagazineResult != nil {
		m := *st.MagazineResult
		out.MagazineResult = &m
	}
	out.Batch = append([]Artifact(nil), st.Batch...)
	return out
}

func newState(mode Mode) State {
	return State{
		Mode:   mode,
		Phase:  PhaseAwaitingInput,
		Inputs: DefaultInputs(mode),
		Status: Idle(),
		Tier:   Tier{Gate: GateStandard},
	}
}

// Session is the Session State Store: the single mutable aggregate of one
// user session. All mutation goes through its named operations.
type Session struct {
	mu sync.Mutex
	st State

	// epoch changes on every mode switch or reset; responses carrying an
	// older epoch are stale.
	epoch uint64
	// request is the id of the only request whose response is still wanted.
	request string
	// gateSeq invalidates credential validations the user walked away from.
	gateSeq uint64

	updatedAt time.Time
}

// NewSession creates a session in mode with catalog defaults. An unknown
// mode falls back to AutoDesign.
func NewSession(mode Mode) *Session {
	if _, ok := modeSpecs[mode]; !ok {
		mode = ModeAutoDesign
	}
	return &Session{st: newState(mode), updatedAt: time.Now()}
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone()
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Mode
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// SetMode activates mode and resets everything except the tier.
func (s *Session) SetMode(mode Mode) error {
	if _, ok := modeSpecs[mode]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tier := s.st.Tier
	s.st = newState(mode)
	s.st.Tier = tier
	s.invalidateLocked()
	return nil
}

// Reset clears the session including the stored credential. The active mode
// is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st = newState(s.st.Mode)
	s.gateSeq++
	s.invalidateLocked()
}

func (s *Session) invalidateLocked() {
	s.epoch++
	s.request = ""
	s.updatedAt = time.Now()
}

// UpdateInput sets one field of the active mode's input bag.
func (s *Session) UpdateInput(mode Mode, field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode != s.st.Mode {
		return fmt.Errorf("%w: %s (active %s)", ErrWrongMode, mode, s.st.Mode)
	}
	spec := modeSpecs[mode]
	if !spec.Accepts(field) {
		return fmt.Errorf("%w: %q in mode %s", ErrUnknownField, field, mode)
	}
	if err := s.st.Inputs.set(field, value); err != nil {
		return err
	}
	s.updatedAt = time.Now()
	return nil
}

func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Status = status
	s.updatedAt = time.Now()
}

func (s *Session) SetError(message string) {
	s.SetStatus(ErrorStatus(message))
}

// ClearError returns an Error status to Idle and leaves other statuses alone.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status.Kind == StatusError {
		s.st.Status = Idle()
	}
}

func (s *Session) SetBatchResult(batch []Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setBatchLocked(batch)
}

func (s *Session) setBatchLocked(batch []Artifact) {
	s.st.Batch = append([]Artifact(nil), batch...)
	s.st.SelectedIndex = 0
	if len(batch) > 0 {
		s.st.MagazineResult = nil
	}
	s.updatedAt = time.Now()
}

func (s *Session) SetMagazineResult(result *MagazineAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMagazineLocked(result)
}

func (s *Session) setMagazineLocked(result *MagazineAnalysis) {
	if result == nil {
		s.st.MagazineResult = nil
		return
	}
	m := *result
	s.st.MagazineResult = &m
	s.st.Batch = nil
	s.st.SelectedIndex = 0
	s.updatedAt = time.Now()
}

// SetSelectedIndex clamps i into [0, len(batch)) and returns the stored
// index. With an empty batch the index is forced to 0.
func (s *Session) SetSelectedIndex(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.SelectedIndex = clampIndex(i, len(s.st.Batch))
	s.updatedAt = time.Now()
	return s.st.SelectedIndex
}

// StepSelection moves the selection by delta, clamped.
func (s *Session) StepSelection(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.SelectedIndex = clampIndex(s.st.SelectedIndex+delta, len(s.st.Batch))
	return s.st.SelectedIndex
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// EditSuggestion applies fn to the pending text suggestion. It is only
// allowed while AutoDesign awaits confirmation.
func (s *Session) EditSuggestion(fn func(*TextSuggestion) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.Phase != PhaseAwaitingConfirmation || s.st.PendingSuggestion == nil {
		return fmt.Errorf("%w: no suggestion awaiting confirmation", ErrWrongPhase)
	}
	edited := s.st.PendingSuggestion.Clone()
	if err := fn(&edited); err != nil {
		return err
	}
	s.st.PendingSuggestion = &edited
	s.updatedAt = time.Now()
	return nil
}
