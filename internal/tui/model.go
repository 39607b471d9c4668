// Package tui is a terminal control panel for a single studio session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"temudesign/internal/studio"
	"temudesign/internal/upload"
)

// Config wires the studio core into the program.
type Config struct {
	Orchestrator *studio.Orchestrator
	Gate         *studio.Gate
	Mode         studio.Mode
	// OutDir receives saved artifacts. Defaults to the working directory.
	OutDir         string
	RequestTimeout time.Duration
	Logger         *slog.Logger
	Now            func() time.Time
}

type rowKind int

const (
	rowSuggestion rowKind = iota
	rowImage
	rowSetting
)

type row struct {
	kind  rowKind
	field studio.Field
	// name is the suggestion field for rowSuggestion.
	name string
}

type editKind int

const (
	editNone editKind = iota
	editField
	editImage
	editSuggestion
	editCredential
)

type model struct {
	orch    *studio.Orchestrator
	gate    *studio.Gate
	sess    *studio.Session
	outDir  string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	input   textinput.Model
	spinner spinner.Model

	cursor  int
	editing editKind
	target  row

	width   int
	info    string
	errText string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(cfg Config) tea.Model {
	return newModel(cfg)
}

func newModel(cfg Config) *model {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "."
	}

	input := textinput.New()
	input.CharLimit = 2000
	input.Width = 70

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	ctx, cancel := context.WithCancel(context.Background())
	return &model{
		orch:    cfg.Orchestrator,
		gate:    cfg.Gate,
		sess:    studio.NewSession(cfg.Mode),
		outDir:  outDir,
		timeout: timeout,
		logger:  logger,
		now:     now,
		ctx:     ctx,
		cancel:  cancel,
		input:   input,
		spinner: spin,
		width:   80,
		info:    "↑/↓ select · enter edit · g generate · ? keys",
	}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(20, msg.Width-10)
		return m, nil

	case spinner.TickMsg:
		if !m.sess.Snapshot().Status.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case generationDoneMsg:
		m.onGenerationDone(msg)
		return m, nil

	case credentialDoneMsg:
		return m, m.onCredentialDone(msg)

	case tea.KeyMsg:
		if m.editing != editNone {
			return m, m.handleEditKey(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *model) rows() []row {
	return rowsFor(m.sess.Snapshot())
}

// rowsFor lists the selectable lines of st: suggestion fields under review,
// then image slots, then settings.
func rowsFor(st studio.State) []row {
	spec, _ := studio.Describe(st.Mode)

	var out []row
	if st.Phase == studio.PhaseAwaitingConfirmation && st.PendingSuggestion != nil {
		for _, name := range st.PendingSuggestion.Present() {
			out = append(out, row{kind: rowSuggestion, name: name})
		}
	}
	for _, f := range spec.Images() {
		out = append(out, row{kind: rowImage, field: f})
	}
	for _, f := range settingFields(spec) {
		out = append(out, row{kind: rowSetting, field: f})
	}
	return out
}

func (m *model) current() (row, bool) {
	rows := m.rows()
	if len(rows) == 0 {
		return row{}, false
	}
	m.cursor = min(max(m.cursor, 0), len(rows)-1)
	return rows[m.cursor], true
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.errText = ""
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancel()
		return tea.Quit
	case "up", "k":
		m.cursor--
		m.current()
	case "down", "j":
		m.cursor++
		m.current()
	case "left", "h":
		m.cycleSelected(-1)
	case "right", "l":
		m.cycleSelected(1)
	case "enter":
		m.editSelected()
	case "m":
		m.switchMode(1)
	case "M":
		m.switchMode(-1)
	case "g":
		return m.dispatch(func() (*studio.Call, error) { return m.orch.Start(m.sess) })
	case "c":
		return m.dispatch(func() (*studio.Call, error) { return m.orch.StartConfirm(m.sess, nil) })
	case "x":
		if err := m.orch.CancelSuggestion(m.sess); err != nil {
			m.errText = err.Error()
		}
	case "[":
		m.sess.StepSelection(-1)
	case "]":
		m.sess.StepSelection(1)
	case "s":
		m.saveCurrent()
	case "p":
		return m.togglePremium()
	case "r":
		m.sess.Reset()
		m.cursor = 0
		m.info = "Session reset."
	case "?":
		m.info = keyHelp
	}
	return nil
}

const keyHelp = "m/M mode · ←/→ change · enter edit · g generate · c confirm · x discard · [/] browse · s save · p pro · r reset · q quit"

func (m *model) cycleSelected(delta int) {
	r, ok := m.current()
	if !ok || r.kind != rowSetting {
		return
	}
	choices := studio.Choices(r.field)
	if len(choices) == 0 {
		return
	}
	st := m.sess.Snapshot()
	next := cycle(choices, st.Inputs.Value(r.field), delta)
	if err := m.sess.UpdateInput(st.Mode, r.field, next); err != nil {
		m.errText = err.Error()
	}
}

func (m *model) editSelected() {
	r, ok := m.current()
	if !ok {
		return
	}
	st := m.sess.Snapshot()
	switch r.kind {
	case rowSuggestion:
		if st.PendingSuggestion == nil {
			return
		}
		v, _ := st.PendingSuggestion.Get(r.name)
		m.beginEdit(editSuggestion, r, "New "+humanize(r.name), v)
	case rowImage:
		m.beginEdit(editImage, r, "Path to "+humanize(string(r.field)), "")
	case rowSetting:
		if len(studio.Choices(r.field)) > 0 {
			m.cycleSelected(1)
			return
		}
		m.beginEdit(editField, r, humanize(string(r.field)), st.Inputs.Value(r.field))
	}
}

func (m *model) beginEdit(kind editKind, r row, prompt, value string) {
	m.editing = kind
	m.target = r
	m.input.Prompt = prompt + ": "
	m.input.EchoMode = textinput.EchoNormal
	if kind == editCredential {
		m.input.EchoMode = textinput.EchoPassword
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *model) endEdit() {
	m.editing = editNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *model) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		if m.editing == editCredential {
			m.gate.CancelCredential(m.sess)
			m.info = "Premium cancelled."
		}
		m.endEdit()
		return nil
	case tea.KeyEnter:
		return m.commitEdit()
	case tea.KeyCtrlC:
		m.cancel()
		return tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *model) commitEdit() tea.Cmd {
	value := m.input.Value()
	kind, r := m.editing, m.target
	m.endEdit()
	m.errText = ""

	st := m.sess.Snapshot()
	switch kind {
	case editField:
		if err := m.sess.UpdateInput(st.Mode, r.field, value); err != nil {
			m.errText = err.Error()
		}
	case editImage:
		path := strings.TrimSpace(value)
		if path == "" {
			return nil
		}
		img, err := upload.FromFile(path)
		if err != nil {
			m.errText = fmt.Sprintf("Could not load %s: %v", path, err)
			return nil
		}
		if err := m.sess.UpdateInput(st.Mode, r.field, string(img)); err != nil {
			m.errText = err.Error()
			return nil
		}
		m.sess.ClearError()
		m.info = humanize(string(r.field)) + " loaded."
	case editSuggestion:
		err := m.sess.EditSuggestion(func(t *studio.TextSuggestion) error {
			return t.Set(r.name, value)
		})
		if err != nil {
			m.errText = err.Error()
		}
	case editCredential:
		m.info = "Checking key..."
		return tea.Batch(m.spinner.Tick, credentialJob(m.ctx, m.gate, m.sess, value, m.timeout))
	}
	return nil
}

func (m *model) switchMode(delta int) {
	modes := studio.Modes()
	names := make([]string, len(modes))
	for i, md := range modes {
		names[i] = string(md)
	}
	next := studio.Mode(cycle(names, string(m.sess.Mode()), delta))
	if err := m.sess.SetMode(next); err != nil {
		m.errText = err.Error()
		return
	}
	m.cursor = 0
	spec, _ := studio.Describe(next)
	m.info = "Mode: " + spec.Title
}

func (m *model) dispatch(start func() (*studio.Call, error)) tea.Cmd {
	call, err := start()
	if err != nil {
		var verr *studio.ValidationError
		if !errors.As(err, &verr) {
			// Validation failures already sit in the session status.
			m.errText = err.Error()
		}
		return nil
	}
	m.info = ""
	return tea.Batch(m.spinner.Tick, waitJob(m.ctx, call, m.timeout))
}

func (m *model) onGenerationDone(msg generationDoneMsg) {
	switch {
	case msg.err == nil:
		st := m.sess.Snapshot()
		switch {
		case st.Phase == studio.PhaseAwaitingConfirmation:
			m.info = "Review the text, then press c to design."
		case len(st.Batch) > 0:
			m.info = fmt.Sprintf("%d variation(s) ready. [/] browse · s save", len(st.Batch))
		default:
			m.info = "Done."
		}
		m.cursor = 0
	case errors.Is(msg.err, studio.ErrStale):
		m.logger.Debug("stale generation ignored", "request_id", msg.requestID)
	default:
		m.logger.Info("generation failed", "request_id", msg.requestID, "err", msg.err)
	}
}

func (m *model) onCredentialDone(msg credentialDoneMsg) tea.Cmd {
	var cf *studio.CredentialFailure
	switch {
	case msg.err == nil:
		m.info = "Premium enabled."
	case errors.As(msg.err, &cf):
		m.beginEdit(editCredential, row{}, "Gemini API key", "")
	case errors.Is(msg.err, studio.ErrStale):
	default:
		m.errText = msg.err.Error()
	}
	return nil
}

func (m *model) togglePremium() tea.Cmd {
	st := m.sess.Snapshot()
	tier := m.gate.SetPremium(m.sess, !st.Tier.UsingPremium)
	switch tier.Gate {
	case studio.GatePendingCredential:
		m.beginEdit(editCredential, row{}, "Gemini API key", "")
		m.info = "Paste a Gemini API key to enable Pro. Esc cancels."
	case studio.GatePremium:
		m.info = "Premium enabled."
	default:
		m.info = "Using " + tier.ModelLabel() + "."
	}
	return nil
}

func (m *model) saveCurrent() {
	a, ok := studio.View(m.sess.Snapshot()).Current()
	if !ok {
		m.errText = "Nothing to save yet."
		return
	}
	path, err := upload.Save(m.outDir, studio.DownloadName(m.now()), string(a))
	if err != nil {
		m.errText = "Save failed: " + err.Error()
		return
	}
	m.logger.Info("artifact saved", "path", path)
	m.info = "Saved " + path
}
