package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"temudesign/internal/studio"
)

type fakeService struct {
	artifacts []studio.Artifact
}

func (f *fakeService) SuggestText(context.Context, studio.SuggestTextRequest) (studio.TextSuggestion, error) {
	return studio.TextSuggestion{Headline: "SALE 50%", CTA: "Shop now"}, nil
}

func (f *fakeService) PosterBatch(context.Context, studio.PosterBatchRequest) ([]studio.Artifact, error) {
	return f.artifacts, nil
}

func (f *fakeService) ReferenceBatch(context.Context, studio.ReferenceBatchRequest) ([]studio.Artifact, error) {
	return f.artifacts, nil
}

func (f *fakeService) CreativeBatch(context.Context, studio.CreativeBatchRequest) ([]studio.Artifact, error) {
	return f.artifacts, nil
}

func (f *fakeService) AnalyzeLayout(context.Context, studio.AnalysisRequest) (studio.MagazineAnalysis, error) {
	return studio.MagazineAnalysis{Headline: "VOGUE", CTA: "Subscribe"}, nil
}

func (f *fakeService) Composite(context.Context, studio.CompositeRequest) ([]studio.Artifact, error) {
	return f.artifacts, nil
}

type validatorFunc func(ctx context.Context, candidate string) error

func (f validatorFunc) ValidateCredential(ctx context.Context, candidate string) error {
	return f(ctx, candidate)
}

func newTestModel(t *testing.T, mode studio.Mode) *model {
	t.Helper()
	svc := &fakeService{artifacts: []studio.Artifact{"data:image/png;base64,AAAA", "data:image/png;base64,BBBB"}}
	v := validatorFunc(func(_ context.Context, key string) error {
		if key != "good-key" {
			return errors.New("API key not valid")
		}
		return nil
	})
	m := newModel(Config{
		Orchestrator: studio.NewOrchestrator(studio.Options{Service: svc}),
		Gate:         studio.NewGate(studio.GateOptions{Validator: v}),
		Mode:         mode,
		OutDir:       t.TempDir(),
		Now:          func() time.Time { return time.UnixMilli(1717243200000) },
	})
	t.Cleanup(m.cancel)
	return m
}

// drain runs cmd and feeds its messages back into the model. Spinner ticks
// are dropped so the loop ends.
func drain(m *model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			drain(m, c)
		}
	case spinner.TickMsg, nil:
	default:
		_, next := m.Update(msg)
		drain(m, next)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *model, keys ...string) {
	for _, k := range keys {
		_, cmd := m.Update(key(k))
		drain(m, cmd)
	}
}

func selectField(t *testing.T, m *model, f studio.Field) {
	t.Helper()
	for i, r := range m.rows() {
		if r.field == f && r.kind != rowSuggestion {
			m.cursor = i
			return
		}
	}
	t.Fatalf("field %s not listed", f)
}

func TestCreativeGenerateAndSave(t *testing.T) {
	m := newTestModel(t, studio.ModeCreativeManual)

	selectField(t, m, studio.FieldInstruction)
	press(m, "enter")
	require.Equal(t, editField, m.editing)
	m.input.SetValue("Neon ramen poster")
	press(m, "enter")
	assert.Equal(t, editNone, m.editing)
	assert.Equal(t, "Neon ramen poster", m.sess.Snapshot().Inputs.Instruction)

	_, cmd := m.Update(key("g"))
	require.NotNil(t, cmd)
	assert.Equal(t, studio.StatusLoading, m.sess.Snapshot().Status.Kind)
	assert.Contains(t, m.View(), "Crafting")
	drain(m, cmd)

	st := m.sess.Snapshot()
	assert.Equal(t, studio.StatusIdle, st.Status.Kind)
	assert.Len(t, st.Batch, 2)
	assert.Contains(t, m.info, "2 variation(s) ready")
	assert.Contains(t, m.View(), "Result 1 / 2")

	press(m, "]", "s")
	assert.Equal(t, 1, m.sess.Snapshot().SelectedIndex)
	saved := filepath.Join(m.outDir, "TEMUDESIGN_1717243200000.png")
	assert.FileExists(t, saved)
	assert.Contains(t, m.info, saved)
}

func TestValidationErrorShownInStatus(t *testing.T) {
	m := newTestModel(t, studio.ModeAutoDesign)

	_, cmd := m.Update(key("g"))
	assert.Nil(t, cmd)
	assert.Equal(t, studio.ErrorStatus("Please upload a product image first."), m.sess.Snapshot().Status)
	assert.Contains(t, m.View(), "Please upload a product image first.")
	assert.Empty(t, m.errText)
}

func TestAutoDesignReviewThenConfirm(t *testing.T) {
	m := newTestModel(t, studio.ModeAutoDesign)
	path := filepath.Join(t.TempDir(), "product.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644))

	selectField(t, m, studio.FieldMainImage)
	press(m, "enter")
	require.Equal(t, editImage, m.editing)
	m.input.SetValue(path)
	press(m, "enter")
	assert.NotEmpty(t, m.sess.Snapshot().Inputs.MainImage)

	press(m, "g")
	st := m.sess.Snapshot()
	require.Equal(t, studio.PhaseAwaitingConfirmation, st.Phase)
	rows := m.rows()
	require.Equal(t, rowSuggestion, rows[0].kind)
	assert.Equal(t, "headline", rows[0].name)

	m.cursor = 0
	press(m, "enter")
	require.Equal(t, editSuggestion, m.editing)
	assert.Equal(t, "SALE 50%", m.input.Value())
	m.input.SetValue("MEGA SALE")
	press(m, "enter")
	assert.Equal(t, "MEGA SALE", m.sess.Snapshot().PendingSuggestion.Headline)

	press(m, "c")
	st = m.sess.Snapshot()
	assert.Equal(t, studio.PhaseAwaitingInput, st.Phase)
	assert.Len(t, st.Batch, 2)
	assert.Nil(t, st.PendingSuggestion)
}

func TestChoiceCycling(t *testing.T) {
	m := newTestModel(t, studio.ModeAutoDesign)
	selectField(t, m, studio.FieldLanguage)

	before := m.sess.Snapshot().Inputs.Language
	press(m, "right")
	assert.Equal(t, cycle(studio.Languages(), before, 1), m.sess.Snapshot().Inputs.Language)
	assert.NotEqual(t, before, m.sess.Snapshot().Inputs.Language)
}

func TestPremiumCredentialFlow(t *testing.T) {
	m := newTestModel(t, studio.ModeAutoDesign)

	press(m, "p")
	require.Equal(t, editCredential, m.editing)
	assert.Equal(t, textinput.EchoPassword, m.input.EchoMode)
	assert.Equal(t, studio.GatePendingCredential, m.sess.Snapshot().Tier.Gate)

	m.input.SetValue("bad")
	press(m, "enter")
	assert.Equal(t, editCredential, m.editing)
	assert.Equal(t, "API key not valid", m.sess.Snapshot().Tier.GateError)

	m.input.SetValue(" good-key ")
	press(m, "enter")
	tier := m.sess.Snapshot().Tier
	assert.Equal(t, studio.GatePremium, tier.Gate)
	assert.Equal(t, editNone, m.editing)
	assert.Contains(t, m.View(), "Gemini 3 Pro")
	assert.NotContains(t, m.View(), "good-key")
}

func TestEscCancelsCredentialPrompt(t *testing.T) {
	m := newTestModel(t, studio.ModeAutoDesign)

	press(m, "p", "esc")
	assert.Equal(t, editNone, m.editing)
	assert.Equal(t, studio.GateStandard, m.sess.Snapshot().Tier.Gate)
}

func TestModeSwitchResetsCursor(t *testing.T) {
	m := newTestModel(t, studio.ModeAutoDesign)
	m.cursor = 3

	press(m, "m")
	assert.Equal(t, studio.Modes()[1], m.sess.Mode())
	assert.Equal(t, 0, m.cursor)

	press(m, "M")
	assert.Equal(t, studio.ModeAutoDesign, m.sess.Mode())
}

func TestCycle(t *testing.T) {
	list := []string{"a", "b", "c"}
	assert.Equal(t, "b", cycle(list, "a", 1))
	assert.Equal(t, "c", cycle(list, "a", -1))
	assert.Equal(t, "a", cycle(list, "c", 1))
	assert.Equal(t, "a", cycle(list, "zzz", 1))
	assert.Equal(t, "x", cycle(nil, "x", 1))
}
