package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"temudesign/internal/studio"
)

type generationDoneMsg struct {
	requestID string
	err       error
}

type credentialDoneMsg struct {
	err error
}

// waitJob finishes a dispatched call off the UI goroutine.
func waitJob(parent context.Context, call *studio.Call, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		return generationDoneMsg{requestID: call.ID(), err: call.Wait(ctx)}
	}
}

func credentialJob(parent context.Context, gate *studio.Gate, s *studio.Session, key string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		return credentialDoneMsg{err: gate.SubmitCredential(ctx, s, key)}
	}
}

func humanize(f string) string {
	s := strings.ReplaceAll(f, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func settingFields(spec studio.ModeSpec) []studio.Field {
	var out []studio.Field
	for _, group := range [][]studio.Field{spec.Required, spec.Optional, spec.Controls} {
		for _, f := range group {
			if !f.IsImage() {
				out = append(out, f)
			}
		}
	}
	return out
}

// cycle returns the choice delta steps away from current, wrapping around.
// An unknown current value starts from the first choice.
func cycle(choices []string, current string, delta int) string {
	if len(choices) == 0 {
		return current
	}
	idx := -1
	for i, c := range choices {
		if c == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return choices[0]
	}
	n := len(choices)
	return choices[((idx+delta)%n+n)%n]
}
