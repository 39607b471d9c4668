package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"temudesign/internal/studio"
)

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF7A00"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	selectedStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#7D56F4"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	okStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD787"))
	frameStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func (m *model) View() string {
	st := m.sess.Snapshot()
	spec, _ := studio.Describe(st.Mode)
	wrap := max(20, m.width-6)

	var b strings.Builder
	b.WriteString(titleStyle.Render("TemuDesign · " + spec.Title))
	b.WriteString("  ")
	b.WriteString(helperStyle.Render(tierLine(st.Tier)))
	b.WriteString("\n\n")

	rows := rowsFor(st)
	cursor := min(max(m.cursor, 0), len(rows)-1)
	section := rowKind(-1)
	for i, r := range rows {
		if r.kind != section {
			section = r.kind
			if i > 0 {
				b.WriteRune('\n')
			}
			b.WriteString(sectionHeaderStyle.Render(sectionTitle(section)))
			b.WriteRune('\n')
		}
		line := m.rowLine(st, r)
		if i == cursor && m.editing == editNone {
			line = selectedStyle.Render(line)
		}
		b.WriteString("  " + line + "\n")
	}

	if st.MagazineResult != nil {
		b.WriteRune('\n')
		b.WriteString(sectionHeaderStyle.Render("Analysis"))
		b.WriteRune('\n')
		b.WriteString(wordwrap.String(analysisText(*st.MagazineResult), wrap))
		b.WriteRune('\n')
	}

	if n, total := studio.View(st).Position(); total > 0 {
		b.WriteRune('\n')
		b.WriteString(okStyle.Render(fmt.Sprintf("🖼 Result %d / %d", n, total)))
		b.WriteString(helperStyle.Render("  [/] browse · s save"))
		b.WriteRune('\n')
	}

	b.WriteRune('\n')
	if line := m.statusLine(st); line != "" {
		b.WriteString(wordwrap.String(line, wrap))
		b.WriteRune('\n')
	}
	if st.Tier.GateError != "" {
		b.WriteString(errorStyle.Render(wordwrap.String("🔑 "+st.Tier.GateError, wrap)))
		b.WriteRune('\n')
	}
	if m.errText != "" {
		b.WriteString(errorStyle.Render(wordwrap.String(m.errText, wrap)))
		b.WriteRune('\n')
	}
	if m.editing != editNone {
		b.WriteString(m.input.View())
		b.WriteRune('\n')
	} else if m.info != "" {
		b.WriteString(helperStyle.Render(wordwrap.String(m.info, wrap)))
		b.WriteRune('\n')
	}

	return frameStyle.Width(max(20, m.width-2)).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *model) statusLine(st studio.State) string {
	switch st.Status.Kind {
	case studio.StatusLoading:
		return m.spinner.View() + " " + st.Status.Message
	case studio.StatusValidating:
		return m.spinner.View() + " Validating key..."
	case studio.StatusError:
		return errorStyle.Render("❌ " + st.Status.Message)
	}
	if err := studio.CheckReady(st); err != nil {
		return helperStyle.Render(err.Error())
	}
	return okStyle.Render("Ready. Press g to generate.")
}

func (m *model) rowLine(st studio.State, r row) string {
	switch r.kind {
	case rowSuggestion:
		v, _ := st.PendingSuggestion.Get(r.name)
		return fmt.Sprintf("%-14s %s", humanize(r.name), truncate(v, 60))
	case rowImage:
		mark := "⬜"
		if st.Inputs.Image(r.field) != "" {
			mark = "✅"
		}
		return fmt.Sprintf("%s %s", mark, humanize(string(r.field)))
	}
	v := st.Inputs.Value(r.field)
	if r.field == studio.FieldDensity {
		v += " (" + studio.DensityLabel(st.Inputs.Density) + ")"
	}
	if strings.TrimSpace(v) == "" {
		v = "—"
	}
	arrows := ""
	if len(studio.Choices(r.field)) > 0 {
		arrows = "‹›"
	}
	return fmt.Sprintf("%-16s %s %s", humanize(string(r.field)), truncate(v, 48), arrows)
}

func sectionTitle(k rowKind) string {
	switch k {
	case rowSuggestion:
		return "Suggested text (c confirm · x discard)"
	case rowImage:
		return "Images"
	}
	return "Settings"
}

func tierLine(t studio.Tier) string {
	switch t.Gate {
	case studio.GatePremium:
		return "⭐ " + t.ModelLabel()
	case studio.GatePendingCredential:
		return "🔑 waiting for API key"
	}
	return t.ModelLabel()
}

func analysisText(a studio.MagazineAnalysis) string {
	var lines []string
	add := func(label, v string) {
		if strings.TrimSpace(v) != "" {
			lines = append(lines, label+": "+v)
		}
	}
	add("Headline", a.Headline)
	add("Subtext", a.Subtext1)
	add("Subtext", a.Subtext2)
	add("Body", a.Body)
	add("CTA", a.CTA)
	add("Style", a.VisualStyleDescription)
	add("Prompt", a.RecreationPrompt)
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
