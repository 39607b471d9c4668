package handlers

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"temudesign/internal/session"
	"temudesign/internal/studio"
)

const (
	callbackPrefix = "td"

	menuMain    = "main"
	menuMode    = "mode"
	menuPremium = "premium"
)

var fieldLabels = map[studio.Field]string{
	studio.FieldMainImage:      "Product image",
	studio.FieldReferenceImage: "Style reference",
	studio.FieldLogoImage:      "Logo",
	studio.FieldMagazineImage:  "Magazine page",
	studio.FieldPortraitImage:  "Portrait",
	studio.FieldProductImage:   "Product",

	studio.FieldDensity:        "Density",
	studio.FieldLanguage:       "Language",
	studio.FieldStyle:          "Style",
	studio.FieldAspectRatio:    "Aspect",
	studio.FieldBatchSize:      "Variations",
	studio.FieldInstruction:    "Instruction",
	studio.FieldDesignContext:  "Context",
	studio.FieldScene:          "Scene",
	studio.FieldSceneOverride:  "Custom scene",
	studio.FieldOutfit:         "Outfit",
	studio.FieldOutfitOverride: "Custom outfit",
	studio.FieldPose:           "Pose",
	studio.FieldPoseOverride:   "Custom pose",
}

var suggestionLabels = map[string]string{
	"headline":      "Headline",
	"subheadline":   "Subheadline",
	"subheadline_2": "Subheadline 2",
	"body":          "Body",
	"body_2":        "Body 2",
	"highlights":    "Highlights",
	"cta":           "CTA",
	"tagline":       "Tagline",
}

func fieldLabel(f studio.Field) string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// isFreeText reports whether a field is filled by typing rather than by a
// picker or a photo.
func isFreeText(f studio.Field) bool {
	switch f {
	case studio.FieldInstruction, studio.FieldSceneOverride,
		studio.FieldOutfitOverride, studio.FieldPoseOverride:
		return true
	}
	return false
}

func panelText(st studio.State, p session.Panel) string {
	spec, _ := studio.Describe(st.Mode)

	var b strings.Builder
	fmt.Fprintf(&b, "🎨 TEMUDESIGN · %s\n", spec.Title)
	fmt.Fprintf(&b, "Model: %s\n", tierLine(st.Tier))

	if imgs := spec.Images(); len(imgs) > 0 {
		b.WriteString("\nImages:\n")
		for _, f := range imgs {
			mark := "⬜"
			if st.Inputs.Image(f) != "" {
				mark = "✅"
			}
			suffix := ""
			if contains(spec.Optional, f) {
				suffix = " (optional)"
			}
			if p.Slot == f {
				suffix += " ← next photo"
			}
			fmt.Fprintf(&b, "%s %s%s\n", mark, fieldLabel(f), suffix)
		}
	}

	if fields := settingFields(spec); len(fields) > 0 {
		b.WriteString("\n")
		for _, f := range fields {
			fmt.Fprintf(&b, "%s: %s\n", fieldLabel(f), displayValue(st.Inputs, f))
		}
	}

	if st.Phase == studio.PhaseAwaitingConfirmation && st.PendingSuggestion != nil {
		b.WriteString("\n📝 Review the copy, edit any line, then confirm:\n")
		for _, name := range st.PendingSuggestion.Present() {
			v, _ := st.PendingSuggestion.Get(name)
			fmt.Fprintf(&b, "• %s: %s\n", suggestionLabels[name], truncateLine(v, 120))
		}
	}

	if m := st.MagazineResult; m != nil {
		b.WriteString("\n📰 Analysis\n")
		writeLine(&b, "Headline", m.Headline)
		writeLine(&b, "Subtext", m.Subtext1)
		writeLine(&b, "Subtext", m.Subtext2)
		writeLine(&b, "Body", m.Body)
		writeLine(&b, "CTA", m.CTA)
		writeLine(&b, "Visual style", m.VisualStyleDescription)
		writeLine(&b, "Recreation prompt", m.RecreationPrompt)
	}

	if v := studio.View(st); !v.Empty() {
		n, total := v.Position()
		fmt.Fprintf(&b, "\n🖼 Result %d / %d\n", n, total)
	}

	switch st.Status.Kind {
	case studio.StatusLoading:
		fmt.Fprintf(&b, "\n⏳ %s\n", st.Status.Message)
	case studio.StatusValidating:
		b.WriteString("\n⏳ Checking API key...\n")
	case studio.StatusError:
		fmt.Fprintf(&b, "\n❌ %s\n", st.Status.Message)
	}
	if st.Tier.GateError != "" {
		fmt.Fprintf(&b, "\n🔑 %s\n", st.Tier.GateError)
	}

	switch p.Await {
	case session.AwaitField:
		fmt.Fprintf(&b, "\n✍️ Send the %s as a message (/cancel to stop).\n", strings.ToLower(fieldLabel(p.AwaitField)))
	case session.AwaitSuggestion:
		fmt.Fprintf(&b, "\n✍️ Send the new %s (/cancel to stop).\n", strings.ToLower(suggestionLabels[p.SuggestionField]))
	case session.AwaitCredential:
		b.WriteString("\n🔑 Send your Gemini API key. The message is deleted after reading.\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func tierLine(t studio.Tier) string {
	switch t.Gate {
	case studio.GatePremium:
		return t.ModelLabel() + " (premium)"
	case studio.GatePendingCredential:
		return t.ModelLabel() + " (waiting for API key)"
	}
	return t.ModelLabel()
}

func writeLine(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

// settingFields lists the non-image fields of a mode in form order.
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

func displayValue(in studio.Inputs, f studio.Field) string {
	v := in.Value(f)
	switch f {
	case studio.FieldDensity:
		return v + " (" + studio.DensityLabel(in.Density) + ")"
	case studio.FieldScene, studio.FieldOutfit, studio.FieldPose:
		return truncateLine(v, 48)
	}
	if strings.TrimSpace(v) == "" {
		return "—"
	}
	return truncateLine(v, 80)
}

func panelKeyboard(ownerID int64, st studio.State, p session.Panel) tgbotapi.InlineKeyboardMarkup {
	switch p.Menu {
	case menuMode:
		return modeKeyboard(ownerID, st.Mode)
	case menuPremium:
		return premiumKeyboard(ownerID, st.Tier)
	case menuMain, "":
		return mainKeyboard(ownerID, st, p)
	}
	f := studio.Field(p.Menu)
	if choices := studio.Choices(f); len(choices) > 0 {
		return pickerKeyboard(ownerID, f, choices, st.Inputs.Value(f))
	}
	return mainKeyboard(ownerID, st, p)
}

func mainKeyboard(ownerID int64, st studio.State, p session.Panel) tgbotapi.InlineKeyboardMarkup {
	spec, _ := studio.Describe(st.Mode)
	var rows [][]tgbotapi.InlineKeyboardButton

	if st.Phase == studio.PhaseAwaitingConfirmation && st.PendingSuggestion != nil {
		var row []tgbotapi.InlineKeyboardButton
		for _, name := range st.PendingSuggestion.Present() {
			row = append(row, button("✏️ "+suggestionLabels[name], cb(ownerID, "edit", name)))
			if len(row) == 2 {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			button(busyLabel(st, "✅ Confirm & design"), cb(ownerID, "ok")),
			button("✖ Discard", cb(ownerID, "no")),
		})
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	var row []tgbotapi.InlineKeyboardButton
	for _, f := range spec.Images() {
		label := "📷 " + fieldLabel(f)
		if st.Inputs.Image(f) != "" {
			label += " ✅"
		}
		row = append(row, button(label, cb(ownerID, "slot", string(f))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
		row = nil
	}

	for _, f := range settingFields(spec) {
		action := []string{"m", string(f)}
		if isFreeText(f) {
			action = []string{"ask", string(f)}
		}
		row = append(row, button(fieldLabel(f), cb(ownerID, action...)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if v := studio.View(st); !v.Empty() {
		n, total := v.Position()
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			button("◀", cb(ownerID, "prev")),
			button(fmt.Sprintf("%d / %d", n, total), cb(ownerID, "noop")),
			button("▶", cb(ownerID, "next")),
			button("⬇ PNG", cb(ownerID, "dl")),
		})
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		button(busyLabel(st, "🚀 Generate"), cb(ownerID, "gen")),
	})
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		button("🔀 Mode", cb(ownerID, "m", menuMode)),
		button("⭐ Pro: "+onOff(st.Tier.UsingPremium), cb(ownerID, "m", menuPremium)),
		button("♻ Reset", cb(ownerID, "reset")),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func busyLabel(st studio.State, idle string) string {
	if st.Status.Busy() {
		return "⏳ Working..."
	}
	return idle
}

func modeKeyboard(ownerID int64, current studio.Mode) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, m := range studio.Modes() {
		spec, _ := studio.Describe(m)
		label := spec.Title
		if m == current {
			label = "• " + label
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			button(label, cb(ownerID, "mode", strconv.Itoa(i))),
		})
	}
	rows = append(rows, backRow(ownerID))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func premiumKeyboard(ownerID int64, t studio.Tier) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	switch t.Gate {
	case studio.GatePendingCredential:
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			button("🔑 Enter API key", cb(ownerID, "key")),
			button("✖ Cancel", cb(ownerID, "keyx")),
		})
	case studio.GatePremium:
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			button("Use standard model", cb(ownerID, "pro", "off")),
		})
	default:
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			button("⭐ Use Gemini 3 Pro", cb(ownerID, "pro", "on")),
		})
	}
	rows = append(rows, backRow(ownerID))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// pickerKeyboard lists the choices of an enumerated field by index so the
// callback data stays within Telegram's 64 byte limit.
func pickerKeyboard(ownerID int64, f studio.Field, choices []string, current string) tgbotapi.InlineKeyboardMarkup {
	perRow := 2
	if len(choices) <= 5 {
		perRow = len(choices)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, c := range choices {
		label := truncateLine(c, 30)
		if f == studio.FieldDensity {
			n, _ := strconv.Atoi(c)
			label = c + " " + studio.DensityLabel(n)
		}
		if c == current {
			label = "• " + label
		}
		row = append(row, button(label, cb(ownerID, "set", string(f), strconv.Itoa(i))))
		if len(row) == perRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, backRow(ownerID))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func backRow(ownerID int64) []tgbotapi.InlineKeyboardButton {
	return []tgbotapi.InlineKeyboardButton{button("⬅ Back", cb(ownerID, "m", menuMain))}
}

func button(label, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, data)
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, strings.Join(parts, ":"))
}

type callback struct {
	Owner  int64
	Action string
	Args   []string
}

func parseCallback(data string) (callback, bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) < 3 || parts[0] != callbackPrefix {
		return callback{}, false
	}
	owner, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}
	return callback{Owner: owner, Action: parts[2], Args: parts[3:]}, true
}

// nextSlot picks the image slot an incoming photo fills: the pinned slot,
// else the first empty required slot, else the first empty optional one,
// else the first slot.
func nextSlot(spec studio.ModeSpec, in studio.Inputs, pinned studio.Field) (studio.Field, bool) {
	imgs := spec.Images()
	if len(imgs) == 0 {
		return "", false
	}
	if pinned != "" && contains(imgs, pinned) {
		return pinned, true
	}
	for _, f := range imgs {
		if in.Image(f) == "" {
			return f, true
		}
	}
	return imgs[0], true
}

func contains(list []studio.Field, f studio.Field) bool {
	for _, x := range list {
		if x == f {
			return true
		}
	}
	return false
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
