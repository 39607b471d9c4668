package handlers

import (
	"math"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"temudesign/internal/session"
	"temudesign/internal/studio"
)

func TestParseCallback(t *testing.T) {
	c, ok := parseCallback(cb(42, "set", "language", "3"))
	require.True(t, ok)
	assert.Equal(t, int64(42), c.Owner)
	assert.Equal(t, "set", c.Action)
	assert.Equal(t, []string{"language", "3"}, c.Args)

	for _, bad := range []string{"", "td", "td:x:gen", "other:1:gen", "td:1"} {
		_, ok := parseCallback(bad)
		assert.False(t, ok, bad)
	}
}

// Telegram rejects callback data longer than 64 bytes.
func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	owner := int64(math.MaxInt64)
	check := func(kb tgbotapi.InlineKeyboardMarkup) {
		for _, row := range kb.InlineKeyboard {
			for _, b := range row {
				require.NotNil(t, b.CallbackData)
				assert.LessOrEqual(t, len(*b.CallbackData), 64, *b.CallbackData)
			}
		}
	}

	for _, m := range studio.Modes() {
		s := studio.NewSession(m)
		st := s.Snapshot()
		check(mainKeyboard(owner, st, session.Panel{}))
		spec, _ := studio.Describe(m)
		for _, f := range settingFields(spec) {
			if choices := studio.Choices(f); len(choices) > 0 {
				check(pickerKeyboard(owner, f, choices, ""))
			}
		}
	}
	check(modeKeyboard(owner, studio.ModeAutoDesign))

	st := studio.NewSession(studio.ModeAutoDesign).Snapshot()
	sub := "x"
	st.Phase = studio.PhaseAwaitingConfirmation
	st.PendingSuggestion = &studio.TextSuggestion{Subheadline2: &sub, Body2: &sub, Highlights: &sub}
	check(mainKeyboard(owner, st, session.Panel{}))
}

func TestNextSlot(t *testing.T) {
	spec, _ := studio.Describe(studio.ModeReference)
	img := studio.Image("data:image/png;base64,AA==")

	tests := []struct {
		name   string
		in     studio.Inputs
		pinned studio.Field
		want   studio.Field
	}{
		{"first empty", studio.Inputs{}, "", studio.FieldMainImage},
		{"skips filled", studio.Inputs{MainImage: img}, "", studio.FieldReferenceImage},
		{"optional last", studio.Inputs{MainImage: img, ReferenceImage: img}, "", studio.FieldLogoImage},
		{"all full wraps", studio.Inputs{MainImage: img, ReferenceImage: img, LogoImage: img}, "", studio.FieldMainImage},
		{"pinned wins", studio.Inputs{}, studio.FieldLogoImage, studio.FieldLogoImage},
		{"foreign pin ignored", studio.Inputs{}, studio.FieldPortraitImage, studio.FieldMainImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := nextSlot(spec, tt.in, tt.pinned)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	creative, _ := studio.Describe(studio.ModeCreativeManual)
	_, ok := nextSlot(creative, studio.Inputs{}, "")
	assert.False(t, ok)
}

func TestPhotoTargets(t *testing.T) {
	spec, _ := studio.Describe(studio.ModeAffiliator)
	assert.Equal(t, []studio.Field{studio.FieldPortraitImage, studio.FieldProductImage},
		photoTargets(spec, studio.Inputs{}, "", 5))
	assert.Equal(t, []studio.Field{studio.FieldPortraitImage},
		photoTargets(spec, studio.Inputs{}, "", 1))

	creative, _ := studio.Describe(studio.ModeCreativeManual)
	assert.Empty(t, photoTargets(creative, studio.Inputs{}, "", 2))
}

func TestPhotoTargetsSkipFilledSlots(t *testing.T) {
	ref, _ := studio.Describe(studio.ModeReference)
	filled := studio.Inputs{MainImage: "data:image/png;base64,AAAA"}

	assert.Equal(t, []studio.Field{studio.FieldReferenceImage, studio.FieldLogoImage},
		photoTargets(ref, filled, "", 2))
	assert.Equal(t, []studio.Field{studio.FieldReferenceImage, studio.FieldLogoImage},
		photoTargets(ref, filled, "", 5))
	assert.Equal(t, []studio.Field{studio.FieldLogoImage},
		photoTargets(ref, studio.Inputs{}, studio.FieldLogoImage, 3))
	assert.Equal(t, []studio.Field{studio.FieldMainImage, studio.FieldReferenceImage},
		photoTargets(ref, filled, studio.FieldMainImage, 2))
}

func TestPanelTextShowsState(t *testing.T) {
	st := studio.NewSession(studio.ModeMagazineAnalysis).Snapshot()
	st.MagazineResult = &studio.MagazineAnalysis{Headline: "VOGUE", CTA: "Subscribe"}
	st.Status = studio.Loading("Enhanced Vision: Reading Text & Layout...")

	text := panelText(st, session.Panel{Await: session.AwaitCredential})
	assert.Contains(t, text, "Magazine Vision Analysis")
	assert.Contains(t, text, "⬜ Magazine page")
	assert.Contains(t, text, "Headline: VOGUE")
	assert.Contains(t, text, "⏳ Enhanced Vision")
	assert.Contains(t, text, "Send your Gemini API key")
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "abc", truncateLine("  abc ", 10))
	assert.Equal(t, "ab…", truncateLine("abcdef", 2))
}
