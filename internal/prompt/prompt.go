// Package prompt builds the Gemini instructions for every generation
// operation of the design studio.
package prompt

import (
	"fmt"
	"strings"

	"temudesign/internal/studio"
)

// Variant identifies one image of a batch. Each variant gets its own
// request, so the prompt tells the model how this one should differ.
type Variant struct {
	Index int // 0-based
	Total int
}

var variationNotes = []string{
	"Variation A: the most faithful, balanced interpretation of the brief.",
	"Variation B: bolder composition, stronger color contrast, more dramatic lighting.",
	"Variation C: alternative layout, rearrange the hierarchy and try a different camera angle.",
}

// VariationNote returns the directive for one variant of a batch.
func VariationNote(v Variant) string {
	if v.Total <= 1 {
		return ""
	}
	if v.Index < 0 {
		v.Index = 0
	}
	return variationNotes[v.Index%len(variationNotes)]
}

// SuggestionKeys returns the JSON keys a text suggestion of the given
// density must contain, in form order.
func SuggestionKeys(density int) []string {
	keys := []string{"headline"}
	if density >= 3 {
		keys = append(keys, "subheadline")
	}
	if density >= 4 {
		keys = append(keys, "subheadline_2")
	}
	if density >= 3 {
		keys = append(keys, "body")
	}
	if density >= 5 {
		keys = append(keys, "body_2")
	}
	if density >= 3 {
		keys = append(keys, "highlights")
	}
	return append(keys, "cta", "tagline")
}

// SuggestText asks the text model for poster copy matching the product
// photo. The answer is a single JSON object.
func SuggestText(density int, language, style string) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("TASK: Write marketing copy for a product poster.\n\n")
	b.WriteString("Look at the attached product photo. Identify the product, its category, and the strongest selling points visible in the image.\n\n")

	b.WriteString("CONSTRAINTS:\n")
	b.WriteString(fmt.Sprintf("- Language: %s. Every field must be written in %s.\n", language, language))
	b.WriteString(fmt.Sprintf("- Visual style of the final poster: %s. Match its tone.\n", style))
	b.WriteString(fmt.Sprintf("- Text density: %d/5 (%s).\n", density, studio.DensityLabel(density)))
	writeSection(&b, "Length", densityRules(density))
	b.WriteString("\n")

	b.WriteString("OUTPUT:\n")
	b.WriteString("- Reply with ONE JSON object and nothing else (no markdown, no commentary).\n")
	b.WriteString("- Keys: " + strings.Join(SuggestionKeys(density), ", ") + ".\n")
	b.WriteString("- All values are plain strings.\n")
	return b.String()
}

func densityRules(density int) []string {
	rules := []string{
		"headline: 2-5 punchy words",
		"cta: 2-4 words, imperative",
		"tagline: one short brand line",
	}
	if density >= 3 {
		rules = append(rules,
			"subheadline: one supporting line",
			"body: 1-2 short sentences",
			"highlights: 2-3 key features separated by \" • \"",
		)
	}
	if density >= 4 {
		rules = append(rules, "subheadline_2: a second supporting line with a different angle")
	}
	if density >= 5 {
		rules = append(rules, "body_2: a second short paragraph with details or an offer")
	}
	return rules
}

type PosterParams struct {
	Style       string
	Text        studio.TextSuggestion
	AspectRatio studio.AspectRatio
	Variant     Variant
}

// Poster is the image prompt of the AutoDesign batch. The product photo is
// attached alongside.
func Poster(p PosterParams) string {
	var b strings.Builder
	b.Grow(2048)

	b.WriteString("TASK: Design a finished advertising poster for the product in the attached photo.\n\n")
	writeIdentityLock(&b)

	b.WriteString("OUTPUT SPEC:\n")
	b.WriteString(fmt.Sprintf("- One image, aspect ratio %s.\n", p.AspectRatio))
	b.WriteString(fmt.Sprintf("- Visual style: %s. Apply it to background, typography and color grading.\n", p.Style))
	b.WriteString("- FULL-BLEED: no borders, frames or empty margins.\n\n")

	b.WriteString("TYPOGRAPHY (render exactly, spelling must match):\n")
	for _, name := range studio.SuggestionFields {
		v, ok := p.Text.Get(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: %q\n", strings.ToUpper(name), v))
	}
	b.WriteString("- Headline dominant; CTA clearly legible; do not add any other text.\n\n")

	writeVariant(&b, p.Variant)
	return b.String()
}

type ReferenceParams struct {
	Language    string
	AspectRatio studio.AspectRatio
	HasLogo     bool
	Variant     Variant
}

// Reference is the style-clone prompt. Images are attached in the order
// product, style reference, then the optional logo.
func Reference(p ReferenceParams) string {
	var b strings.Builder
	b.Grow(2048)

	b.WriteString("TASK: Recreate the design style of a reference poster for a different product.\n\n")
	b.WriteString("ATTACHED IMAGES:\n")
	b.WriteString("- Image 1: the product. This is the subject of the new poster.\n")
	b.WriteString("- Image 2: the style reference. Copy its layout, typography treatment, palette and mood, NOT its product.\n")
	if p.HasLogo {
		b.WriteString("- Image 3: the brand logo. Place it cleanly, unaltered, where the reference places its branding.\n")
	}
	b.WriteString("\n")
	writeIdentityLock(&b)

	b.WriteString("OUTPUT SPEC:\n")
	b.WriteString(fmt.Sprintf("- One image, aspect ratio %s.\n", p.AspectRatio))
	b.WriteString(fmt.Sprintf("- Write any new copy in %s, adapted to the new product.\n", p.Language))
	b.WriteString("- Replace every reference product shot with the product from image 1.\n")
	b.WriteString("- FULL-BLEED: no borders, frames or empty margins.\n\n")

	writeVariant(&b, p.Variant)
	return b.String()
}

type CreativeParams struct {
	Instruction   string
	DesignContext string
	AspectRatio   studio.AspectRatio
	Variant       Variant
}

// Creative is the free-form design prompt. No image is attached.
func Creative(p CreativeParams) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("TASK: Create a complete graphic design from the brief below.\n\n")
	b.WriteString("BRIEF:\n")
	b.WriteString(strings.TrimSpace(p.Instruction) + "\n\n")

	b.WriteString("OUTPUT SPEC:\n")
	b.WriteString(fmt.Sprintf("- Context: %s. Use the visual conventions of this category.\n", p.DesignContext))
	b.WriteString(fmt.Sprintf("- One image, aspect ratio %s.\n", p.AspectRatio))
	b.WriteString("- Any text in the brief must be rendered with correct spelling.\n")
	b.WriteString("- Professional layout: clear hierarchy, balanced negative space.\n\n")

	writeVariant(&b, p.Variant)
	return b.String()
}

// AnalysisKeys are the JSON keys of a magazine analysis answer.
var AnalysisKeys = []string{
	"headline",
	"subtext_1",
	"subtext_2",
	"body",
	"cta",
	"visual_style_description",
	"recreation_prompt",
}

// Analysis asks the text model to read a magazine page or poster.
func Analysis() string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("TASK: Read the attached magazine page / poster like a professional layout designer.\n\n")
	writeSection(&b, "Extract", []string{
		"headline: the dominant title text, exactly as printed",
		"subtext_1 and subtext_2: the two most prominent secondary lines (empty string if absent)",
		"body: the main paragraph text, exactly as printed (empty string if absent)",
		"cta: the call to action (empty string if absent)",
		"visual_style_description: layout grid, typography, palette, photography style in 2-4 sentences",
		"recreation_prompt: a detailed image-generation prompt that recreates this design with new content",
	})
	b.WriteString("\n")
	b.WriteString("OUTPUT:\n")
	b.WriteString("- Reply with ONE JSON object and nothing else.\n")
	b.WriteString("- Keys: " + strings.Join(AnalysisKeys, ", ") + ".\n")
	return b.String()
}

// AffiliatorBrief is the first affiliator sub-step: the text model
// describes the person and the product so the composite keeps both intact.
// Images are attached as portrait, then product.
func AffiliatorBrief() string {
	var b strings.Builder
	b.WriteString("TASK: Describe two photos for a photorealistic composite.\n\n")
	writeSection(&b, "Image 1 (portrait)", []string{
		"face shape, skin tone, hair style and color, apparent age, distinctive features",
	})
	writeSection(&b, "Image 2 (product)", []string{
		"product type, exact colors, materials, shape, visible branding and text",
		"how a person naturally holds or uses it",
	})
	b.WriteString("\nReply in plain prose, at most 150 words. No lists, no markdown.\n")
	return b.String()
}

type CompositeParams struct {
	Brief       string
	Scene       string
	Outfit      string
	Pose        string
	AspectRatio studio.AspectRatio
	Variant     Variant
}

// Composite is the second affiliator sub-step: a UGC-style photo of the
// person promoting the product.
func Composite(p CompositeParams) string {
	var b strings.Builder
	b.Grow(2048)

	b.WriteString("TASK: Photorealistic affiliate marketing photo. The person from image 1 presents the product from image 2.\n\n")
	b.WriteString("IDENTITY LOCK:\n")
	b.WriteString("- The face must be the same person as image 1. Do not beautify or change ethnicity, age or features.\n")
	b.WriteString("- The product must be the exact object from image 2, branding unchanged.\n\n")
	if brief := strings.TrimSpace(p.Brief); brief != "" {
		b.WriteString("SUBJECT NOTES:\n" + brief + "\n\n")
	}

	b.WriteString("SCENE DIRECTION:\n")
	b.WriteString(fmt.Sprintf("- Setting: %s\n", p.Scene))
	b.WriteString(fmt.Sprintf("- Outfit: %s\n", p.Outfit))
	b.WriteString(fmt.Sprintf("- Pose: %s\n", p.Pose))
	b.WriteString(fmt.Sprintf("- Aspect ratio: %s\n", p.AspectRatio))
	b.WriteString("- Natural smartphone-camera look, believable lighting that matches the setting.\n")
	b.WriteString("- No text, captions or watermarks.\n\n")

	writeVariant(&b, p.Variant)
	return b.String()
}

func writeIdentityLock(b *strings.Builder) {
	b.WriteString("PRODUCT IDENTITY LOCK:\n")
	b.WriteString("- The product must be the exact object from the photo: shape, proportions, colors and labels unchanged.\n")
	b.WriteString("- Do not substitute, redesign or add parts. Background and lighting may change.\n\n")
}

func writeVariant(b *strings.Builder, v Variant) {
	if note := VariationNote(v); note != "" {
		b.WriteString(fmt.Sprintf("VARIATION %d OF %d:\n- %s\n", v.Index+1, v.Total, note))
	}
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString("- " + title + ":\n")
	for _, line := range lines {
		b.WriteString("  - " + line + "\n")
	}
}
