package studio

import "fmt"

// SuggestionFields lists the editable fields of a TextSuggestion in form
// order.
var SuggestionFields = []string{
	"headline",
	"subheadline",
	"subheadline_2",
	"body",
	"body_2",
	"highlights",
	"cta",
	"tagline",
}

// Get returns the value of a field and whether the field is present.
// Optional fields are absent when nil.
func (t TextSuggestion) Get(name string) (string, bool) {
	switch name {
	case "headline":
		return t.Headline, true
	case "subheadline":
		return t.Subheadline, true
	case "subheadline_2":
		return deref(t.Subheadline2)
	case "body":
		return t.Body, true
	case "body_2":
		return deref(t.Body2)
	case "highlights":
		return deref(t.Highlights)
	case "cta":
		return t.CTA, true
	case "tagline":
		return t.Tagline, true
	}
	return "", false
}

// Set overwrites one field. Setting an optional field makes it present.
func (t *TextSuggestion) Set(name, value string) error {
	switch name {
	case "headline":
		t.Headline = value
	case "subheadline":
		t.Subheadline = value
	case "subheadline_2":
		t.Subheadline2 = &value
	case "body":
		t.Body = value
	case "body_2":
		t.Body2 = &value
	case "highlights":
		t.Highlights = &value
	case "cta":
		t.CTA = value
	case "tagline":
		t.Tagline = value
	default:
		return fmt.Errorf("%w: suggestion field %q", ErrUnknownField, name)
	}
	return nil
}

// Present lists the fields the review form should show.
func (t TextSuggestion) Present() []string {
	out := make([]string, 0, len(SuggestionFields))
	for _, name := range SuggestionFields {
		if _, ok := t.Get(name); ok {
			out = append(out, name)
		}
	}
	return out
}

func deref(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}
