package studio

import "context"

// Artifact is an opaque encoded image produced by the generation service.
type Artifact string

// TextSuggestion is the intermediate copy produced by the text phase of
// AutoDesign. Optional fields are nil when the density level does not ask
// for them, so the review form can tell "absent" from "empty".
type TextSuggestion struct {
	Headline     string  `json:"headline"`
	Subheadline  string  `json:"subheadline"`
	Subheadline2 *string `json:"subheadline_2,omitempty"`
	Body         string  `json:"body"`
	Body2        *string `json:"body_2,omitempty"`
	Highlights   *string `json:"highlights,omitempty"`
	CTA          string  `json:"cta"`
	Tagline      string  `json:"tagline"`
}

// Clone returns a deep copy.
func (t TextSuggestion) Clone() TextSuggestion {
	out := t
	out.Subheadline2 = cloneStr(t.Subheadline2)
	out.Body2 = cloneStr(t.Body2)
	out.Highlights = cloneStr(t.Highlights)
	return out
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// MagazineAnalysis is the terminal result of MagazineAnalysis mode.
type MagazineAnalysis struct {
	Headline               string `json:"headline"`
	Subtext1               string `json:"subtext_1"`
	Subtext2               string `json:"subtext_2"`
	Body                   string `json:"body"`
	CTA                    string `json:"cta"`
	VisualStyleDescription string `json:"visual_style_description"`
	RecreationPrompt       string `json:"recreation_prompt"`
}

// TierParams travels with every generation request.
type TierParams struct {
	Premium    bool
	Credential string
}

type SuggestTextRequest struct {
	Image    Image
	Density  int
	Language string
	Style    string
	Tier     TierParams
}

type PosterBatchRequest struct {
	Image       Image
	Style       string
	Text        TextSuggestion
	AspectRatio AspectRatio
	BatchSize   int
	Tier        TierParams
}

type ReferenceBatchRequest struct {
	Image       Image
	Reference   Image
	Language    string
	AspectRatio AspectRatio
	Logo        Image
	BatchSize   int
	Tier        TierParams
}

type CreativeBatchRequest struct {
	Instruction   string
	DesignContext string
	AspectRatio   AspectRatio
	BatchSize     int
	Tier          TierParams
}

type AnalysisRequest struct {
	Image Image
	Tier  TierParams
}

type CompositeRequest struct {
	Portrait    Image
	Product     Image
	Scene       string
	Outfit      string
	Pose        string
	AspectRatio AspectRatio
	BatchSize   int
	Tier        TierParams
}

// Service is the generation contract the orchestrator drives. It is
// implemented outside the core.
type Service interface {
	SuggestText(ctx context.Context, req SuggestTextRequest) (TextSuggestion, error)
	PosterBatch(ctx context.Context, req PosterBatchRequest) ([]Artifact, error)
	ReferenceBatch(ctx context.Context, req ReferenceBatchRequest) ([]Artifact, error)
	CreativeBatch(ctx context.Context, req CreativeBatchRequest) ([]Artifact, error)
	AnalyzeLayout(ctx context.Context, req AnalysisRequest) (MagazineAnalysis, error)
	Composite(ctx context.Context, req CompositeRequest) ([]Artifact, error)
}

// CredentialValidator checks a premium-tier credential. A non-nil error
// carries the user-facing reason.
type CredentialValidator interface {
	ValidateCredential(ctx context.Context, candidate string) error
}
