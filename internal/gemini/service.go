package gemini

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"temudesign/internal/prompt"
	"temudesign/internal/studio"
)

type ServiceOptions struct {
	Client            *Client
	TextModel         string
	ImageModel        string
	PremiumImageModel string
	// MaxConcurrent bounds the variant requests of one batch.
	MaxConcurrent int
	Logger        *slog.Logger
}

// Service implements studio.Service on top of the Gemini REST API. One image
// request is made per batch variant.
type Service struct {
	client        *Client
	textModel     string
	imageModel    string
	premiumModel  string
	maxConcurrent int
	logger        *slog.Logger
}

var _ studio.Service = (*Service)(nil)

func NewService(opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		client:        opts.Client,
		textModel:     opts.TextModel,
		imageModel:    opts.ImageModel,
		premiumModel:  opts.PremiumImageModel,
		maxConcurrent: opts.MaxConcurrent,
		logger:        logger,
	}
	if s.textModel == "" {
		s.textModel = DefaultTextModel
	}
	if s.imageModel == "" {
		s.imageModel = DefaultImageModel
	}
	if s.premiumModel == "" {
		s.premiumModel = DefaultPremiumImageModel
	}
	if s.maxConcurrent <= 0 {
		s.maxConcurrent = studio.MaxBatchSize
	}
	return s
}

// ImageModelFor returns the image model a tier generates with.
func (s *Service) ImageModelFor(tier studio.TierParams) string {
	if tier.Premium {
		return s.premiumModel
	}
	return s.imageModel
}

func (s *Service) SuggestText(ctx context.Context, req studio.SuggestTextRequest) (studio.TextSuggestion, error) {
	raw, err := s.client.GenerateText(ctx, TextRequest{
		Model:  s.textModel,
		APIKey: req.Tier.Credential,
		Prompt: prompt.SuggestText(req.Density, req.Language, req.Style),
		Images: []string{string(req.Image)},
		JSON:   true,
	})
	if err != nil {
		return studio.TextSuggestion{}, err
	}

	out, err := parseJSON[studio.TextSuggestion](raw)
	if err != nil {
		s.logger.Warn("text suggestion not parseable", "err", err)
		return studio.TextSuggestion{}, fmt.Errorf("parse text suggestion: %w", err)
	}
	return shapeSuggestion(out, req.Density), nil
}

// shapeSuggestion keeps exactly the optional fields the density asks for, so
// the review form shows the same fields on every run.
func shapeSuggestion(t studio.TextSuggestion, density int) studio.TextSuggestion {
	want := map[string]bool{}
	for _, k := range prompt.SuggestionKeys(density) {
		want[k] = true
	}
	keep := func(p **string, key string) {
		switch {
		case !want[key]:
			*p = nil
		case *p == nil:
			empty := ""
			*p = &empty
		}
	}
	keep(&t.Subheadline2, "subheadline_2")
	keep(&t.Body2, "body_2")
	keep(&t.Highlights, "highlights")
	if !want["subheadline"] {
		t.Subheadline = ""
	}
	if !want["body"] {
		t.Body = ""
	}
	return t
}

func (s *Service) PosterBatch(ctx context.Context, req studio.PosterBatchRequest) ([]studio.Artifact, error) {
	return s.batch(ctx, "poster", req.BatchSize, req.Tier, func(v prompt.Variant) ImageRequest {
		return ImageRequest{
			Prompt: prompt.Poster(prompt.PosterParams{
				Style:       req.Style,
				Text:        req.Text,
				AspectRatio: req.AspectRatio,
				Variant:     v,
			}),
			Images:      []string{string(req.Image)},
			AspectRatio: string(req.AspectRatio),
		}
	})
}

func (s *Service) ReferenceBatch(ctx context.Context, req studio.ReferenceBatchRequest) ([]studio.Artifact, error) {
	images := []string{string(req.Image), string(req.Reference)}
	if req.Logo != "" {
		images = append(images, string(req.Logo))
	}
	return s.batch(ctx, "reference", req.BatchSize, req.Tier, func(v prompt.Variant) ImageRequest {
		return ImageRequest{
			Prompt: prompt.Reference(prompt.ReferenceParams{
				Language:    req.Language,
				AspectRatio: req.AspectRatio,
				HasLogo:     req.Logo != "",
				Variant:     v,
			}),
			Images:      images,
			AspectRatio: string(req.AspectRatio),
		}
	})
}

func (s *Service) CreativeBatch(ctx context.Context, req studio.CreativeBatchRequest) ([]studio.Artifact, error) {
	return s.batch(ctx, "creative", req.BatchSize, req.Tier, func(v prompt.Variant) ImageRequest {
		return ImageRequest{
			Prompt: prompt.Creative(prompt.CreativeParams{
				Instruction:   req.Instruction,
				DesignContext: req.DesignContext,
				AspectRatio:   req.AspectRatio,
				Variant:       v,
			}),
			AspectRatio: string(req.AspectRatio),
		}
	})
}

func (s *Service) AnalyzeLayout(ctx context.Context, req studio.AnalysisRequest) (studio.MagazineAnalysis, error) {
	raw, err := s.client.GenerateText(ctx, TextRequest{
		Model:  s.textModel,
		APIKey: req.Tier.Credential,
		Prompt: prompt.Analysis(),
		Images: []string{string(req.Image)},
		JSON:   true,
	})
	if err != nil {
		return studio.MagazineAnalysis{}, err
	}
	out, err := parseJSON[studio.MagazineAnalysis](raw)
	if err != nil {
		s.logger.Warn("layout analysis not parseable", "err", err)
		return studio.MagazineAnalysis{}, fmt.Errorf("parse layout analysis: %w", err)
	}
	return out, nil
}

// Composite runs the two affiliator sub-steps: a text brief of both photos,
// then one composite image per variant.
func (s *Service) Composite(ctx context.Context, req studio.CompositeRequest) ([]studio.Artifact, error) {
	images := []string{string(req.Portrait), string(req.Product)}
	brief, err := s.client.GenerateText(ctx, TextRequest{
		Model:  s.textModel,
		APIKey: req.Tier.Credential,
		Prompt: prompt.AffiliatorBrief(),
		Images: images,
	})
	if err != nil {
		return nil, err
	}

	return s.batch(ctx, "composite", req.BatchSize, req.Tier, func(v prompt.Variant) ImageRequest {
		return ImageRequest{
			Prompt: prompt.Composite(prompt.CompositeParams{
				Brief:       strings.TrimSpace(brief),
				Scene:       req.Scene,
				Outfit:      req.Outfit,
				Pose:        req.Pose,
				AspectRatio: req.AspectRatio,
				Variant:     v,
			}),
			Images:      images,
			AspectRatio: string(req.AspectRatio),
		}
	})
}

func (s *Service) batch(ctx context.Context, kind string, size int, tier studio.TierParams, build func(prompt.Variant) ImageRequest) ([]studio.Artifact, error) {
	if size < studio.MinBatchSize {
		size = studio.MinBatchSize
	}
	if size > studio.MaxBatchSize {
		size = studio.MaxBatchSize
	}
	model := s.ImageModelFor(tier)
	key := ""
	if tier.Premium {
		key = tier.Credential
	}

	images, err := generateBatch(ctx, size, s.maxConcurrent, func(ctx context.Context, i int) ([]string, error) {
		r := build(prompt.Variant{Index: i, Total: size})
		r.Model = model
		r.APIKey = key
		return s.client.GenerateImage(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("batch generated", "kind", kind, "model", model, "requested", size, "images", len(images))

	out := make([]studio.Artifact, len(images))
	for i, img := range images {
		out[i] = studio.Artifact(img)
	}
	return out, nil
}
