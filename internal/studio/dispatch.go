package studio

import (
	"context"
	"fmt"
	"strings"
)

type resultKind int

const (
	kindSuggestion resultKind = iota
	kindAnalysis
	kindBatch
)

// request is the input snapshot a step dispatches with. It is captured under
// the session lock so later edits do not leak into an in-flight call.
type request struct {
	mode       Mode
	inputs     Inputs
	tier       TierParams
	modelLabel string
	suggestion TextSuggestion
}

type outcome struct {
	suggestion *TextSuggestion
	analysis   *MagazineAnalysis
	artifacts  []Artifact
}

// step is one external call of a mode's flow.
type step struct {
	op       Operation
	produces resultKind
	validate func(Inputs) *ValidationError
	loading  func(request) string
	// hint is the cosmetic status shown after the orchestrator's phase hint
	// delay while the call is still outstanding.
	hint     func(request) string
	fallback string
	// inflight is the phase while the call is outstanding, failed the phase
	// a failure returns to.
	inflight Phase
	failed   Phase
	invoke   func(context.Context, Service, request) (outcome, error)
}

// flow lists the steps of a mode: one for single-phase modes, two for
// modes with an intervening confirmation.
type flow struct {
	steps []step
}

var flows = map[Mode]flow{
	ModeAutoDesign: {steps: []step{
		{
			op:       OpSuggestText,
			produces: kindSuggestion,
			validate: requireImages(imageRule{FieldMainImage, "Please upload a product image first."}),
			loading:  fixed("Analyzing image & generating creative text..."),
			fallback: "Failed to generate text suggestions.",
			inflight: PhaseAwaitingSuggestion,
			failed:   PhaseAwaitingInput,
			invoke: func(ctx context.Context, svc Service, r request) (outcome, error) {
				text, err := svc.SuggestText(ctx, SuggestTextRequest{
					Image:    r.inputs.MainImage,
					Density:  r.inputs.Density,
					Language: r.inputs.Language,
					Style:    r.inputs.Style,
					Tier:     r.tier,
				})
				if err != nil {
					return outcome{}, err
				}
				return outcome{suggestion: &text}, nil
			},
		},
		{
			op:       OpPosterBatch,
			produces: kindBatch,
			validate: requireImages(imageRule{FieldMainImage, "Please upload a product image first."}),
			loading: func(r request) string {
				return fmt.Sprintf("Designing %d variations with %s...", r.inputs.BatchSize, r.modelLabel)
			},
			fallback: "An unexpected error occurred.",
			inflight: PhaseAwaitingResult,
			failed:   PhaseAwaitingConfirmation,
			invoke: func(ctx context.Context, svc Service, r request) (outcome, error) {
				images, err := svc.PosterBatch(ctx, PosterBatchRequest{
					Image:       r.inputs.MainImage,
					Style:       r.inputs.Style,
					Text:        r.suggestion,
					AspectRatio: r.inputs.AspectRatio,
					BatchSize:   r.inputs.BatchSize,
					Tier:        r.tier,
				})
				return outcome{artifacts: images}, err
			},
		},
	}},

	ModeReference: {steps: []step{{
		op:       OpReferenceBatch,
		produces: kindBatch,
		validate: requireImages(
			imageRule{FieldMainImage, "Product Image is required"},
			imageRule{FieldReferenceImage, "Style Reference Image is required"},
		),
		loading: func(r request) string {
			return fmt.Sprintf("Creating %d styled variations with %s...", r.inputs.BatchSize, r.modelLabel)
		},
		fallback: "An unexpected error occurred.",
		inflight: PhaseAwaitingResult,
		failed:   PhaseAwaitingInput,
		invoke: func(ctx context.Context, svc Service, r request) (outcome, error) {
			images, err := svc.ReferenceBatch(ctx, ReferenceBatchRequest{
				Image:       r.inputs.MainImage,
				Reference:   r.inputs.ReferenceImage,
				Language:    r.inputs.Language,
				AspectRatio: r.inputs.AspectRatio,
				Logo:        r.inputs.LogoImage,
				BatchSize:   r.inputs.BatchSize,
				Tier:        r.tier,
			})
			return outcome{artifacts: images}, err
		},
	}}},

	ModeCreativeManual: {steps: []step{{
		op:       OpCreativeBatch,
		produces: kindBatch,
		validate: func(in Inputs) *ValidationError {
			if strings.TrimSpace(in.Instruction) == "" {
				return &ValidationError{Field: FieldInstruction, Message: "Please provide an instruction for the design."}
			}
			return nil
		},
		loading: func(r request) string {
			return fmt.Sprintf("Crafting %d creative designs with %s...", r.inputs.BatchSize, r.modelLabel)
		},
		fallback: "An unexpected error occurred.",
		inflight: PhaseAwaitingResult,
		failed:   PhaseAwaitingInput,
		invoke: func(ctx context.Context, svc Service, r request) (outcome, error) {
			images, err := svc.CreativeBatch(ctx, CreativeBatchRequest{
				Instruction:   r.inputs.Instruction,
				DesignContext: r.inputs.DesignContext,
				AspectRatio:   r.inputs.AspectRatio,
				BatchSize:     r.inputs.BatchSize,
				Tier:          r.tier,
			})
			return outcome{artifacts: images}, err
		},
	}}},

	ModeMagazineAnalysis: {steps: []step{{
		op:       OpAnalysis,
		produces: kindAnalysis,
		validate: requireImages(imageRule{FieldMagazineImage, "Please upload an image to analyze."}),
		loading:  fixed("Enhanced Vision: Reading Text & Layout..."),
		fallback: "Analysis failed",
		inflight: PhaseAwaitingResult,
		failed:   PhaseAwaitingInput,
		invoke: func(ctx context.Context, svc Service, r request) (outcome, error) {
			result, err := svc.AnalyzeLayout(ctx, AnalysisRequest{
				Image: r.inputs.MagazineImage,
				Tier:  r.tier,
			})
			if err != nil {
				return outcome{}, err
			}
			return outcome{analysis: &result}, nil
		},
	}}},

	ModeAffiliator: {steps: []step{{
		op:       OpComposite,
		produces: kindBatch,
		validate: func(in Inputs) *ValidationError {
			const msg = "Please upload both your Portrait and the Product photo."
			if in.PortraitImage == "" {
				return &ValidationError{Field: FieldPortraitImage, Message: msg}
			}
			if in.ProductImage == "" {
				return &ValidationError{Field: FieldProductImage, Message: msg}
			}
			return nil
		},
		loading: fixed("Phase 1: Analyzing Portrait & Product details..."),
		hint: func(r request) string {
			return fmt.Sprintf("Phase 2: Compositing %d Photorealistic Scenes (%s)...", r.inputs.BatchSize, r.modelLabel)
		},
		fallback: "Affiliator generation failed.",
		inflight: PhaseAwaitingResult,
		failed:   PhaseAwaitingInput,
		invoke: func(ctx context.Context, svc Service, r request) (outcome, error) {
			images, err := svc.Composite(ctx, CompositeRequest{
				Portrait:    r.inputs.PortraitImage,
				Product:     r.inputs.ProductImage,
				Scene:       r.inputs.ResolvedScene(),
				Outfit:      r.inputs.ResolvedOutfit(),
				Pose:        r.inputs.ResolvedPose(),
				AspectRatio: r.inputs.AspectRatio,
				BatchSize:   r.inputs.BatchSize,
				Tier:        r.tier,
			})
			return outcome{artifacts: images}, err
		},
	}}},
}

type imageRule struct {
	field   Field
	message string
}

func requireImages(rules ...imageRule) func(Inputs) *ValidationError {
	return func(in Inputs) *ValidationError {
		for _, r := range rules {
			if in.Image(r.field) == "" {
				return &ValidationError{Field: r.field, Message: r.message}
			}
		}
		return nil
	}
}

func fixed(message string) func(request) string {
	return func(request) string { return message }
}
