package studio

import (
	"fmt"
	"strconv"
	"strings"
)

// Image is an opaque, transportable encoded image (usually a data URL).
// The core never decodes it.
type Image string

// Inputs is the input bag of the active mode. Fields outside the active
// mode's catalog entry stay at their zero value.
type Inputs struct {
	MainImage      Image `json:"main_image,omitempty"`
	ReferenceImage Image `json:"reference_image,omitempty"`
	LogoImage      Image `json:"logo_image,omitempty"`
	MagazineImage  Image `json:"magazine_image,omitempty"`
	PortraitImage  Image `json:"portrait_image,omitempty"`
	ProductImage   Image `json:"product_image,omitempty"`

	Density       int         `json:"density,omitempty"`
	Language      string      `json:"language,omitempty"`
	Style         string      `json:"style,omitempty"`
	AspectRatio   AspectRatio `json:"aspect_ratio,omitempty"`
	BatchSize     int         `json:"batch_size,omitempty"`
	Instruction   string      `json:"instruction,omitempty"`
	DesignContext string      `json:"design_context,omitempty"`

	Scene          string `json:"scene,omitempty"`
	SceneOverride  string `json:"scene_override,omitempty"`
	Outfit         string `json:"outfit,omitempty"`
	OutfitOverride string `json:"outfit_override,omitempty"`
	Pose           string `json:"pose,omitempty"`
	PoseOverride   string `json:"pose_override,omitempty"`
}

// DefaultInputs returns the catalog defaults for mode.
func DefaultInputs(mode Mode) Inputs {
	spec, ok := modeSpecs[mode]
	if !ok {
		return Inputs{}
	}

	var in Inputs
	for _, f := range spec.Controls {
		switch f {
		case FieldDensity:
			in.Density = 3
		case FieldLanguage:
			in.Language = "English"
		case FieldStyle:
			in.Style = posterStyles[0]
		case FieldAspectRatio:
			in.AspectRatio = Aspect1x1
		case FieldBatchSize:
			in.BatchSize = 1
		case FieldDesignContext:
			in.DesignContext = designContexts[0]
		case FieldScene:
			in.Scene = affiliatorScenes[0]
		case FieldOutfit:
			in.Outfit = affiliatorOutfits[0]
		case FieldPose:
			in.Pose = affiliatorPoses[0]
		}
	}
	return in
}

// Image returns the image stored in an image field.
func (in Inputs) Image(field Field) Image {
	switch field {
	case FieldMainImage:
		return in.MainImage
	case FieldReferenceImage:
		return in.ReferenceImage
	case FieldLogoImage:
		return in.LogoImage
	case FieldMagazineImage:
		return in.MagazineImage
	case FieldPortraitImage:
		return in.PortraitImage
	case FieldProductImage:
		return in.ProductImage
	}
	return ""
}

// Value renders any field as a string, the inverse of set.
func (in Inputs) Value(field Field) string {
	if field.IsImage() {
		return string(in.Image(field))
	}
	switch field {
	case FieldDensity:
		return strconv.Itoa(in.Density)
	case FieldLanguage:
		return in.Language
	case FieldStyle:
		return in.Style
	case FieldAspectRatio:
		return string(in.AspectRatio)
	case FieldBatchSize:
		return strconv.Itoa(in.BatchSize)
	case FieldInstruction:
		return in.Instruction
	case FieldDesignContext:
		return in.DesignContext
	case FieldScene:
		return in.Scene
	case FieldSceneOverride:
		return in.SceneOverride
	case FieldOutfit:
		return in.Outfit
	case FieldOutfitOverride:
		return in.OutfitOverride
	case FieldPose:
		return in.Pose
	case FieldPoseOverride:
		return in.PoseOverride
	}
	return ""
}

// set parses and stores value into field. Only the addressed field changes,
// except that picking a scene/outfit/pose preset clears its manual override.
func (in *Inputs) set(field Field, value string) error {
	switch field {
	case FieldMainImage:
		in.MainImage = Image(value)
	case FieldReferenceImage:
		in.ReferenceImage = Image(value)
	case FieldLogoImage:
		in.LogoImage = Image(value)
	case FieldMagazineImage:
		in.MagazineImage = Image(value)
	case FieldPortraitImage:
		in.PortraitImage = Image(value)
	case FieldProductImage:
		in.ProductImage = Image(value)

	case FieldDensity:
		n, err := parseBounded(value, MinDensity, MaxDensity)
		if err != nil {
			return fmt.Errorf("%w: density %q: %v", ErrInvalidValue, value, err)
		}
		in.Density = n
	case FieldBatchSize:
		n, err := parseBounded(value, MinBatchSize, MaxBatchSize)
		if err != nil {
			return fmt.Errorf("%w: batch size %q: %v", ErrInvalidValue, value, err)
		}
		in.BatchSize = n
	case FieldAspectRatio:
		ar, ok := ParseAspectRatio(value)
		if !ok {
			return fmt.Errorf("%w: aspect ratio %q", ErrInvalidValue, value)
		}
		in.AspectRatio = ar

	case FieldLanguage:
		v, err := pick(languages, value, "language")
		if err != nil {
			return err
		}
		in.Language = v
	case FieldStyle:
		v, err := pick(posterStyles, value, "style")
		if err != nil {
			return err
		}
		in.Style = v
	case FieldDesignContext:
		v, err := pick(designContexts, value, "design context")
		if err != nil {
			return err
		}
		in.DesignContext = v

	case FieldInstruction:
		in.Instruction = value

	case FieldScene:
		v, err := pick(affiliatorScenes, value, "scene")
		if err != nil {
			return err
		}
		in.Scene = v
		in.SceneOverride = ""
	case FieldOutfit:
		v, err := pick(affiliatorOutfits, value, "outfit")
		if err != nil {
			return err
		}
		in.Outfit = v
		in.OutfitOverride = ""
	case FieldPose:
		v, err := pick(affiliatorPoses, value, "pose")
		if err != nil {
			return err
		}
		in.Pose = v
		in.PoseOverride = ""
	case FieldSceneOverride:
		in.SceneOverride = value
	case FieldOutfitOverride:
		in.OutfitOverride = value
	case FieldPoseOverride:
		in.PoseOverride = value

	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// ResolvePreset returns override when it is non-blank after trimming,
// otherwise the preset.
func ResolvePreset(preset, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return preset
}

// ResolvedScene, ResolvedOutfit and ResolvedPose apply ResolvePreset per field.
func (in Inputs) ResolvedScene() string  { return ResolvePreset(in.Scene, in.SceneOverride) }
func (in Inputs) ResolvedOutfit() string { return ResolvePreset(in.Outfit, in.OutfitOverride) }
func (in Inputs) ResolvedPose() string   { return ResolvePreset(in.Pose, in.PoseOverride) }

// ParseAspectRatio accepts "3:4", "3x4" and surrounding whitespace.
func ParseAspectRatio(raw string) (AspectRatio, bool) {
	v := strings.TrimSpace(strings.ToLower(raw))
	v = strings.ReplaceAll(v, "x", ":")
	v = strings.ReplaceAll(v, " ", "")
	for _, ar := range aspectRatios {
		if string(ar) == v {
			return ar, true
		}
	}
	return "", false
}

func parseBounded(raw string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("out of range [%d, %d]", lo, hi)
	}
	return n, nil
}

// pick matches value against a catalog list, exact first, then
// case-insensitively.
func pick(list []string, value, what string) (string, error) {
	if contains(list, value) {
		return value, nil
	}
	want := strings.TrimSpace(strings.ToLower(value))
	for _, v := range list {
		if strings.ToLower(v) == want {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown %s %q", ErrInvalidValue, what, value)
}

func normalizeKey(raw string) string {
	v := strings.TrimSpace(strings.ToLower(raw))
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.ReplaceAll(v, " ", "_")
	return v
}
