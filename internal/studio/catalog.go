package studio

type Mode string

const (
	ModeAutoDesign       Mode = "auto_design"
	ModeReference        Mode = "reference"
	ModeCreativeManual   Mode = "creative_manual"
	ModeMagazineAnalysis Mode = "magazine_analysis"
	ModeAffiliator       Mode = "affiliator"
)

// Field names one addressable slot of a mode's input bag.
type Field string

const (
	FieldMainImage      Field = "main_image"
	FieldReferenceImage Field = "reference_image"
	FieldLogoImage      Field = "logo_image"
	FieldMagazineImage  Field = "magazine_image"
	FieldPortraitImage  Field = "portrait_image"
	FieldProductImage   Field = "product_image"

	FieldDensity       Field = "density"
	FieldLanguage      Field = "language"
	FieldStyle         Field = "style"
	FieldAspectRatio   Field = "aspect_ratio"
	FieldBatchSize     Field = "batch_size"
	FieldInstruction   Field = "instruction"
	FieldDesignContext Field = "design_context"

	FieldScene          Field = "scene"
	FieldSceneOverride  Field = "scene_override"
	FieldOutfit         Field = "outfit"
	FieldOutfitOverride Field = "outfit_override"
	FieldPose           Field = "pose"
	FieldPoseOverride   Field = "pose_override"
)

// IsImage reports whether the field holds an encoded image handle.
func (f Field) IsImage() bool {
	switch f {
	case FieldMainImage, FieldReferenceImage, FieldLogoImage,
		FieldMagazineImage, FieldPortraitImage, FieldProductImage:
		return true
	}
	return false
}

type Operation string

const (
	OpSuggestText        Operation = "suggest-text"
	OpPosterBatch        Operation = "poster-batch"
	OpReferenceBatch     Operation = "reference-batch"
	OpCreativeBatch      Operation = "creative-batch"
	OpAnalysis           Operation = "analysis"
	OpComposite          Operation = "composite"
	OpValidateCredential Operation = "validate-credential"
)

// ModeSpec is the immutable catalog entry of a mode.
type ModeSpec struct {
	Mode     Mode
	Title    string
	Required []Field
	Optional []Field
	Controls []Field
	// Operations lists the generation operations in dispatch order; two-phase
	// modes have two.
	Operations []Operation
	TwoPhase   bool
}

// Accepts reports whether field belongs to the mode's input bag.
func (s ModeSpec) Accepts(field Field) bool {
	for _, group := range [][]Field{s.Required, s.Optional, s.Controls} {
		for _, f := range group {
			if f == field {
				return true
			}
		}
	}
	return false
}

// Fields returns every field of the input bag in catalog order. Each preset
// is listed before its override.
func (s ModeSpec) Fields() []Field {
	out := make([]Field, 0, len(s.Required)+len(s.Optional)+len(s.Controls))
	out = append(out, s.Required...)
	out = append(out, s.Optional...)
	return append(out, s.Controls...)
}

// Images returns the image slots of the mode, required ones first.
func (s ModeSpec) Images() []Field {
	var out []Field
	for _, group := range [][]Field{s.Required, s.Optional} {
		for _, f := range group {
			if f.IsImage() {
				out = append(out, f)
			}
		}
	}
	return out
}

var modeOrder = []Mode{
	ModeAutoDesign,
	ModeReference,
	ModeCreativeManual,
	ModeMagazineAnalysis,
	ModeAffiliator,
}

var modeSpecs = map[Mode]ModeSpec{
	ModeAutoDesign: {
		Mode:       ModeAutoDesign,
		Title:      "Auto Poster Design",
		Required:   []Field{FieldMainImage},
		Controls:   []Field{FieldDensity, FieldLanguage, FieldStyle, FieldAspectRatio, FieldBatchSize},
		Operations: []Operation{OpSuggestText, OpPosterBatch},
		TwoPhase:   true,
	},
	ModeReference: {
		Mode:       ModeReference,
		Title:      "Reference Style Clone",
		Required:   []Field{FieldMainImage, FieldReferenceImage},
		Optional:   []Field{FieldLogoImage},
		Controls:   []Field{FieldLanguage, FieldAspectRatio, FieldBatchSize},
		Operations: []Operation{OpReferenceBatch},
	},
	ModeCreativeManual: {
		Mode:       ModeCreativeManual,
		Title:      "Creative Manual Design",
		Required:   []Field{FieldInstruction},
		Controls:   []Field{FieldDesignContext, FieldAspectRatio, FieldBatchSize},
		Operations: []Operation{OpCreativeBatch},
	},
	ModeMagazineAnalysis: {
		Mode:       ModeMagazineAnalysis,
		Title:      "Magazine Vision Analysis",
		Required:   []Field{FieldMagazineImage},
		Operations: []Operation{OpAnalysis},
	},
	ModeAffiliator: {
		Mode:     ModeAffiliator,
		Title:    "Affiliator AI Mode",
		Required: []Field{FieldPortraitImage, FieldProductImage},
		Controls: []Field{
			FieldScene, FieldSceneOverride,
			FieldOutfit, FieldOutfitOverride,
			FieldPose, FieldPoseOverride,
			FieldAspectRatio, FieldBatchSize,
		},
		Operations: []Operation{OpComposite},
	},
}

// Describe returns the catalog entry for mode.
func Describe(mode Mode) (ModeSpec, bool) {
	spec, ok := modeSpecs[mode]
	if !ok {
		return ModeSpec{}, false
	}
	spec.Required = append([]Field(nil), spec.Required...)
	spec.Optional = append([]Field(nil), spec.Optional...)
	spec.Controls = append([]Field(nil), spec.Controls...)
	spec.Operations = append([]Operation(nil), spec.Operations...)
	return spec, true
}

// Modes returns every mode in display order.
func Modes() []Mode {
	return append([]Mode(nil), modeOrder...)
}

// ParseMode accepts the canonical key or a short alias.
func ParseMode(raw string) (Mode, bool) {
	switch normalizeKey(raw) {
	case "auto_design", "auto", "autodesign", "poster":
		return ModeAutoDesign, true
	case "reference", "ref", "clone":
		return ModeReference, true
	case "creative_manual", "creative", "manual":
		return ModeCreativeManual, true
	case "magazine_analysis", "magazine", "analysis", "ocr":
		return ModeMagazineAnalysis, true
	case "affiliator", "ugc", "affiliate":
		return ModeAffiliator, true
	}
	return "", false
}

type AspectRatio string

const (
	Aspect1x1  AspectRatio = "1:1"
	Aspect3x4  AspectRatio = "3:4"
	Aspect4x3  AspectRatio = "4:3"
	Aspect9x16 AspectRatio = "9:16"
	Aspect16x9 AspectRatio = "16:9"
)

var aspectRatios = []AspectRatio{Aspect1x1, Aspect3x4, Aspect4x3, Aspect9x16, Aspect16x9}

func AspectRatios() []AspectRatio {
	return append([]AspectRatio(nil), aspectRatios...)
}

const (
	MinDensity   = 1
	MaxDensity   = 5
	MinBatchSize = 1
	MaxBatchSize = 3
)

var densityLabels = map[int]string{
	1: "Minimal",
	2: "Low",
	3: "Balanced",
	4: "High",
	5: "Maximum",
}

func DensityLabel(level int) string {
	return densityLabels[level]
}

var languages = []string{
	"Indonesian",
	"English",
	"Mandarin (Simplified)",
	"Japanese",
	"French",
	"German",
	"Malay",
}

var posterStyles = []string{
	"Modern Minimalist",
	"Cyberpunk / Sci-Fi",
	"Retro / Vintage 90s",
	"Luxury / Elegant",
	"Organic / Nature",
	"Bold Typography",
	"Geometric / Bauhaus",
	"Abstract Art",
	"Corporate / Professional",
	"Playful / Kids",
	"Grunge / Street",
	"Neon / Nightlife",
	"Watercolor / Artistic",
	"Paper Cutout / Collage",
	"3D Render / Glossy",
	"Swiss Style / Grid",
	"Art Deco / Classy",
	"Pop Art / Comic",
	"Industrial / Raw",
	"Futuristic / Tech",

	"Splash Product Visualization",
	"Hyper-Refreshment Look",
	"Modern FMCG Promo Style",
	"Eco Fresh Organic Look",
	"Neo-Cinematic Beverage Aesthetic",
	"Ultra-Realistic Product Liquid CGI",
	"Shadow-Play Modern Product Ads",
	"Stylized 3D Food Art (Pixar-like)",

	"Neo-Editorial Minimalism",
	"High-Fashion Cinematic Portrait",
	"Korean Soft Aesthetic",
	"Youth Lifestyle Dynamic Motion",
	"High-Contrast Color Blocking",
}

var designContexts = []string{
	"Education / Infographic",
	"Health & Wellness",
	"Lifestyle & Fashion",
	"Technology & AI",
	"Social Life / Party",
	"Job & Career",
	"Quotes & Motivation",
	"Business & Marketing",
	"Food & Culinary",
	"Event & Conference",
	"Travel & Adventure",
	"Politics & News",
}

var affiliatorScenes = []string{
	"Studio: Futuristic Gamers Setup (Neon, RGB)",
	"Studio: Professional Podcast (Microphone, Acoustic Foam)",
	"Indoor: Minimalist Scandinavian Home (Cozy, White)",
	"Indoor: Luxury Office (Glass, City View)",
	"Indoor: Modern Kitchen (Bright, Marble)",
	"Indoor: Industrial Loft (Brick, Steel)",
	"Indoor: Gym / Fitness Center",
	"Outdoor: Urban Street Vibe (Graffiti, Asphalt)",
	"Outdoor: Coffee Shop Terrace (Sunlight, Wooden Tables)",
	"Outdoor: In Front of Trendy Cafe",
	"Outdoor: Rooftop Sunset (Golden Hour)",
	"Outdoor: Tropical Beach (Blue Sky, Sand)",
	"Outdoor: Nature Park (Greenery, Trees)",
	"Aesthetic: Soil Land with Magma Cracks",
	"Aesthetic: Underwater (Bubbles, Refraction)",
	"Aesthetic: Cloud Heaven (Dreamy, Soft)",
	"Aesthetic: Cyberpunk City Street (Rain, Neon)",
	"Aesthetic: Floral Garden (Blooming Flowers)",
	"Aesthetic: Minimalist Solid Color Studio",
	"Aesthetic: Abstract Geometric 3D Background",
}

var affiliatorOutfits = []string{
	"Auto Generated (Best Match)",
	"Casual: T-Shirt & Jeans",
	"Casual: Oversized Hoodie & Joggers",
	"Smart Casual: Blazer & Chinos",
	"Professional: Business Suit",
	"Professional: Modern Office Wear",
	"Summer: Floral Shirt & Shorts",
	"Summer: Sundress / Beach Wear",
	"Sporty: Gym/Yoga Activewear",
	"Sporty: Runner Gear",
	"Streetwear: Bomber Jacket & Cargo",
	"Fashion: High-End Luxury Coat",
	"Edgy: Leather Jacket & Black Jeans",
	"Cozy: Knitted Sweater",
	"Cultural: Batik / Traditional Modern",
	"Uniform: Medical / Lab Coat",
	"Uniform: Chef / Apron",
	"Party: Cocktail Dress / Evening Wear",
	"Vintage: 90s Retro Style",
	"Futuristic: Techwear",
}

var affiliatorPoses = []string{
	"Auto Generated (Best Match)",
	"Holding product close to face (Smiling)",
	"Holding product out towards camera (POV)",
	"Using the product naturally",
	"Sitting at table, product in front",
	"Standing confidently, product in hand",
	"Pointing at product (Excited)",
	"Looking at product admiringly",
	"Walking while holding product",
	"Selfie style with product",
	"Flat lay (Product only, artistic)",
	"Over the shoulder look",
	"Laughing/Candid interaction",
	"Serious/Professional presentation",
	"Leaning against wall with product",
	"Drinking/Eating (if consumable)",
	"Applying (if cosmetic)",
	"Unboxing gesture",
	"Two hands presenting product",
	"Thumbs up with product",
}

func Languages() []string      { return append([]string(nil), languages...) }
func PosterStyles() []string   { return append([]string(nil), posterStyles...) }
func DesignContexts() []string { return append([]string(nil), designContexts...) }
func Scenes() []string         { return append([]string(nil), affiliatorScenes...) }
func Outfits() []string        { return append([]string(nil), affiliatorOutfits...) }
func Poses() []string          { return append([]string(nil), affiliatorPoses...) }

// Choices returns the fixed value set of an enumerated field, or nil for
// free-form and image fields.
func Choices(field Field) []string {
	switch field {
	case FieldLanguage:
		return Languages()
	case FieldStyle:
		return PosterStyles()
	case FieldDesignContext:
		return DesignContexts()
	case FieldScene:
		return Scenes()
	case FieldOutfit:
		return Outfits()
	case FieldPose:
		return Poses()
	case FieldAspectRatio:
		out := make([]string, 0, len(aspectRatios))
		for _, ar := range aspectRatios {
			out = append(out, string(ar))
		}
		return out
	case FieldDensity:
		return []string{"1", "2", "3", "4", "5"}
	case FieldBatchSize:
		return []string{"1", "2", "3"}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
