package generation

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"mediagen/internal/domain"
)

// Request holds the generic fields a caller supplies for one generation.
type Request struct {
	Prompt         string
	Model          string
	AspectRatio    string
	Images         []string
	NegativePrompt string
	Resolution     string
}

// Route is a resolved request ready for the provider.
type Route struct {
	Entry      Entry
	Kind       domain.ProviderKind
	Input      domain.TaskInput
	Resolution string
}

// Router maps logical requests onto provider tasks. It has no side effects.
type Router struct {
	registry *Registry
}

func NewRouter(registry *Registry) *Router {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Router{registry: registry}
}

// Registry returns the table the router resolves against.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Route resolves req. The only error is ErrUnsupportedModel.
func (r *Router) Route(req Request) (Route, error) {
	entry, err := r.registry.Lookup(req.Model)
	if err != nil {
		return Route{}, err
	}
	req.Prompt = normalizePrompt(req.Prompt)
	req.NegativePrompt = normalizePrompt(req.NegativePrompt)
	req.Images = cleanImages(req.Images, entry.MaxImages)

	b := builders[entry.Profile]
	params, resolution := b(req)

	providerModel := entry.ProviderModel
	if len(req.Images) > 0 && entry.EditModel != "" {
		providerModel = entry.EditModel
	}
	return Route{
		Entry:      entry,
		Kind:       entry.Kind,
		Input:      domain.TaskInput{ProviderModel: providerModel, Params: params},
		Resolution: resolution,
	}, nil
}

func normalizePrompt(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func cleanImages(images []string, limit int) []string {
	var out []string
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// builder produces provider params and the normalized resolution, if the
// profile has one.
type builder func(req Request) (map[string]any, string)

var builders = map[Profile]builder{
	ProfileNanoBanana:    buildNanoBanana,
	ProfileNanoBananaPro: buildNanoBananaPro,
	ProfileSeedream:      buildSeedream,
	ProfileFlux:          buildFlux,
	ProfileWan:           buildWan,
}

var standardRatios = tokenSet("1:1", "9:16", "16:9", "3:4", "4:3", "3:2", "2:3", "5:4", "4:5", "21:9")

func buildNanoBanana(req Request) (map[string]any, string) {
	params := map[string]any{
		"prompt":        req.Prompt,
		"output_format": "png",
		"image_size":    pick(standardRatios, req.AspectRatio, "1:1"),
	}
	if len(req.Images) > 0 {
		params["image_urls"] = req.Images
	}
	return params, ""
}

var proResolutions = tokenSet("1K", "2K")

func buildNanoBananaPro(req Request) (map[string]any, string) {
	resolution := pick(proResolutions, strings.ToUpper(strings.TrimSpace(req.Resolution)), "1K")
	params := map[string]any{
		"prompt":        req.Prompt,
		"output_format": "png",
		"aspect_ratio":  pick(standardRatios, req.AspectRatio, "1:1"),
		"resolution":    resolution,
	}
	if len(req.Images) > 0 {
		params["image_input"] = req.Images
	}
	return params, resolution
}

var seedreamSizes = map[string]string{
	"1:1":  "square_hd",
	"3:4":  "portrait_4_3",
	"9:16": "portrait_16_9",
	"4:3":  "landscape_4_3",
	"16:9": "landscape_16_9",
	"21:9": "landscape_21_9",
}

func buildSeedream(req Request) (map[string]any, string) {
	size, ok := seedreamSizes[strings.TrimSpace(req.AspectRatio)]
	if !ok {
		size = "square_hd"
	}
	params := map[string]any{
		"prompt":     req.Prompt,
		"image_size": size,
		"max_images": 1,
	}
	if req.NegativePrompt != "" {
		params["negative_prompt"] = req.NegativePrompt
	}
	if len(req.Images) > 0 {
		params["image_urls"] = req.Images
	}
	return params, ""
}

var fluxRatios = tokenSet("21:9", "16:9", "4:3", "1:1", "3:4", "9:16")

func buildFlux(req Request) (map[string]any, string) {
	params := map[string]any{
		"prompt":       req.Prompt,
		"aspectRatio":  pick(fluxRatios, req.AspectRatio, "16:9"),
		"outputFormat": "png",
	}
	if len(req.Images) > 0 {
		params["inputImage"] = req.Images[0]
	}
	return params, ""
}

var (
	wanRatios      = tokenSet("16:9", "9:16", "1:1")
	wanResolutions = tokenSet("480p", "720p")
)

func buildWan(req Request) (map[string]any, string) {
	resolution := pick(wanResolutions, strings.ToLower(strings.TrimSpace(req.Resolution)), "720p")
	params := map[string]any{
		"prompt":       req.Prompt,
		"aspect_ratio": pick(wanRatios, req.AspectRatio, "16:9"),
		"resolution":   resolution,
	}
	if req.NegativePrompt != "" {
		params["negative_prompt"] = req.NegativePrompt
	}
	if len(req.Images) > 0 {
		params["image_url"] = req.Images[0]
	}
	return params, resolution
}

func tokenSet(tokens ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// pick returns value when the provider accepts it and fallback otherwise.
func pick(accepted map[string]struct{}, value, fallback string) string {
	value = strings.TrimSpace(value)
	if _, ok := accepted[value]; ok {
		return value
	}
	return fallback
}
