// Package generation orchestrates media generation: routing a logical model to
// a provider task, polling it to a terminal state, and settling the job.
package generation

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mediagen/internal/domain"
)

// Profile names the parameter builder used for a model.
type Profile string

const (
	ProfileNanoBanana    Profile = "nanobanana"
	ProfileNanoBananaPro Profile = "nanobanana-pro"
	ProfileSeedream      Profile = "seedream"
	ProfileFlux          Profile = "flux"
	ProfileWan           Profile = "wan"
)

// Entry describes one logical model.
type Entry struct {
	Model         string
	Kind          domain.ProviderKind
	ProviderModel string
	// EditModel replaces ProviderModel when the request carries input images.
	EditModel string
	MediaType domain.MediaType
	MaxImages int
	Profile   Profile
	Price     int
	// Prices holds resolution specific prices keyed by normalized resolution.
	Prices map[string]int
}

// Registry is the model table. It is read-only once built.
type Registry struct {
	entries map[string]Entry
}

// DefaultRegistry returns the built-in model table.
func DefaultRegistry() *Registry {
	return newRegistry([]Entry{
		{
			Model: "nanobanana", Kind: domain.KindGenericJob,
			ProviderModel: "google/nano-banana", EditModel: "google/nano-banana-edit",
			MediaType: domain.MediaTypeImage, MaxImages: 10, Profile: ProfileNanoBanana, Price: 3,
		},
		{
			Model: "nanobanana-pro", Kind: domain.KindGenericJob,
			ProviderModel: "nano-banana-pro",
			MediaType:     domain.MediaTypeImage, MaxImages: 8, Profile: ProfileNanoBananaPro,
			Price: 6, Prices: map[string]int{"1K": 6, "2K": 10},
		},
		{
			Model: "seedream", Kind: domain.KindGenericJob,
			ProviderModel: "bytedance/seedream-v4-text-to-image", EditModel: "bytedance/seedream-v4-edit",
			MediaType: domain.MediaTypeImage, MaxImages: 10, Profile: ProfileSeedream, Price: 3,
		},
		{
			Model: "flux", Kind: domain.KindSingleTask,
			ProviderModel: "flux-kontext-pro",
			MediaType:     domain.MediaTypeImage, MaxImages: 1, Profile: ProfileFlux, Price: 4,
		},
		{
			Model: "flux-max", Kind: domain.KindSingleTask,
			ProviderModel: "flux-kontext-max",
			MediaType:     domain.MediaTypeImage, MaxImages: 1, Profile: ProfileFlux, Price: 8,
		},
		{
			Model: "wan-video", Kind: domain.KindGenericJob,
			ProviderModel: "wan/2-2-a14b-text-to-video-turbo", EditModel: "wan/2-2-a14b-image-to-video-turbo",
			MediaType: domain.MediaTypeVideo, MaxImages: 1, Profile: ProfileWan, Price: 20,
		},
	})
}

func newRegistry(entries []Entry) *Registry {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		r.entries[e.Model] = e
	}
	return r
}

// Lookup returns the entry for model or ErrUnsupportedModel.
func (r *Registry) Lookup(model string) (Entry, error) {
	e, ok := r.entries[strings.TrimSpace(model)]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedModel, model)
	}
	return e, nil
}

// Models lists every entry sorted by model name.
func (r *Registry) Models() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

type registryFile struct {
	Models map[string]entryOverride `yaml:"models"`
}

type entryOverride struct {
	Kind          string         `yaml:"kind"`
	ProviderModel string         `yaml:"provider_model"`
	EditModel     string         `yaml:"edit_model"`
	MediaType     string         `yaml:"media_type"`
	MaxImages     int            `yaml:"max_images"`
	Profile       string         `yaml:"profile"`
	Price         int            `yaml:"price"`
	Prices        map[string]int `yaml:"prices"`
}

// LoadRegistry returns the default registry with the YAML file at path laid
// over it. An empty path yields the defaults.
func LoadRegistry(path string) (*Registry, error) {
	reg := DefaultRegistry()
	if strings.TrimSpace(path) == "" {
		return reg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model registry: %w", err)
	}
	if err := reg.apply(raw); err != nil {
		return nil, fmt.Errorf("model registry %s: %w", path, err)
	}
	return reg, nil
}

func (r *Registry) apply(raw []byte) error {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	for name, o := range file.Models {
		e, exists := r.entries[name]
		if !exists {
			e = Entry{Model: name, MediaType: domain.MediaTypeImage, MaxImages: 1}
		}
		if o.Kind != "" {
			e.Kind = domain.ProviderKind(o.Kind)
		}
		if o.ProviderModel != "" {
			e.ProviderModel = o.ProviderModel
		}
		if o.EditModel != "" {
			e.EditModel = o.EditModel
		}
		if o.MediaType != "" {
			e.MediaType = domain.MediaType(o.MediaType)
		}
		if o.MaxImages > 0 {
			e.MaxImages = o.MaxImages
		}
		if o.Profile != "" {
			e.Profile = Profile(o.Profile)
		}
		if o.Price > 0 {
			e.Price = o.Price
		}
		if len(o.Prices) > 0 {
			e.Prices = make(map[string]int, len(o.Prices))
			for res, price := range o.Prices {
				e.Prices[strings.ToUpper(strings.TrimSpace(res))] = price
			}
		}
		if err := validateEntry(e); err != nil {
			return fmt.Errorf("model %q: %w", name, err)
		}
		r.entries[name] = e
	}
	return nil
}

func validateEntry(e Entry) error {
	switch e.Kind {
	case domain.KindSingleTask, domain.KindGenericJob:
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if _, ok := builders[e.Profile]; !ok {
		return fmt.Errorf("unknown profile %q", e.Profile)
	}
	if e.ProviderModel == "" {
		return fmt.Errorf("provider_model is required")
	}
	switch e.MediaType {
	case domain.MediaTypeImage, domain.MediaTypeVideo:
	default:
		return fmt.Errorf("unknown media type %q", e.MediaType)
	}
	if e.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	return nil
}
