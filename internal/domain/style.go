package domain

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Style is one entry of the fixed design-style catalog.
type Style struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

var presetStyles = []Style{
	{
		ID:          "modern-minimalist",
		Name:        "Modern Minimalist",
		Description: "Clean lines, curated plants, and a focus on space and function.",
		Features:    []string{"Sleek geometric shapes", "Low-maintenance plants", "Modern materials", "Functional design"},
	},
	{
		ID:          "cottage-garden",
		Name:        "English Cottage Garden",
		Description: "Lush blooms, natural curves, and a romantic vibe.",
		Features:    []string{"Layered flower beds", "Winding paths", "Vintage accents", "Seasonal color"},
	},
	{
		ID:          "zen-garden",
		Name:        "Zen Japanese Garden",
		Description: "Balance, tranquility, and the perfect blend of water and stone.",
		Features:    []string{"Water features", "Natural stone", "Mossy plants", "Meditation space"},
	},
	{
		ID:          "entertainment",
		Name:        "Entertainment Oasis",
		Description: "A backyard built for gatherings and family fun.",
		Features:    []string{"Outdoor dining", "Lounge seating", "BBQ area", "Lighting system"},
	},
	{
		ID:          "mediterranean",
		Name:        "Mediterranean Escape",
		Description: "Warm tones, fragrant herbs, and a taste of Southern Europe.",
		Features:    []string{"Warm materials", "Herb gardens", "Terracotta accents", "Shade structures"},
	},
	{
		ID:          "tropical",
		Name:        "Tropical Paradise",
		Description: "Bold foliage and vacation vibes for a lush, exotic retreat.",
		Features:    []string{"Large-leaf plants", "Tropical colors", "Water features", "Resort atmosphere"},
	},
}

// PresetStyles returns the catalog in display order.
func PresetStyles() []Style {
	out := make([]Style, len(presetStyles))
	copy(out, presetStyles)
	return out
}

// FindPreset looks a style up by its id.
func FindPreset(id string) (Style, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, s := range presetStyles {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}

// StyleDisplayName resolves a user-supplied style identifier to a
// human-readable name. Unknown ids are title-cased so free-form style strings
// still read naturally inside a generation prompt.
func StyleDisplayName(id string) string {
	if s, ok := FindPreset(id); ok {
		return s.Name
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(id), "-", " ")
	cleaned = strings.ReplaceAll(cleaned, "_", " ")
	return cases.Title(language.English).String(cleaned)
}

// StyleChoice is the user's pick before generation: exactly one of a preset
// id or a free-text description.
type StyleChoice struct {
	PresetID          string `json:"presetId,omitempty"`
	CustomDescription string `json:"customDescription,omitempty"`
}

// ErrNoStyle indicates an empty choice.
var ErrNoStyle = errors.New("style: either a preset id or a custom description is required")

// ErrAmbiguousStyle indicates both fields were set.
var ErrAmbiguousStyle = errors.New("style: preset id and custom description are mutually exclusive")

// UnknownStyleError reports a preset id that is not in the catalog.
type UnknownStyleError struct {
	ID string
}

func (e *UnknownStyleError) Error() string {
	return "style: unknown preset " + e.ID
}

// Validate enforces the exactly-one constraint and that a preset id exists.
func (c StyleChoice) Validate() error {
	preset := strings.TrimSpace(c.PresetID)
	custom := strings.TrimSpace(c.CustomDescription)
	switch {
	case preset == "" && custom == "":
		return ErrNoStyle
	case preset != "" && custom != "":
		return ErrAmbiguousStyle
	case preset != "":
		if _, ok := FindPreset(preset); !ok {
			return &UnknownStyleError{ID: preset}
		}
	}
	return nil
}

// IsCustom reports whether the choice carries a free-text description.
func (c StyleChoice) IsCustom() bool {
	return strings.TrimSpace(c.CustomDescription) != ""
}
