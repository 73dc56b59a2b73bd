package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnalysisResult is the structured description of an uploaded space produced
// by the vision backend. It is created at most once per uploaded image and is
// read-only afterwards.
type AnalysisResult struct {
	SpaceType        string   `json:"spaceType"`
	Size             string   `json:"size"`
	ExistingFeatures []string `json:"existingFeatures"`
	Lighting         string   `json:"lighting"`
	SoilType         string   `json:"soilType"`
	Climate          string   `json:"climate"`
	Challenges       []string `json:"challenges"`
	Opportunities    []string `json:"opportunities"`
	Recommendations  []string `json:"recommendations"`
}

// Validate enforces the result invariant: every field must be present. An
// empty list is valid, a nil list means the backend omitted the field and the
// payload must be rejected rather than silently coerced.
func (a *AnalysisResult) Validate() error {
	if a == nil {
		return fmt.Errorf("analysis: result is nil")
	}
	for name, v := range map[string]string{
		"spaceType": a.SpaceType,
		"size":      a.Size,
		"lighting":  a.Lighting,
		"soilType":  a.SoilType,
		"climate":   a.Climate,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("analysis: missing field %q", name)
		}
	}
	for name, v := range map[string][]string{
		"existingFeatures": a.ExistingFeatures,
		"challenges":       a.Challenges,
		"opportunities":    a.Opportunities,
		"recommendations":  a.Recommendations,
	} {
		if v == nil {
			return fmt.Errorf("analysis: missing field %q", name)
		}
	}
	return nil
}

// ParseAnalysis decodes and validates a raw JSON analysis payload.
func ParseAnalysis(raw []byte) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

// FallbackAnalysis returns the placeholder analysis used when the vision
// backend fails and the workflow advances anyway. List fields are empty but
// never nil so downstream consumers see a well-formed result. A non-empty
// climate hint (usually from GeoIP) replaces the placeholder climate.
func FallbackAnalysis(climateHint string) *AnalysisResult {
	climate := strings.TrimSpace(climateHint)
	if climate == "" {
		climate = "temperate"
	}
	return &AnalysisResult{
		SpaceType:        "outdoor space",
		Size:             "medium",
		ExistingFeatures: []string{},
		Lighting:         "mixed sun and shade",
		SoilType:         "unknown",
		Climate:          climate,
		Challenges:       []string{},
		Opportunities:    []string{},
		Recommendations:  []string{},
	}
}
