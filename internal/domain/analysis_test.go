package domain

import (
	"strings"
	"testing"
)

const fullAnalysisJSON = `{
	"spaceType": "backyard",
	"size": "medium",
	"existingFeatures": ["lawn"],
	"lighting": "full sun",
	"soilType": "loam",
	"climate": "temperate",
	"challenges": [],
	"opportunities": ["patio corner"],
	"recommendations": ["raised beds"]
}`

func TestParseAnalysisAcceptsCompletePayload(t *testing.T) {
	result, err := ParseAnalysis([]byte(fullAnalysisJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SpaceType != "backyard" || result.Size != "medium" {
		t.Fatalf("result = %+v", result)
	}
	if len(result.Challenges) != 0 || result.Challenges == nil {
		t.Fatal("empty list must parse as empty, not nil")
	}
}

func TestParseAnalysisRejectsMissingFields(t *testing.T) {
	cases := map[string]string{
		"missing scalar": `{"spaceType":"backyard","size":"medium","existingFeatures":[],"lighting":"sun","soilType":"loam","challenges":[],"opportunities":[],"recommendations":[]}`,
		"missing list":   `{"spaceType":"backyard","size":"medium","lighting":"sun","soilType":"loam","climate":"temperate","challenges":[],"opportunities":[],"recommendations":[]}`,
		"blank scalar":   strings.Replace(fullAnalysisJSON, `"medium"`, `"  "`, 1),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseAnalysis([]byte(payload)); err == nil {
				t.Fatal("incomplete payload must be rejected")
			}
		})
	}
}

func TestParseAnalysisRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseAnalysis([]byte("not json at all")); err == nil {
		t.Fatal("malformed payload must be rejected")
	}
}

func TestFallbackAnalysisIsAlwaysValid(t *testing.T) {
	for _, hint := range []string{"", "tropical", "  arid  "} {
		result := FallbackAnalysis(hint)
		if err := result.Validate(); err != nil {
			t.Fatalf("fallback with hint %q invalid: %v", hint, err)
		}
		if result.ExistingFeatures == nil || result.Recommendations == nil {
			t.Fatal("fallback lists must be empty, never nil")
		}
	}
	if FallbackAnalysis("").Climate != "temperate" {
		t.Fatalf("default climate = %q", FallbackAnalysis("").Climate)
	}
	if FallbackAnalysis(" arid ").Climate != "arid" {
		t.Fatalf("hinted climate = %q", FallbackAnalysis(" arid ").Climate)
	}
}
