package domain

import (
	"errors"
	"testing"
)

func TestPresetCatalog(t *testing.T) {
	styles := PresetStyles()
	if len(styles) != 6 {
		t.Fatalf("catalog size = %d", len(styles))
	}
	seen := map[string]bool{}
	for _, s := range styles {
		if s.ID == "" || s.Name == "" || s.Description == "" || len(s.Features) == 0 {
			t.Fatalf("incomplete style: %+v", s)
		}
		if seen[s.ID] {
			t.Fatalf("duplicate id %q", s.ID)
		}
		seen[s.ID] = true
	}
	for _, id := range []string{"modern-minimalist", "cottage-garden", "zen-garden", "entertainment", "mediterranean", "tropical"} {
		if !seen[id] {
			t.Fatalf("missing preset %q", id)
		}
	}
}

func TestFindPreset(t *testing.T) {
	if _, ok := FindPreset("zen-garden"); !ok {
		t.Fatal("zen-garden not found")
	}
	if _, ok := FindPreset("  ZEN-GARDEN  "); !ok {
		t.Fatal("lookup must be case-insensitive and trimmed")
	}
	if _, ok := FindPreset("brutalist"); ok {
		t.Fatal("unknown preset found")
	}
}

func TestStyleDisplayName(t *testing.T) {
	if got := StyleDisplayName("zen-garden"); got != "Zen Japanese Garden" {
		t.Fatalf("got %q", got)
	}
	if got := StyleDisplayName("desert_oasis"); got != "Desert Oasis" {
		t.Fatalf("got %q", got)
	}
	if got := StyleDisplayName("rustic farmhouse"); got != "Rustic Farmhouse" {
		t.Fatalf("got %q", got)
	}
}

func TestStyleChoiceValidate(t *testing.T) {
	if err := (StyleChoice{PresetID: "tropical"}).Validate(); err != nil {
		t.Fatalf("preset choice rejected: %v", err)
	}
	if err := (StyleChoice{CustomDescription: "a koi pond"}).Validate(); err != nil {
		t.Fatalf("custom choice rejected: %v", err)
	}
	if err := (StyleChoice{}).Validate(); !errors.Is(err, ErrNoStyle) {
		t.Fatalf("empty choice: %v", err)
	}
	if err := (StyleChoice{PresetID: "tropical", CustomDescription: "both"}).Validate(); !errors.Is(err, ErrAmbiguousStyle) {
		t.Fatalf("ambiguous choice: %v", err)
	}
	var uerr *UnknownStyleError
	if err := (StyleChoice{PresetID: "brutalist"}).Validate(); !errors.As(err, &uerr) {
		t.Fatalf("unknown preset: %v", err)
	}
	if uerr.ID != "brutalist" {
		t.Fatalf("unknown id = %q", uerr.ID)
	}
}

func TestStyleChoiceIsCustom(t *testing.T) {
	if (StyleChoice{PresetID: "tropical"}).IsCustom() {
		t.Fatal("preset choice reported custom")
	}
	if !(StyleChoice{CustomDescription: "x"}).IsCustom() {
		t.Fatal("custom choice not reported custom")
	}
}
