package design

import (
	"fmt"
	"strings"

	"server/internal/domain"
)

const keepSceneInstructions = `Keep the original background, perspective, layout, and object scale unchanged.
Do not remove or alter existing major features; only build upon them.
The result should feel realistic, detailed, and seamlessly integrated into the original photo.`

// buildStyledPrompt templates the structured input shape: the chosen style
// plus the space attributes the analysis produced.
func buildStyledPrompt(style string, analysis *domain.AnalysisResult) string {
	name := domain.StyleDisplayName(style)
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Reimagine this outdoor space in a %s landscape aesthetic.\n", name)
	sb.WriteString(keepSceneInstructions)
	fmt.Fprintf(sb, "\nThe space is a %s of %s size, with %s and %s soil in a %s climate.",
		analysis.SpaceType, analysis.Size, analysis.Lighting, analysis.SoilType, analysis.Climate)
	if len(analysis.ExistingFeatures) > 0 {
		fmt.Fprintf(sb, "\nExisting features to preserve: %s.", strings.Join(analysis.ExistingFeatures, ", "))
	}
	if len(analysis.Opportunities) > 0 {
		fmt.Fprintf(sb, "\nLean into: %s.", strings.Join(analysis.Opportunities, ", "))
	}
	sb.WriteString("\nEnhance the scene with landscaping elements, vegetation, surfaces, and accessories that reflect the selected style.")
	return sb.String()
}

// wrapCustomPrompt passes a freeform prompt through verbatim with only the
// keep-background and keep-scale guard rails added.
func wrapCustomPrompt(custom string) string {
	return strings.TrimSpace(custom) + "\n" + keepSceneInstructions
}
