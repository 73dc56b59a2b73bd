package domain

// GeneratedDesign is the final styled image reference produced by the
// generation backend. Immutable once created; producing a new one means
// going back to style selection or starting over.
type GeneratedDesign struct {
	ImageURL string `json:"imageUrl"`
}
