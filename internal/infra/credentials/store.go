package credentials

import (
	"errors"
	"strings"
	"sync"

	"server/internal/infra"
)

const (
	ProviderVision     = "vision"
	ProviderCloudinary = "cloudinary"
)

// CloudinarySet bundles the media-host credentials. The values are opaque
// secrets; nothing in this service parses them.
type CloudinarySet struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
}

// Store keeps provider credentials behind a lock so a future rotation path
// can swap them without restarting in-flight requests.
type Store struct {
	mu         sync.RWMutex
	visionKey  string
	cloudinary CloudinarySet
}

// NewStore returns an empty credential store.
func NewStore() *Store {
	return &Store{}
}

// FromConfig seeds a store with whatever the environment provided. A rejected
// credential set is reported through the error; the store stays usable for the
// providers that seeded cleanly.
func FromConfig(cfg *infra.Config) (*Store, error) {
	s := NewStore()
	err := errors.Join(
		s.SetVisionAPIKey(cfg.OpenAIAPIKey),
		s.SetCloudinary(CloudinarySet{
			CloudName:    cfg.CloudinaryCloudName,
			APIKey:       cfg.CloudinaryAPIKey,
			APISecret:    cfg.CloudinaryAPISecret,
			UploadPreset: cfg.CloudinaryUploadPreset,
		}),
	)
	return s, err
}

// VisionAPIKey returns the completion-backend key, or "" when unset.
func (s *Store) VisionAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visionKey
}

// SetVisionAPIKey stores a trimmed key. An empty key is not an error here;
// it simply leaves the provider without credentials.
func (s *Store) SetVisionAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visionKey = strings.TrimSpace(key)
	return nil
}

// Cloudinary returns the current media-host credential set.
func (s *Store) Cloudinary() CloudinarySet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloudinary
}

// SetCloudinary stores a trimmed credential set. A partially filled set is
// rejected so a misconfigured host never half-works.
func (s *Store) SetCloudinary(set CloudinarySet) error {
	set.CloudName = strings.TrimSpace(set.CloudName)
	set.APIKey = strings.TrimSpace(set.APIKey)
	set.APISecret = strings.TrimSpace(set.APISecret)
	set.UploadPreset = strings.TrimSpace(set.UploadPreset)
	if set.CloudName != "" && set.UploadPreset == "" {
		return errors.New("credentials: cloudinary upload preset is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cloudinary = set
	return nil
}

// Has reports whether a provider is usable.
func (s *Store) Has(provider string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch provider {
	case ProviderVision:
		return s.visionKey != ""
	case ProviderCloudinary:
		return s.cloudinary.CloudName != "" && s.cloudinary.UploadPreset != ""
	default:
		return false
	}
}
