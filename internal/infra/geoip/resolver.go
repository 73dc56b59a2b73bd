package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip resolver unavailable")

// ClimateResolver maps a caller's IP to a coarse climate description. It is
// used only to seed the degraded fallback analysis, never for business logic.
type ClimateResolver interface {
	ClimateHint(ip string) (string, error)
}

// Resolver provides climate hints backed by a MaxMind GeoIP2 country database.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens the GeoIP database at the given path. When the path is empty, nil is returned.
func NewResolver(path string) (ClimateResolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// ClimateHint resolves the country for an IP and maps it to a climate band.
func (r *Resolver) ClimateHint(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	record, err := r.reader.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	if record == nil || record.Country.IsoCode == "" {
		return "", nil
	}
	return ClimateForCountry(record.Country.IsoCode), nil
}

// Close closes the underlying database reader.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

// ClimateForCountry maps an ISO country code to a coarse climate band. The
// mapping is deliberately rough; it only nudges the wording of the fallback
// analysis toward something plausible for the visitor's region.
func ClimateForCountry(iso string) string {
	switch strings.ToUpper(strings.TrimSpace(iso)) {
	case "ID", "MY", "SG", "TH", "VN", "PH", "BR", "CO", "EC", "KE", "NG":
		return "tropical"
	case "AE", "SA", "EG", "QA", "KW", "OM":
		return "arid"
	case "ES", "IT", "GR", "PT", "TR", "MA":
		return "mediterranean"
	case "NO", "SE", "FI", "IS", "CA", "RU":
		return "cold temperate"
	case "":
		return ""
	default:
		return "temperate"
	}
}
