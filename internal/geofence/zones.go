package geofence

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	dErrors "github.com/aura-events/backend/pkg/domainerrors"
)

// ErrUnknownZone is returned when a campus name has no zone.
var ErrUnknownZone = errors.New("unknown campus")

// GeoZone is a named circular allowed area.
type GeoZone struct {
	Name         string     `json:"name"`
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius_meters"`
}

// Contains reports whether point is inside the zone.
func (z GeoZone) Contains(point Coordinate) bool {
	return IsWithinRadius(point, z.Center, z.RadiusMeters)
}

// DefaultCampuses is the built-in campus table used when no override is configured.
var DefaultCampuses = map[string]Coordinate{
	"central":  {Latitude: -22.8184, Longitude: -47.0647},
	"north":    {Latitude: -22.7550, Longitude: -47.0710},
	"downtown": {Latitude: -22.9056, Longitude: -47.0608},
	"coastal":  {Latitude: -23.9608, Longitude: -46.3336},
}

// Table is a read-only campus name -> GeoZone lookup, built once at startup.
type Table struct {
	zones map[string]GeoZone
	names []string
}

// NewTable builds a table where every campus shares radiusMeters.
func NewTable(campuses map[string]Coordinate, radiusMeters float64) (*Table, error) {
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("campus radius must be positive, got %v", radiusMeters)
	}
	t := &Table{zones: make(map[string]GeoZone, len(campuses))}
	for name, center := range campuses {
		key := normalizeName(name)
		if key == "" {
			return nil, errors.New("campus name must not be empty")
		}
		if err := center.Validate(); err != nil {
			return nil, fmt.Errorf("campus %s: %w", name, err)
		}
		t.zones[key] = GeoZone{Name: key, Center: center, RadiusMeters: radiusMeters}
		t.names = append(t.names, key)
	}
	sort.Strings(t.names)
	return t, nil
}

// ResolveZone returns the zone for a campus name (case-insensitive). Unknown names
// are a validation error wrapping ErrUnknownZone.
func (t *Table) ResolveZone(campus string) (GeoZone, error) {
	z, ok := t.zones[normalizeName(campus)]
	if !ok {
		return GeoZone{}, dErrors.Wrap(ErrUnknownZone, dErrors.CodeValidation, fmt.Sprintf("unknown campus %q", campus))
	}
	return z, nil
}

// Match returns the first zone, in name order, that contains point.
func (t *Table) Match(point Coordinate) (GeoZone, bool) {
	for _, name := range t.names {
		z := t.zones[name]
		if z.Contains(point) {
			return z, true
		}
	}
	return GeoZone{}, false
}

// Zones returns all zones in name order.
func (t *Table) Zones() []GeoZone {
	out := make([]GeoZone, 0, len(t.names))
	for _, name := range t.names {
		out = append(out, t.zones[name])
	}
	return out
}

// ParseCampuses parses "name:lat:lon;name:lat:lon" into a campus map.
func ParseCampuses(s string) (map[string]Coordinate, error) {
	out := make(map[string]Coordinate)
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("campus entry %q: want name:lat:lon", entry)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("campus entry %q: latitude: %w", entry, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("campus entry %q: longitude: %w", entry, err)
		}
		out[strings.TrimSpace(parts[0])] = Coordinate{Latitude: lat, Longitude: lon}
	}
	if len(out) == 0 {
		return nil, errors.New("no campuses configured")
	}
	return out, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
