package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CAMPUS_ZONES", "")
	t.Setenv("CAMPUS_RADIUS_METERS", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.Geofence.CampusRadiusMeters)
	assert.Equal(t, 150.0, cfg.Geofence.EventCheckInRadiusMeters)
	assert.Contains(t, cfg.Geofence.Campuses, "central")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CAMPUS_ZONES", "lab:-22.81:-47.06;farm:-22.70:-47.10")
	t.Setenv("EVENT_CHECKIN_RADIUS_METERS", "75.5")
	t.Setenv("METRICS_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Len(t, cfg.Geofence.Campuses, 2)
	assert.Equal(t, 75.5, cfg.Geofence.EventCheckInRadiusMeters)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadRejectsBadZones(t *testing.T) {
	t.Setenv("CAMPUS_ZONES", "lab:north:west")
	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", DBName: "aura", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/aura?sslmode=disable", d.DSN())
	d.URL = "postgres://elsewhere/aura"
	assert.Equal(t, "postgres://elsewhere/aura", d.DSN())
}
