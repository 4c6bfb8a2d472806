package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inbucket/reroute/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessDefaults(t *testing.T) {
	conf, err := config.Process()
	require.NoError(t, err)

	assert.Equal(t, "info", conf.LogLevel)
	assert.Equal(t, "exclude-directory", conf.Reroute.Policy)
	assert.Equal(t, "X-ACSOnPremConnector-Target", conf.Reroute.ControlHeader)
	assert.Equal(t, "X-ACSOnPremConnector-Name", conf.Reroute.MarkerHeader)
	assert.Equal(t, config.IdempotentStamping, conf.Reroute.Stamping)
	assert.Equal(t, []config.Marker{
		{Name: "X-ACSOnPremConnector-Creator", Value: "reroute"},
		{Name: "X-ACSOnPremConnector-Contact", Value: "postmaster"},
	}, config.ParseMarkers(conf.Reroute.Markers))
	assert.Equal(t, "memory", conf.Directory.Type)
}

func TestProcessEnvironment(t *testing.T) {
	t.Setenv("REROUTE_REROUTE_POLICY", "accept-all")
	t.Setenv("REROUTE_REROUTE_STAMPING", "unconditional")
	t.Setenv("REROUTE_REROUTE_MARKERS", "X-Creator:ops team,X-Contact:https://example.com/help")

	conf, err := config.Process()
	require.NoError(t, err)

	assert.Equal(t, "accept-all", conf.Reroute.Policy)
	assert.Equal(t, config.UnconditionalStamping, conf.Reroute.Stamping)
	assert.Equal(t, []config.Marker{
		{Name: "X-Creator", Value: "ops team"},
		{Name: "X-Contact", Value: "https://example.com/help"},
	}, config.ParseMarkers(conf.Reroute.Markers))
}

func TestParseMarkersSkipsMalformed(t *testing.T) {
	got := config.ParseMarkers([]string{"NoColon", ":novalue", " X-A : 1 ", "X-B:"})
	assert.Equal(t, []config.Marker{{Name: "X-A", Value: "1"}, {Name: "X-B", Value: ""}}, got)
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	testCases := []struct {
		name    string
		content *string
		want    bool
		wantErr bool
	}{
		{name: "missing store", content: nil, want: false},
		{name: "missing key", content: ptr("Other = 1\n"), want: false},
		{name: "enabled", content: ptr("DebugEnabled = true\n"), want: true},
		{name: "disabled", content: ptr("DebugEnabled = false\n"), want: false},
		{name: "not a bool", content: ptr("DebugEnabled = \"yes\"\n"), want: false, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".toml")
			if tc.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tc.content), 0o600))
			}
			got, err := config.LoadSettings(path)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, got.DebugEnabled)
		})
	}
}

func ptr(s string) *string { return &s }
