package config

import (
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kelseyhightower/envconfig"
)

const (
	prefix      = "reroute"
	tableFormat = `Reroute is configured via the environment. The following environment
variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`
)

var (
	// Version of this build, set by main
	Version = ""

	// BuildDate for this build, set by main
	BuildDate = ""
)

// StampMode selects how marker headers are written.
type StampMode string

const (
	// IdempotentStamping appends a marker only when it is missing or carries a different value.
	IdempotentStamping StampMode = "idempotent"
	// UnconditionalStamping appends every marker on every evaluation.
	UnconditionalStamping StampMode = "unconditional"
)

// Root wraps all other configurations.
type Root struct {
	LogLevel  string `required:"true" default:"info" desc:"debug, info, warn, or error"`
	Reroute   Reroute
	Directory Directory
	Lua       Lua
	Web       Web
}

// Reroute contains the engine configuration.
type Reroute struct {
	Policy        string    `required:"true" default:"exclude-directory" desc:"accept-all, exclude-directory, or exclude-intra-org"`
	ControlHeader string    `required:"true" default:"X-ACSOnPremConnector-Target" desc:"Header carrying the target domain"`
	MarkerHeader  string    `required:"true" default:"X-ACSOnPremConnector-Name" desc:"Loop prevention and provenance header"`
	MarkerValue   string    `desc:"Provenance value, defaults to the policy name"`
	Markers       []string  `default:"X-ACSOnPremConnector-Creator:reroute,X-ACSOnPremConnector-Contact:postmaster" desc:"Additional Name:Value marker headers"`
	Stamping      StampMode `required:"true" default:"idempotent" desc:"idempotent or unconditional"`
	SettingsFile  string    `default:"/etc/reroute/settings.toml" desc:"Persisted settings store"`
}

// Directory contains the recipient directory configuration.
type Directory struct {
	Type string `required:"true" default:"memory" desc:"memory or sqlite"`
	Path string `desc:"SQLite database path"`
}

// Lua contains the Lua extension host configuration.
type Lua struct {
	Path string `default:"reroute.lua" desc:"Lua script path"`
}

// Web contains the HTTP server configuration.
type Web struct {
	Addr           string `required:"true" default:"127.0.0.1:9180" desc:"Web server host:port"`
	MonitorHistory int    `required:"true" default:"30" desc:"Monitor remembered evaluations"`
	PProf          bool   `required:"true" default:"false" desc:"Expose profiling tools"`
}

// Marker is a header name and value pair parsed from the Markers setting.
type Marker struct {
	Name  string
	Value string
}

// ParseMarkers splits Name:Value entries, in order.  Entries without a colon or with an empty
// name are ignored.
func ParseMarkers(entries []string) []Marker {
	markers := make([]Marker, 0, len(entries))
	for _, e := range entries {
		name, value, ok := strings.Cut(e, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		markers = append(markers, Marker{Name: name, Value: strings.TrimSpace(value)})
	}
	return markers
}

// Process loads and parses configuration from the environment.
func Process() (*Root, error) {
	c := &Root{}
	err := envconfig.Process(prefix, c)
	return c, err
}

// Usage prints out the envconfig usage to Stderr.
func Usage() {
	tabs := tabwriter.NewWriter(os.Stderr, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(prefix, &Root{}, tabs, tableFormat); err != nil {
		log.Fatalf("Unable to parse env config: %v", err)
	}
	tabs.Flush()
}
