// Package server wires the reroute services together.
package server

import (
	"context"
	"io"

	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/directory"
	"github.com/inbucket/reroute/pkg/extension"
	"github.com/inbucket/reroute/pkg/extension/luahost"
	"github.com/inbucket/reroute/pkg/msghub"
	"github.com/inbucket/reroute/pkg/policy"
	"github.com/inbucket/reroute/pkg/reroute"
	"github.com/inbucket/reroute/pkg/rest"
	"github.com/inbucket/reroute/pkg/server/web"
	"github.com/rs/zerolog/log"
)

// Services holds the configured services.
type Services struct {
	Config    *config.Root
	ExtHost   *extension.Host
	Directory directory.Directory // nil unless the policy consults the directory.
	Engine    *reroute.Engine
	LuaHost   *luahost.Host // nil when no script is configured.
	MsgHub    *msghub.Hub
}

// FullAssembly wires up a complete reroute environment, without starting any services.
func FullAssembly(conf *config.Root) (*Services, error) {
	startLog := log.With().Str("phase", "startup").Logger()

	variant, err := policy.ParseVariant(conf.Reroute.Policy)
	if err != nil {
		return nil, err
	}

	// The persisted settings store is optional; a broken store leaves debug logging off.
	settings, err := config.LoadSettings(conf.Reroute.SettingsFile)
	if err != nil {
		startLog.Warn().Str("module", "config").Str("path", conf.Reroute.SettingsFile).Err(err).
			Msg("Failed to read settings, debug logging disabled")
	}

	var dir directory.Directory
	if variant == policy.RerouteUnlessInDirectory {
		dir, err = directory.FromConfig(conf.Directory)
		if err != nil {
			return nil, err
		}
	}
	classifier, err := policy.NewClassifier(variant, dir)
	if err != nil {
		closeDirectory(dir)
		return nil, err
	}

	opts, err := reroute.OptionsFromConfig(conf.Reroute, settings)
	if err != nil {
		closeDirectory(dir)
		return nil, err
	}

	extHost := extension.NewHost()
	engine, err := reroute.New(opts, classifier, extHost)
	if err != nil {
		closeDirectory(dir)
		return nil, err
	}
	engine.Register(extHost)

	// Setup Lua extension host after the engine, so the script can observe its events.
	luaHost, err := luahost.New(conf.Lua, extHost)
	if err != nil {
		closeDirectory(dir)
		return nil, err
	}

	msgHub := msghub.New(conf.Web.MonitorHistory, extHost)

	startLog.Info().Str("module", "reroute").Str("policy", string(variant)).
		Bool("debug", settings.DebugEnabled).Msg("Reroute engine configured")

	return &Services{
		Config:    conf,
		ExtHost:   extHost,
		Directory: dir,
		Engine:    engine,
		LuaHost:   luaHost,
		MsgHub:    msgHub,
	}, nil
}

// Start the hub and HTTP server.  readyFunc is called once the HTTP listener is open.
func (s *Services) Start(ctx context.Context, shutdownChan chan bool, readyFunc func()) {
	go s.MsgHub.Start(ctx)

	rest.SetupRoutes(web.Subrouter("/api/"))
	web.Initialize(s.Config, shutdownChan, s.Engine, s.MsgHub)
	go web.Start(ctx, readyFunc)
}

// Close releases the directory.
func (s *Services) Close() {
	closeDirectory(s.Directory)
}

func closeDirectory(dir directory.Directory) {
	if c, ok := dir.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Str("module", "directory").Str("phase", "shutdown").Err(err).
				Msg("Failed to close directory")
		}
	}
}
