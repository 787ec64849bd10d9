package server

import (
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/cascadelabs/feerouter/router/pkg/crank"
	"github.com/cascadelabs/feerouter/router/pkg/distribution"
	"github.com/cascadelabs/feerouter/router/pkg/events"
	"github.com/cascadelabs/feerouter/router/pkg/policy"
	"github.com/cascadelabs/feerouter/router/pkg/position"
)

// VersionInfo contains build-time version information.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

type Config struct {
	Logger            *slog.Logger
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	VersionInfo       VersionInfo

	Engine       *crank.Engine
	Emitter      *events.Emitter
	Initializer  *position.Initializer
	Policies     *policy.Store
	Positions    *position.Store
	Distribution *distribution.Store

	// CrankRate limits crank calls per client IP. Zero means the
	// default of 60/minute with a burst of 10.
	CrankRate  rate.Limit
	CrankBurst int
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.Engine == nil {
		return errors.New("crank engine is required")
	}
	if cfg.Emitter == nil {
		return errors.New("emitter is required")
	}
	if cfg.Initializer == nil {
		return errors.New("position initializer is required")
	}
	if cfg.Policies == nil {
		return errors.New("policy store is required")
	}
	if cfg.Positions == nil {
		return errors.New("position store is required")
	}
	if cfg.Distribution == nil {
		return errors.New("distribution store is required")
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	if cfg.CrankRate == 0 {
		cfg.CrankRate = rate.Every(time.Minute / 60)
	}
	if cfg.CrankBurst == 0 {
		cfg.CrankBurst = 10
	}
	return nil
}
