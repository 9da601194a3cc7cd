// Package config resolves the process's launch configuration (spec
// §6's CLI surface), narrowed from the teacher's internal/browser/config.go
// multi-profile/extension-relay system down to what a single-page,
// single-browser server actually needs: whether to run headless,
// whether to disable the sandbox, an optional CDP URL to attach to
// instead of launching, an optional executable path override, and the
// fixed viewport size.
package config

// Config is the as-given, possibly-zero-valued configuration — the
// CLI flag values before any default is applied.
type Config struct {
	CDPURL         string
	ExecutablePath string
	Headless       bool
	NoSandbox      bool
	HealthPort     int
}

// ResolvedConfig is Config with every default filled in.
type ResolvedConfig struct {
	CDPURL         string
	ExecutablePath string
	Headless       bool
	NoSandbox      bool
	HealthPort     int
	ViewportWidth  int
	ViewportHeight int
}

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 960
)

// Resolve applies spec §6's defaults to a Config: headless false,
// no-sandbox false, 1280x960 viewport, health port disabled, no CDP
// URL override (meaning a local browser is launched).
func Resolve(cfg Config) *ResolvedConfig {
	return &ResolvedConfig{
		CDPURL:         cfg.CDPURL,
		ExecutablePath: cfg.ExecutablePath,
		Headless:       cfg.Headless,
		NoSandbox:      cfg.NoSandbox,
		HealthPort:     cfg.HealthPort,
		ViewportWidth:  defaultViewportWidth,
		ViewportHeight: defaultViewportHeight,
	}
}
