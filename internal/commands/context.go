package commands

import (
	"context"

	"github.com/port-experimental/membership-cli/internal/config"
)

type contextKey string

const globalFlagsKey contextKey = "globalFlags"

// GlobalFlags holds global CLI flags.
type GlobalFlags struct {
	ConfigFile  string
	Profile     string
	APIKey      string
	APIURL      string
	TokenMethod string
	SiteURL     string
	StateDir    string
	LogLevel    string
	LogFormat   string
	MetricsFile string
	NoColor     bool
	Quiet       bool
	Verbose     bool
}

// WithGlobalFlags adds global flags to the context.
func WithGlobalFlags(ctx context.Context, flags GlobalFlags) context.Context {
	return context.WithValue(ctx, globalFlagsKey, flags)
}

// GetGlobalFlags retrieves global flags from context.
func GetGlobalFlags(ctx context.Context) GlobalFlags {
	flags, ok := ctx.Value(globalFlagsKey).(GlobalFlags)
	if !ok {
		return GlobalFlags{}
	}
	return flags
}

func (f GlobalFlags) overrides() config.Overrides {
	return config.Overrides{
		Profile:     f.Profile,
		APIKey:      f.APIKey,
		APIURL:      f.APIURL,
		TokenMethod: f.TokenMethod,
		SiteURL:     f.SiteURL,
		StateDir:    f.StateDir,
		LogLevel:    f.LogLevel,
		LogFormat:   f.LogFormat,
	}
}
