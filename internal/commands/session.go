package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/port-experimental/membership-cli/internal/api"
	"github.com/port-experimental/membership-cli/internal/config"
	"github.com/port-experimental/membership-cli/internal/logutil"
	"github.com/port-experimental/membership-cli/internal/metrics"
	"github.com/port-experimental/membership-cli/internal/submission"
	"github.com/port-experimental/membership-cli/internal/tokenstore"
)

// session bundles everything a command needs to talk to the API.
type session struct {
	cfg         *config.Config
	profile     *config.ProfileConfig
	types       config.MembershipTypes
	logger      *slog.Logger
	recorder    *metrics.Recorder
	store       *tokenstore.FileStore
	tokens      *api.TokenManager
	client      *api.Client
	metricsFile string
}

// loadConfig applies the global flags to the configuration file.
func loadConfig(ctx context.Context) (*config.Config, *config.ConfigManager, error) {
	flags := GetGlobalFlags(ctx)
	configManager := config.NewConfigManager(flags.ConfigFile)

	cfg, err := configManager.LoadWithOverrides(flags.overrides())
	if err != nil {
		return nil, configManager, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, configManager, nil
}

// newSession loads configuration and wires the token manager and client.
// defaultLevel applies when neither config nor flags set a log level.
func newSession(ctx context.Context, defaultLevel string) (*session, error) {
	flags := GetGlobalFlags(ctx)

	cfg, _, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := cfg.GetProfile("")
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("profile '%s': %w", profile.Name, err)
	}

	types, err := profile.Types()
	if err != nil {
		return nil, fmt.Errorf("profile '%s': %w", profile.Name, err)
	}

	logCfg := cfg.Logging
	if logCfg.Level == "" {
		logCfg.Level = defaultLevel
		if flags.Verbose {
			logCfg.Level = "debug"
		}
	}
	logger, err := logutil.LoggerFromConfig(logCfg)
	if err != nil {
		return nil, err
	}
	logger = logger.With("profile", profile.Name)

	recorder := metrics.NewRecorder()
	store := tokenstore.NewFileStore(cfg.TokenStorePath(profile.Name))
	tokens := api.NewTokenManager(api.TokenManagerConfig{
		APIKey:   profile.APIKey,
		URL:      profile.TokenURL(),
		Method:   profile.Method(),
		Store:    store,
		Logger:   logger,
		Recorder: recorder,
	})
	client := api.NewClient(profile.APIURL, tokens, api.ClientOptions{
		Logger:   logger,
		Recorder: recorder,
	})

	return &session{
		cfg:         cfg,
		profile:     profile,
		types:       types,
		logger:      logger,
		recorder:    recorder,
		store:       store,
		tokens:      tokens,
		client:      client,
		metricsFile: flags.MetricsFile,
	}, nil
}

func (s *session) workflow() *submission.Workflow {
	return submission.NewWorkflow(s.client, submission.Options{
		Types:    s.types,
		Logger:   s.logger,
		Recorder: s.recorder,
	})
}

func (s *session) pages() submission.Pages {
	return submission.Pages{
		SiteURL:       s.profile.SiteURL,
		SuccessPageID: s.profile.SuccessPageID,
		ErrorPageID:   s.profile.ErrorPageID,
	}
}

// Close releases connections and writes the metrics textfile when requested.
func (s *session) Close() {
	s.client.Close()
	if s.metricsFile == "" {
		return
	}
	if err := s.recorder.WriteTextfile(s.metricsFile); err != nil {
		s.logger.Warn("failed to write metrics file", "path", s.metricsFile, "error", err)
	}
}
