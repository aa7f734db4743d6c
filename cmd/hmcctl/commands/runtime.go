package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openlpar/hmcctl/pkg/config"
	"github.com/openlpar/hmcctl/pkg/engine"
	"github.com/openlpar/hmcctl/pkg/hmc"
	"github.com/openlpar/hmcctl/pkg/rest"
	"github.com/openlpar/hmcctl/pkg/stores"
	"github.com/openlpar/hmcctl/pkg/telemetry"
	"github.com/openlpar/hmcctl/pkg/transports/hmccli"
)

// loadConfig reads the config file and layers the persistent CLI flags over
// it. Flags win over file values.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		// Connection flags can stand in for a config file entirely.
		if configPath == "" && hmcHost != "" {
			cfg = config.Default()
		} else {
			return nil, err
		}
	}
	if hmcHost != "" {
		cfg.HMC.Host = hmcHost
	}
	if hmcUser != "" {
		cfg.HMC.User = hmcUser
	}
	if hmcPassword != "" {
		cfg.HMC.Password = hmcPassword
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// telemetryConfig maps the file configuration onto the telemetry defaults.
func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	if cfg.Logging.Level != "" {
		tc.Logging.Level = cfg.Logging.Level
	}
	if verbose {
		tc.Logging.Level = "debug"
	}
	if cfg.Logging.Format != "" {
		tc.Logging.Format = cfg.Logging.Format
	}
	if cfg.Logging.Output != "" {
		tc.Logging.Output = cfg.Logging.Output
	}
	tc.Metrics.Enabled = cfg.Metrics.Enabled
	if cfg.Metrics.ListenAddress != "" {
		tc.Metrics.ListenAddress = cfg.Metrics.ListenAddress
	}
	tc.Tracing.Enabled = cfg.Tracing.Enabled
	if cfg.Tracing.Exporter != "" {
		tc.Tracing.Exporter = cfg.Tracing.Exporter
	}
	tc.Tracing.Endpoint = cfg.Tracing.Endpoint
	if cfg.Tracing.SamplingRate > 0 {
		tc.Tracing.SamplingRate = cfg.Tracing.SamplingRate
	}
	return tc
}

// consoleConfig maps the file configuration onto the SSH transport config.
func consoleConfig(cfg *config.Config) *hmccli.Config {
	cc := hmccli.DefaultConfig(cfg.HMC.Host, cfg.HMC.User)
	if cfg.HMC.SSHPort != 0 {
		cc.Port = cfg.HMC.SSHPort
	}
	cc.Password = cfg.HMC.Password
	if cfg.HMC.PrivateKeyPath != "" {
		cc.AuthMethod = hmccli.AuthMethodKey
		cc.PrivateKeyPath = cfg.HMC.PrivateKeyPath
	}
	if cfg.HMC.KnownHostsPath != "" {
		cc.KnownHostsPath = cfg.HMC.KnownHostsPath
	}
	cc.StrictHostKeyChecking = cfg.HMC.StrictHostKeyChecking
	if cfg.HMC.ConnectionTimeout != 0 {
		cc.ConnectionTimeout = cfg.HMC.ConnectionTimeout
	}
	if cfg.HMC.CommandTimeout != 0 {
		cc.CommandTimeout = cfg.HMC.CommandTimeout
	}
	return cc
}

// openHistory opens, migrates and prunes the history store when enabled.
func openHistory(ctx context.Context, cfg *config.Config) (*stores.HistoryStore, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := stores.NewHistoryStore(stores.Config{Path: cfg.History.Path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	if cfg.History.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.History.RetentionDays)
		if n, err := store.Prune(ctx, cutoff); err != nil {
			log.Warn().Err(err).Msg("history prune failed")
		} else if n > 0 {
			log.Debug().Int64("pruned", n).Msg("history rows pruned")
		}
	}
	return store, nil
}

// waitingActions are the actions that poll for convergence and therefore
// accept a timeout parameter. The config file default only applies to these.
var waitingActions = map[hmc.Action]bool{
	hmc.ActionPowerOn:        true,
	hmc.ActionPowerOff:       true,
	hmc.ActionInstallViaNim:  true,
	hmc.ActionInstallViaDisk: true,
	hmc.ActionUpdateVios:     true,
	hmc.ActionUpgradeVios:    true,
}

// runAction executes one engine action with the shared runtime around it:
// config, telemetry, console session, optional REST session and history
// store. The result is printed as JSON on stdout.
func runAction(cmd *cobra.Command, action hmc.Action, params hmc.ParameterSet, needRest bool) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tel, err := telemetry.New(telemetryConfig(cfg))
	if err != nil {
		return err
	}
	log.Logger = tel.Logger.Zerolog()
	zerolog.SetGlobalLevel(tel.Logger.Zerolog().GetLevel())
	tel.ServeMetrics(ctx)
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	client, err := hmccli.NewClient(consoleConfig(cfg))
	if err != nil {
		return err
	}
	client.CommandTracer = tel.Tracer.StartConsoleCommand
	client.CommandCounter = tel.Metrics.CountConsoleCommand
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("console session close failed")
		}
	}()

	eng := &engine.Engine{
		Console:      hmccli.NewConsole(client),
		Metrics:      tel.Metrics,
		Tracer:       tel.Tracer,
		RepoCheck:    &engine.SFTPChecker{Timeout: cfg.HMC.ConnectionTimeout},
		PollInterval: cfg.Engine.PollInterval,
	}

	if needRest {
		restClient, err := rest.NewClient(ctx, rest.Config{
			Host:               cfg.HMC.Host,
			Port:               cfg.HMC.RESTPort,
			User:               cfg.HMC.User,
			Password:           cfg.HMC.Password,
			InsecureSkipVerify: cfg.HMC.InsecureSkipVerify,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := restClient.Logoff(); err != nil {
				log.Warn().Err(err).Msg("REST session logoff failed")
			}
		}()
		eng.Rest = restClient
	}

	store, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("history store close failed")
			}
		}()
		eng.History = store
	}

	params[hmc.ParamHost] = cfg.HMC.Host
	params[hmc.ParamAuth] = map[string]string{
		"username": cfg.HMC.User,
		"password": cfg.HMC.Password,
	}
	if !params.Has(hmc.ParamTimeout) && cfg.Engine.DefaultTimeoutMins > 0 && waitingActions[action] {
		params[hmc.ParamTimeout] = cfg.Engine.DefaultTimeoutMins
	}

	res, err := eng.Run(ctx, action, params)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

// setIfSet adds a string parameter only when the flag carried a value, so
// absent flags stay absent in the parameter set.
func setIfSet(params hmc.ParameterSet, name, value string) {
	if value != "" {
		params[name] = value
	}
}

// parseSettings turns repeated key=value flags into an attribute map.
func parseSettings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := splitPair(pair)
		if !ok {
			return nil, fmt.Errorf("invalid setting %q, expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func splitPair(pair string) (string, string, bool) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '=' {
			return pair[:i], pair[i+1:], i > 0
		}
	}
	return "", "", false
}
