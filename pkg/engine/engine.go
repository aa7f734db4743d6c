package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openlpar/hmcctl/pkg/hmc"
	"github.com/openlpar/hmcctl/pkg/rest"
	"github.com/openlpar/hmcctl/pkg/transports/hmccli"
)

// Console is the command-line surface of the management console the engine
// consumes. *hmccli.Console implements it; tests substitute fakes.
type Console interface {
	SystemNameFromMTMS(ctx context.Context, mtms string) (string, error)
	ListSystemIdentifiers(ctx context.Context) ([]string, error)
	SystemDetails(ctx context.Context, system string) (map[string]string, error)
	SystemState(ctx context.Context, system string) (string, error)
	PowerOn(ctx context.Context, system string) error
	PowerOff(ctx context.Context, system string) error
	ModifySystemConfig(ctx context.Context, system string, attrs map[string]string) error
	MemorySettings(ctx context.Context, system string) (map[string]string, error)
	ModifyMemorySettings(ctx context.Context, system string, attrs map[string]string) error
	PartitionConfig(ctx context.Context, system, partition, profile string) (map[string]string, error)
	PartitionStatuses(ctx context.Context, system string) ([]hmccli.PartitionStatus, error)
	PartitionRefCode(ctx context.Context, system, partition string) (string, error)
	CreateVios(ctx context.Context, system, name string, settings map[string]string) error
	NetbootDevices(ctx context.Context, spec hmccli.NimInstallSpec) ([]hmccli.NetbootDevice, error)
	InstallViosFromNIM(ctx context.Context, spec hmccli.NimInstallSpec) error
	InstallViosFromImage(ctx context.Context, spec hmccli.DiskInstallSpec) error
	RunViosCommand(ctx context.Context, system, partition, viosCmd string) (string, error)
	ViosVersion(ctx context.Context, system, partition string) (string, error)
	UpdateVios(ctx context.Context, spec hmccli.UpdateSpec) error
}

// Rest is the REST/XML surface the engine consumes. *rest.Client implements
// it.
type Rest interface {
	LookupManagedSystem(ctx context.Context, name string) (string, *rest.SystemDocument, error)
	ManagedSystemQuick(ctx context.Context, uuid string) (map[string]any, error)
	ListViosQuick(ctx context.Context, systemUUID string) ([]map[string]any, error)
	FreePhysicalVolumes(ctx context.Context, viosUUID string) ([]rest.PhysicalVolume, error)
	GetVios(ctx context.Context, viosUUID string) (*rest.ViosDocument, error)
	GetPCMPreferences(ctx context.Context, systemUUID string) (*rest.PCMPreferences, error)
	UpdatePCMPreferences(ctx context.Context, systemUUID string, prefs *rest.PCMPreferences) error
}

// Metrics receives the engine's operational counters. All methods must
// tolerate concurrent use.
type Metrics interface {
	ObserveInvocation(action, status string, d time.Duration)
	CountMutation(action string)
	CountPoll(action string)
}

// Tracer starts a span around one invocation run. The returned finish
// function records the outcome and ends the span. *telemetry.Tracer
// implements it.
type Tracer interface {
	StartInvocation(ctx context.Context, runID, action, target string) (context.Context, func(changed bool, err error))
}

// InvocationRecord is one row of the invocation history.
type InvocationRecord struct {
	ID       string
	Action   string
	Target   string
	Changed  bool
	Status   string
	Detail   string
	Started  time.Time
	Duration time.Duration
}

// Recorder persists invocation records. Store implementations must never
// fail the invocation itself; recording errors are logged and dropped.
type Recorder interface {
	Record(ctx context.Context, rec InvocationRecord) error
}

// RepositoryChecker verifies that update images are reachable in a remote
// repository before the console is asked to fetch them.
type RepositoryChecker interface {
	CheckSFTP(ctx context.Context, spec hmccli.UpdateSpec) error
}

// Engine runs lifecycle actions. Zero-value optional fields (Metrics,
// History, RepoCheck) disable the corresponding concern.
type Engine struct {
	Console   Console
	Rest      Rest
	Clock     Clock
	Metrics   Metrics
	Tracer    Tracer
	History   Recorder
	RepoCheck RepositoryChecker

	// PollInterval is the fixed convergence poll interval. Zero means 30s.
	PollInterval time.Duration
}

const defaultPollInterval = 30 * time.Second

type opFunc func(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error)

var ops = map[hmc.Action]opFunc{
	hmc.ActionPowerOn:         runPowerOn,
	hmc.ActionPowerOff:        runPowerOff,
	hmc.ActionModifySysConfig: runModifySysConfig,
	hmc.ActionModifyHwRes:     runModifyHwRes,
	hmc.ActionEnablePCM:       runEnablePCM,
	hmc.ActionDisablePCM:      runDisablePCM,
	hmc.ActionCreateVios:      runCreateVios,
	hmc.ActionInstallViaNim:   runInstallViaNim,
	hmc.ActionInstallViaDisk:  runInstallViaDisk,
	hmc.ActionAcceptLicense:   runAcceptLicense,
	hmc.ActionUpdateVios:      runUpdateVios,
	hmc.ActionUpgradeVios:     runUpgradeVios,
	hmc.ActionFacts:           runFacts,
	hmc.ActionPcmFacts:        runPcmFacts,
	hmc.ActionViosFacts:       runViosFacts,
	hmc.ActionViosVersion:     runViosVersion,
}

// Run executes one action to its terminal result. The parameter set is
// validated before any remote call; the target system identifier is resolved
// once, with machine-type/model*serial identifiers translated to the managed
// system name.
func (e *Engine) Run(ctx context.Context, action hmc.Action, params hmc.ParameterSet) (*Result, error) {
	runID := uuid.NewString()
	started := e.clock().Now()
	logger := log.With().Str("run_id", runID).Str("action", action.String()).Logger()

	if err := hmc.Validate(action, params); err != nil {
		return nil, err
	}
	op, ok := ops[action]
	if !ok {
		return nil, &hmc.ConstraintError{Msg: "unknown action: " + action.String()}
	}

	system := params.String(hmc.ParamSystemName)
	if hmc.IsMTMS(system) {
		name, err := e.Console.SystemNameFromMTMS(ctx, system)
		if err != nil {
			e.finish(ctx, runID, action, system, started, nil, err)
			return nil, err
		}
		system = name
	}
	logger.Info().Str("system", system).Msg("invocation started")

	finishSpan := func(bool, error) {}
	if e.Tracer != nil {
		ctx, finishSpan = e.Tracer.StartInvocation(ctx, runID, action.String(), system)
	}

	res, err := op(ctx, e, system, params)
	finishSpan(res != nil && res.Changed, err)
	e.finish(ctx, runID, action, system, started, res, err)
	if err != nil {
		logger.Error().Err(err).Msg("invocation failed")
		return nil, err
	}
	logger.Info().Bool("changed", res.Changed).Msg("invocation finished")
	return res, nil
}

func (e *Engine) finish(ctx context.Context, runID string, action hmc.Action, target string, started time.Time, res *Result, err error) {
	dur := e.clock().Now().Sub(started)
	status := "success"
	detail := ""
	changed := false
	switch {
	case err != nil:
		status = "failure"
		detail = err.Error()
	case res != nil:
		changed = res.Changed
		if res.Warning != "" {
			status = "soft_success"
			detail = res.Warning
		} else if res.Info != "" {
			detail = res.Info
		}
	}
	if e.Metrics != nil {
		e.Metrics.ObserveInvocation(action.String(), status, dur)
	}
	if e.History != nil {
		rec := InvocationRecord{
			ID:       runID,
			Action:   action.String(),
			Target:   target,
			Changed:  changed,
			Status:   status,
			Detail:   detail,
			Started:  started,
			Duration: dur,
		}
		if rerr := e.History.Record(ctx, rec); rerr != nil {
			log.Warn().Err(rerr).Msg("failed to record invocation history")
		}
	}
}

func (e *Engine) clock() Clock {
	if e.Clock == nil {
		return RealClock()
	}
	return e.Clock
}

func (e *Engine) pollInterval() time.Duration {
	if e.PollInterval <= 0 {
		return defaultPollInterval
	}
	return e.PollInterval
}

func (e *Engine) poller(action hmc.Action) *Poller {
	return &Poller{
		console:  e.Console,
		clock:    e.clock(),
		interval: e.pollInterval(),
		onPoll: func() {
			if e.Metrics != nil {
				e.Metrics.CountPoll(action.String())
			}
		},
	}
}

func (e *Engine) countMutation(action hmc.Action) {
	if e.Metrics != nil {
		e.Metrics.CountMutation(action.String())
	}
}

// restUUID resolves a managed system name to its REST identifier.
func (e *Engine) restUUID(ctx context.Context, system string) (string, error) {
	uuid, _, err := e.Rest.LookupManagedSystem(ctx, system)
	return uuid, err
}
