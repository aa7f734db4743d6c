package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

const (
	// BootedState is the partition state that ends the first convergence
	// stage of install and update operations.
	BootedState = "Running"

	// RMCActive is the connectivity indicator value that makes a boot an
	// unqualified success.
	RMCActive = "active"

	// RefCodeClear is the reference code sentinel equivalent to "no code".
	RefCodeClear = "00"

	minDeadline     = 10 * time.Minute
	defaultDeadline = 60 * time.Minute
)

// rmcWarning is attached to soft-success boot outcomes.
const rmcWarning = "management connectivity (RMC) did not establish after the install; check the HMC firewall and security settings"

// Deadline reads the timeout parameter in minutes. Values below ten minutes
// are rejected before any remote call; an absent value means sixty minutes.
func Deadline(params hmc.ParameterSet) (time.Duration, error) {
	mins, ok := params.Int(hmc.ParamTimeout)
	if !ok {
		return defaultDeadline, nil
	}
	d := time.Duration(mins) * time.Minute
	if d < minDeadline {
		return 0, &hmc.ConstraintError{Msg: "timeout must be at least 10 mins"}
	}
	return d, nil
}

// Poller blocks an invocation until its target reaches a terminal condition
// or the deadline elapses. The poll interval is fixed; the deadline is the
// only early-exit path besides reaching a terminal state.
type Poller struct {
	console  Console
	clock    Clock
	interval time.Duration
	onPoll   func()
}

func (p *Poller) tick() {
	if p.onPoll != nil {
		p.onPoll()
	}
}

// WaitForSystemState polls the managed system's coarse state until it is in
// accept or the deadline elapses.
func (p *Poller) WaitForSystemState(ctx context.Context, system string, accept []string, deadline time.Duration) error {
	limit := p.clock.Now().Add(deadline)
	last := ""
	for {
		p.tick()
		state, err := p.console.SystemState(ctx, system)
		if err != nil {
			return err
		}
		last = state
		for _, want := range accept {
			if state == want {
				return nil
			}
		}
		if !p.clock.Now().Add(p.interval).Before(limit) {
			return &hmc.ConvergenceTimeoutError{Target: system, State: last, Deadline: deadline}
		}
		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return err
		}
	}
}

// BootOutcome is the verdict of a two-stage boot wait.
type BootOutcome struct {
	// Warning is non-empty on soft success: the partition booted but
	// management connectivity never established and the reference code was
	// clear.
	Warning string
}

// WaitForBoot waits for a partition to finish booting after an install,
// update or upgrade. Stage one polls the partition state until it reports
// fully booted. Stage two reads the management-connectivity indicator and
// the hardware reference code: active connectivity is success, inactive
// connectivity with a clear reference code is soft success with a warning,
// and any other reference code is fatal.
func (p *Poller) WaitForBoot(ctx context.Context, system, partition string, deadline time.Duration) (*BootOutcome, error) {
	limit := p.clock.Now().Add(deadline)
	last := ""
	for {
		p.tick()
		status, err := p.partitionStatus(ctx, system, partition)
		if err != nil {
			return nil, err
		}
		if status != nil {
			last = status.state
			if status.state == BootedState {
				break
			}
		}
		if !p.clock.Now().Add(p.interval).Before(limit) {
			return nil, &hmc.ConvergenceTimeoutError{Target: partition, State: last, Deadline: deadline}
		}
		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return nil, err
		}
	}

	status, err := p.partitionStatus(ctx, system, partition)
	if err != nil {
		return nil, err
	}
	if status != nil && status.rmcState == RMCActive {
		return &BootOutcome{}, nil
	}

	refcode, err := p.console.PartitionRefCode(ctx, system, partition)
	if err != nil {
		return nil, err
	}
	if refcode == "" || refcode == RefCodeClear {
		log.Warn().Str("partition", partition).Msg("partition booted without RMC connectivity")
		return &BootOutcome{Warning: rmcWarning}, nil
	}
	return nil, &hmc.ConvergenceTimeoutError{
		Target:   partition,
		State:    BootedState,
		RefCode:  refcode,
		Deadline: deadline,
	}
}

type partitionState struct {
	state    string
	rmcState string
}

func (p *Poller) partitionStatus(ctx context.Context, system, partition string) (*partitionState, error) {
	statuses, err := p.console.PartitionStatuses(ctx, system)
	if err != nil {
		return nil, err
	}
	for _, s := range statuses {
		if s.Name == partition {
			return &partitionState{state: s.State, rmcState: s.RMCState}, nil
		}
	}
	// The partition may not be listed yet right after creation.
	return nil, nil
}
