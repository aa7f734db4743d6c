package engine

import (
	"context"

	"github.com/openlpar/hmcctl/pkg/hmc"
)

// Managed system coarse states as the console reports them.
const (
	StatePowerOff  = "Power Off"
	StateOperating = "Operating"
	StateStandby   = "Standby"
)

func runPowerOn(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	deadline, err := Deadline(params)
	if err != nil {
		return nil, err
	}
	state, err := e.Console.SystemState(ctx, system)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionPowerOn, err)
	}
	if state != StatePowerOff {
		return &Result{Changed: false, Info: "system is already powered on, state " + state}, nil
	}
	e.countMutation(hmc.ActionPowerOn)
	if err := e.Console.PowerOn(ctx, system); err != nil {
		return nil, hmc.WithAction(hmc.ActionPowerOn, err)
	}
	accept := []string{StateOperating, StateStandby}
	if err := e.poller(hmc.ActionPowerOn).WaitForSystemState(ctx, system, accept, deadline); err != nil {
		return nil, hmc.WithAction(hmc.ActionPowerOn, err)
	}
	return &Result{Changed: true}, nil
}

func runPowerOff(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	deadline, err := Deadline(params)
	if err != nil {
		return nil, err
	}
	state, err := e.Console.SystemState(ctx, system)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionPowerOff, err)
	}
	if state == StatePowerOff {
		return &Result{Changed: false, Info: "system is already powered off"}, nil
	}
	e.countMutation(hmc.ActionPowerOff)
	if err := e.Console.PowerOff(ctx, system); err != nil {
		return nil, hmc.WithAction(hmc.ActionPowerOff, err)
	}
	if err := e.poller(hmc.ActionPowerOff).WaitForSystemState(ctx, system, []string{StatePowerOff}, deadline); err != nil {
		return nil, hmc.WithAction(hmc.ActionPowerOff, err)
	}
	return &Result{Changed: true}, nil
}

func runModifySysConfig(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	desired := hmc.DesiredAttributes(params)
	if len(desired) == 0 {
		return nil, &hmc.ConstraintError{Msg: "at least one setting to change is required"}
	}
	current, err := e.Console.SystemDetails(ctx, system)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionModifySysConfig, err)
	}
	if hmc.IsNoop(desired, hmc.ProjectCurrent(current)) {
		return &Result{Changed: false, Info: "settings already match"}, nil
	}
	e.countMutation(hmc.ActionModifySysConfig)
	if err := e.Console.ModifySystemConfig(ctx, system, desired); err != nil {
		return nil, hmc.WithAction(hmc.ActionModifySysConfig, err)
	}
	return &Result{Changed: true}, nil
}

func runModifyHwRes(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	desired := hmc.DesiredAttributes(params)
	if len(desired) == 0 {
		return nil, &hmc.ConstraintError{Msg: "at least one setting to change is required"}
	}
	current, err := e.Console.MemorySettings(ctx, system)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionModifyHwRes, err)
	}
	if hmc.IsNoop(desired, hmc.ProjectCurrent(current)) {
		return &Result{Changed: false, Info: "settings already match"}, nil
	}
	e.countMutation(hmc.ActionModifyHwRes)
	if err := e.Console.ModifyMemorySettings(ctx, system, desired); err != nil {
		return nil, hmc.WithAction(hmc.ActionModifyHwRes, err)
	}
	return &Result{Changed: true}, nil
}

func runFacts(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	uuid, err := e.restUUID(ctx, system)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionFacts, err)
	}
	props, err := e.Rest.ManagedSystemQuick(ctx, uuid)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionFacts, err)
	}
	return &Result{Changed: false, Facts: props}, nil
}
