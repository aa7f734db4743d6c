package engine

import (
	"context"
	"strings"

	"github.com/openlpar/hmcctl/pkg/hmc"
	"github.com/openlpar/hmcctl/pkg/rest"
)

// Performance metric groups the console exposes.
const (
	MetricLTM  = "ltm"
	MetricSTM  = "stm"
	MetricAM   = "am"
	MetricCLTM = "cltm"
	MetricEM   = "em"
)

func runEnablePCM(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	return runPCMToggle(ctx, e, system, params, hmc.ActionEnablePCM, true)
}

func runDisablePCM(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	return runPCMToggle(ctx, e, system, params, hmc.ActionDisablePCM, false)
}

func runPCMToggle(ctx context.Context, e *Engine, system string, params hmc.ParameterSet, action hmc.Action, enable bool) (*Result, error) {
	groups := params.List(hmc.ParamMetrics)
	if len(groups) == 0 {
		return nil, &hmc.ConstraintError{Msg: "at least one metric group is required"}
	}
	for _, g := range groups {
		switch strings.ToLower(g) {
		case MetricLTM, MetricSTM, MetricAM, MetricCLTM, MetricEM:
		default:
			return nil, &hmc.ConstraintError{Msg: "unknown metric group: " + g}
		}
	}

	uuid, err := e.restUUID(ctx, system)
	if err != nil {
		return nil, hmc.WithAction(action, err)
	}
	prefs, err := e.Rest.GetPCMPreferences(ctx, uuid)
	if err != nil {
		return nil, hmc.WithAction(action, err)
	}

	var warnings []string
	changed := false
	set := func(group string, on bool) {
		if prefs.Enabled(group) == on {
			return
		}
		changed = true
		value := "false"
		if on {
			value = "true"
		}
		switch group {
		case MetricLTM:
			prefs.LongTermMonitorEnabled = value
		case MetricSTM:
			prefs.ShortTermMonitorEnabled = value
		case MetricAM:
			prefs.AggregationEnabled = value
		case MetricCLTM:
			prefs.ComputeLTMEnabled = value
		case MetricEM:
			prefs.EnergyMonitorEnabled = value
		}
	}

	emIncapable := false
	warnEMIncapable := func() {
		if !emIncapable {
			warnings = append(warnings, "this system is not capable of energy monitoring")
			emIncapable = true
		}
	}

	for _, g := range groups {
		g = strings.ToLower(g)
		if g == MetricEM && enable && prefs.EnergyMonitoringCapable != "true" {
			warnEMIncapable()
			continue
		}
		set(g, enable)
	}

	// Aggregation is coupled to long-term and energy monitoring. Enabling AM
	// enables LTM and EM with it; disabling LTM or EM disables AM.
	if enable && requested(groups, MetricAM) {
		if !prefs.Enabled(MetricLTM) {
			set(MetricLTM, true)
			warnings = append(warnings, "enabling aggregation also enables long-term monitoring")
		}
		if !prefs.Enabled(MetricEM) {
			if prefs.EnergyMonitoringCapable != "true" {
				warnEMIncapable()
			} else {
				set(MetricEM, true)
				warnings = append(warnings, "enabling aggregation also enables energy monitoring")
			}
		}
	}
	if !enable && (requested(groups, MetricLTM) || requested(groups, MetricEM)) && prefs.Enabled(MetricAM) {
		set(MetricAM, false)
		warnings = append(warnings, "disabling LTM or EM also disables aggregation")
	}

	if !changed {
		return &Result{Changed: false, Info: "metric preferences already match", Warning: strings.Join(warnings, "; ")}, nil
	}
	e.countMutation(action)
	if err := e.Rest.UpdatePCMPreferences(ctx, uuid, prefs); err != nil {
		return nil, hmc.WithAction(action, err)
	}
	return &Result{Changed: true, Warning: strings.Join(warnings, "; ")}, nil
}

func requested(groups []string, want string) bool {
	for _, g := range groups {
		if strings.ToLower(g) == want {
			return true
		}
	}
	return false
}

func runPcmFacts(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	uuid, err := e.restUUID(ctx, system)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionPcmFacts, err)
	}
	prefs, err := e.Rest.GetPCMPreferences(ctx, uuid)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionPcmFacts, err)
	}
	return &Result{Changed: false, Facts: pcmFacts(prefs)}, nil
}

func pcmFacts(prefs *rest.PCMPreferences) map[string]any {
	return map[string]any{
		"system_name":               prefs.SystemName,
		"ltm":                       prefs.Enabled(MetricLTM),
		"stm":                       prefs.Enabled(MetricSTM),
		"am":                        prefs.Enabled(MetricAM),
		"cltm":                      prefs.Enabled(MetricCLTM),
		"em":                        prefs.Enabled(MetricEM),
		"energy_monitoring_capable": prefs.EnergyMonitoringCapable == "true",
	}
}
