package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/openlpar/hmcctl/pkg/hmc"
	"github.com/openlpar/hmcctl/pkg/rest"
)

func pcmParams(groups ...string) hmc.ParameterSet {
	p := baseParams()
	p[hmc.ParamMetrics] = groups
	return p
}

func prefsAllOff() *rest.PCMPreferences {
	return &rest.PCMPreferences{
		SystemName:              "p9-sys",
		AggregationEnabled:      "false",
		LongTermMonitorEnabled:  "false",
		ShortTermMonitorEnabled: "false",
		ComputeLTMEnabled:       "false",
		EnergyMonitorEnabled:    "false",
		EnergyMonitoringCapable: "true",
	}
}

func TestEnablePCM(t *testing.T) {
	r := &fakeRest{getPCM: func(string) (*rest.PCMPreferences, error) { return prefsAllOff(), nil }}
	e, _ := newTestEngine(&fakeConsole{}, r)

	res, err := e.Run(context.Background(), hmc.ActionEnablePCM, pcmParams("ltm", "stm"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Changed {
		t.Error("want changed=true")
	}
	if r.pcmWritten == nil || !r.pcmWritten.Enabled(MetricLTM) || !r.pcmWritten.Enabled(MetricSTM) {
		t.Errorf("written prefs = %+v", r.pcmWritten)
	}
}

func TestEnablePCMIdempotent(t *testing.T) {
	prefs := prefsAllOff()
	prefs.LongTermMonitorEnabled = "true"
	r := &fakeRest{getPCM: func(string) (*rest.PCMPreferences, error) { return prefs, nil }}
	e, _ := newTestEngine(&fakeConsole{}, r)

	res, err := e.Run(context.Background(), hmc.ActionEnablePCM, pcmParams("ltm"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Changed || r.pcmWriteCnt != 0 {
		t.Errorf("changed = %v, writes = %d, want no-op", res.Changed, r.pcmWriteCnt)
	}
}

func TestEnableAggregationPullsLTMAndEMUp(t *testing.T) {
	r := &fakeRest{getPCM: func(string) (*rest.PCMPreferences, error) { return prefsAllOff(), nil }}
	e, _ := newTestEngine(&fakeConsole{}, r)

	res, err := e.Run(context.Background(), hmc.ActionEnablePCM, pcmParams("am"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !r.pcmWritten.Enabled(MetricLTM) || !r.pcmWritten.Enabled(MetricEM) {
		t.Errorf("enabling AM must enable LTM and EM as well: %+v", r.pcmWritten)
	}
	if !strings.Contains(res.Warning, "long-term") || !strings.Contains(res.Warning, "energy") {
		t.Errorf("warning = %q, want notes about LTM and EM", res.Warning)
	}
}

func TestEnableAggregationOnEnergyIncapableSystem(t *testing.T) {
	prefs := prefsAllOff()
	prefs.EnergyMonitoringCapable = "false"
	r := &fakeRest{getPCM: func(string) (*rest.PCMPreferences, error) { return prefs, nil }}
	e, _ := newTestEngine(&fakeConsole{}, r)

	res, err := e.Run(context.Background(), hmc.ActionEnablePCM, pcmParams("am"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !r.pcmWritten.Enabled(MetricAM) || !r.pcmWritten.Enabled(MetricLTM) {
		t.Errorf("AM and LTM must still be enabled: %+v", r.pcmWritten)
	}
	if r.pcmWritten.Enabled(MetricEM) {
		t.Error("EM must not be enabled on an incapable system")
	}
	if !strings.Contains(res.Warning, "energy") {
		t.Errorf("warning = %q", res.Warning)
	}
}

func TestDisableLTMPullsAggregationDown(t *testing.T) {
	prefs := prefsAllOff()
	prefs.LongTermMonitorEnabled = "true"
	prefs.AggregationEnabled = "true"
	prefs.ComputeLTMEnabled = "true"
	r := &fakeRest{getPCM: func(string) (*rest.PCMPreferences, error) { return prefs, nil }}
	e, _ := newTestEngine(&fakeConsole{}, r)

	res, err := e.Run(context.Background(), hmc.ActionDisablePCM, pcmParams("ltm"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.pcmWritten.Enabled(MetricAM) {
		t.Errorf("AM must go down with LTM: %+v", r.pcmWritten)
	}
	if !r.pcmWritten.Enabled(MetricCLTM) {
		t.Errorf("CLTM is not coupled to LTM and must stay up: %+v", r.pcmWritten)
	}
	if !strings.Contains(res.Warning, "aggregation") {
		t.Errorf("warning = %q, want a coupling warning", res.Warning)
	}
}

func TestDisableEMPullsAggregationDown(t *testing.T) {
	prefs := prefsAllOff()
	prefs.LongTermMonitorEnabled = "true"
	prefs.EnergyMonitorEnabled = "true"
	prefs.AggregationEnabled = "true"
	r := &fakeRest{getPCM: func(string) (*rest.PCMPreferences, error) { return prefs, nil }}
	e, _ := newTestEngine(&fakeConsole{}, r)

	res, err := e.Run(context.Background(), hmc.ActionDisablePCM, pcmParams("em"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.pcmWritten.Enabled(MetricEM) || r.pcmWritten.Enabled(MetricAM) {
		t.Errorf("EM and AM must both go down: %+v", r.pcmWritten)
	}
	if r.pcmWritten.Enabled(MetricLTM) != true {
		t.Errorf("LTM must stay up: %+v", r.pcmWritten)
	}
	if !strings.Contains(res.Warning, "aggregation") {
		t.Errorf("warning = %q", res.Warning)
	}
}

func TestEnableEnergyMonitoringOnIncapableSystem(t *testing.T) {
	prefs := prefsAllOff()
	prefs.EnergyMonitoringCapable = "false"
	r := &fakeRest{getPCM: func(string) (*rest.PCMPreferences, error) { return prefs, nil }}
	e, _ := newTestEngine(&fakeConsole{}, r)

	res, err := e.Run(context.Background(), hmc.ActionEnablePCM, pcmParams("em"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Changed || r.pcmWriteCnt != 0 {
		t.Error("incapable system must not be written")
	}
	if !strings.Contains(res.Warning, "energy") {
		t.Errorf("warning = %q", res.Warning)
	}
}

func TestPCMRejectsUnknownGroup(t *testing.T) {
	e, _ := newTestEngine(&fakeConsole{}, &fakeRest{})
	_, err := e.Run(context.Background(), hmc.ActionEnablePCM, pcmParams("bogus"))
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("error = %v, want unknown group", err)
	}
}

func TestPcmFacts(t *testing.T) {
	prefs := prefsAllOff()
	prefs.LongTermMonitorEnabled = "true"
	r := &fakeRest{getPCM: func(string) (*rest.PCMPreferences, error) { return prefs, nil }}
	e, _ := newTestEngine(&fakeConsole{}, r)

	res, err := e.Run(context.Background(), hmc.ActionPcmFacts, baseParams())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	facts := res.Facts.(map[string]any)
	if facts["ltm"] != true || facts["am"] != false {
		t.Errorf("facts = %v", facts)
	}
}
