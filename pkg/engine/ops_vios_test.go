package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openlpar/hmcctl/pkg/hmc"
	"github.com/openlpar/hmcctl/pkg/rest"
	"github.com/openlpar/hmcctl/pkg/transports/hmccli"
)

func TestCreateViosProceedsOnLookupFailureCode(t *testing.T) {
	var created map[string]string
	console := &fakeConsole{
		partConfig: func(string, string, string) (map[string]string, error) {
			return nil, &hmc.ConsoleError{Op: "lssyscfg", Code: hmc.CodePartitionNotFound, Output: "HSCL8012 The partition does not exist."}
		},
		createVios: func(_ string, name string, settings map[string]string) error {
			created = settings
			return nil
		},
	}
	e, _ := newTestEngine(console, &fakeRest{})

	params := baseParams()
	params[hmc.ParamName] = "vios1"
	params[hmc.ParamSettings] = map[string]any{"max_mem": 8192, "proc_mode": "shared"}

	res, err := e.Run(context.Background(), hmc.ActionCreateVios, params)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Changed {
		t.Error("want changed=true")
	}
	if created["max_mem"] != "8192" || created["proc_mode"] != "shared" {
		t.Errorf("settings = %v", created)
	}
	if created["profile_name"] != DefaultProfile {
		t.Errorf("profile_name = %q, want %q", created["profile_name"], DefaultProfile)
	}
}

func TestCreateViosExistingIsNoop(t *testing.T) {
	console := &fakeConsole{partConfig: func(string, string, string) (map[string]string, error) {
		return map[string]string{"name": "vios1"}, nil
	}}
	e, _ := newTestEngine(console, &fakeRest{})

	params := baseParams()
	params[hmc.ParamName] = "vios1"

	res, err := e.Run(context.Background(), hmc.ActionCreateVios, params)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Changed || console.mutatingCalls != 0 {
		t.Errorf("changed = %v, calls = %d, want no-op", res.Changed, console.mutatingCalls)
	}
}

func TestCreateViosOtherConsoleErrorIsFatal(t *testing.T) {
	console := &fakeConsole{partConfig: func(string, string, string) (map[string]string, error) {
		return nil, &hmc.ConsoleError{Op: "lssyscfg", Code: "HSCL1234", Output: "HSCL1234 boom"}
	}}
	e, _ := newTestEngine(console, &fakeRest{})

	params := baseParams()
	params[hmc.ParamName] = "vios1"

	_, err := e.Run(context.Background(), hmc.ActionCreateVios, params)
	if err == nil || !strings.Contains(err.Error(), "create_vios") {
		t.Fatalf("error = %v, want fatal with action name", err)
	}
}

func nimParams() hmc.ParameterSet {
	p := baseParams()
	p[hmc.ParamName] = "vios1"
	p[hmc.ParamNimIP] = "10.0.0.5"
	p[hmc.ParamNimGateway] = "10.0.0.1"
	p[hmc.ParamNimSubnetmask] = "255.255.255.0"
	p[hmc.ParamViosIP] = "10.0.0.20"
	return p
}

func TestInstallViaNimPicksReachableAdapter(t *testing.T) {
	var installed hmccli.NimInstallSpec
	console := bootingConsole(0, RMCActive, "")
	console.netbootProbe = func(hmccli.NimInstallSpec) ([]hmccli.NetbootDevice, error) {
		return []hmccli.NetbootDevice{
			{LocationCode: "U9009.42A.1234567-V1-C2-T1", MACAddress: "fe01c2aa3344", PingResult: "failed"},
			{LocationCode: "U9009.42A.1234567-V1-C3-T1", MACAddress: "fe01c2aa3355", PingResult: "successful"},
		}, nil
	}
	console.installNIM = func(spec hmccli.NimInstallSpec) error {
		installed = spec
		return nil
	}
	e, _ := newTestEngine(console, &fakeRest{})

	res, err := e.Run(context.Background(), hmc.ActionInstallViaNim, nimParams())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Changed {
		t.Error("want changed=true")
	}
	if installed.LocationCode != "U9009.42A.1234567-V1-C3-T1" {
		t.Errorf("location code = %q, want the adapter that pinged", installed.LocationCode)
	}
}

func TestInstallViaNimNoReachableAdapter(t *testing.T) {
	console := &fakeConsole{netbootProbe: func(hmccli.NimInstallSpec) ([]hmccli.NetbootDevice, error) {
		return []hmccli.NetbootDevice{{LocationCode: "loc", MACAddress: "mac", PingResult: "failed"}}, nil
	}}
	e, _ := newTestEngine(console, &fakeRest{})

	_, err := e.Run(context.Background(), hmc.ActionInstallViaNim, nimParams())
	if err == nil || !strings.Contains(err.Error(), "NIM server") {
		t.Fatalf("error = %v", err)
	}
	if console.mutatingCalls != 0 {
		t.Error("no install must be issued without a reachable adapter")
	}
}

func TestInstallViaNimRejectsShortTimeout(t *testing.T) {
	e, _ := newTestEngine(&fakeConsole{}, &fakeRest{})
	params := nimParams()
	params[hmc.ParamTimeout] = 5

	_, err := e.Run(context.Background(), hmc.ActionInstallViaNim, params)
	var ce *hmc.ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want ConstraintError", err)
	}
}

func diskParams() hmc.ParameterSet {
	p := baseParams()
	p[hmc.ParamViosName] = "vios1"
	p[hmc.ParamProfName] = "default_profile"
	p[hmc.ParamViosISO] = "vios31.iso"
	p[hmc.ParamImageDir] = "images"
	p[hmc.ParamViosIP] = "10.0.0.20"
	p[hmc.ParamViosGateway] = "10.0.0.1"
	p[hmc.ParamViosSubnetmask] = "255.255.255.0"
	return p
}

func TestInstallViaDiskSoftSuccessWarns(t *testing.T) {
	console := bootingConsole(1, "inactive", RefCodeClear)
	console.installImage = func(spec hmccli.DiskInstallSpec) error {
		if spec.ViosISO != "vios31.iso" || spec.ImageDir != "images" {
			t.Errorf("spec = %+v", spec)
		}
		return nil
	}
	e, _ := newTestEngine(console, &fakeRest{})

	params := diskParams()
	params[hmc.ParamNetworkMacAddr] = "fe01c2aa3344"

	res, err := e.Run(context.Background(), hmc.ActionInstallViaDisk, params)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Changed || res.Warning == "" {
		t.Errorf("changed = %v, warning = %q, want soft success", res.Changed, res.Warning)
	}
}

func TestInstallViaDiskProbesForMACAddress(t *testing.T) {
	var installed hmccli.DiskInstallSpec
	console := bootingConsole(0, RMCActive, "")
	console.netbootProbe = func(probe hmccli.NimInstallSpec) ([]hmccli.NetbootDevice, error) {
		if probe.NimIP != "hmc01" {
			t.Errorf("probe target = %q, want the console host", probe.NimIP)
		}
		return []hmccli.NetbootDevice{
			{LocationCode: "U9009.42A.1234567-V1-C2-T1", MACAddress: "fe01c2aa3344", PingResult: "failed"},
			{LocationCode: "U9009.42A.1234567-V1-C3-T1", MACAddress: "fe01c2aa3355", PingResult: "successful"},
		}, nil
	}
	console.installImage = func(spec hmccli.DiskInstallSpec) error {
		installed = spec
		return nil
	}
	e, _ := newTestEngine(console, &fakeRest{})

	res, err := e.Run(context.Background(), hmc.ActionInstallViaDisk, diskParams())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Changed {
		t.Error("want changed=true")
	}
	if installed.MACAddress != "fe01c2aa3355" {
		t.Errorf("mac = %q, want the adapter that pinged", installed.MACAddress)
	}
}

func TestInstallViaDiskNoReachableAdapter(t *testing.T) {
	console := &fakeConsole{netbootProbe: func(hmccli.NimInstallSpec) ([]hmccli.NetbootDevice, error) {
		return []hmccli.NetbootDevice{{LocationCode: "loc", MACAddress: "mac", PingResult: "failed"}}, nil
	}}
	e, _ := newTestEngine(console, &fakeRest{})

	_, err := e.Run(context.Background(), hmc.ActionInstallViaDisk, diskParams())
	if err == nil || !strings.Contains(err.Error(), "MAC address") {
		t.Fatalf("error = %v", err)
	}
	if console.mutatingCalls != 0 {
		t.Error("no install must be issued without a usable adapter")
	}
}

func TestInstallViaDiskExplicitMACSkipsProbe(t *testing.T) {
	console := bootingConsole(0, RMCActive, "")
	console.netbootProbe = func(hmccli.NimInstallSpec) ([]hmccli.NetbootDevice, error) {
		t.Error("an explicit MAC address must not be probed")
		return nil, nil
	}
	e, _ := newTestEngine(console, &fakeRest{})

	params := diskParams()
	params[hmc.ParamNetworkMacAddr] = "fe01c2aa3344"

	if _, err := e.Run(context.Background(), hmc.ActionInstallViaDisk, params); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestAcceptLicenseRequiresRMC(t *testing.T) {
	console := &fakeConsole{partStatuses: func(string) ([]hmccli.PartitionStatus, error) {
		return []hmccli.PartitionStatus{{Name: "vios1", State: BootedState, RMCState: "inactive"}}, nil
	}}
	e, _ := newTestEngine(console, &fakeRest{})

	params := baseParams()
	params[hmc.ParamName] = "vios1"

	_, err := e.Run(context.Background(), hmc.ActionAcceptLicense, params)
	if err == nil || !strings.Contains(err.Error(), "RMC") {
		t.Fatalf("error = %v", err)
	}
}

func TestAcceptLicenseRunsRestrictedShellCommand(t *testing.T) {
	var ranCmd string
	console := &fakeConsole{
		partStatuses: func(string) ([]hmccli.PartitionStatus, error) {
			return []hmccli.PartitionStatus{{Name: "vios1", State: BootedState, RMCState: RMCActive}}, nil
		},
		runViosCmd: func(_, _, viosCmd string) (string, error) {
			ranCmd = viosCmd
			return "", nil
		},
	}
	e, _ := newTestEngine(console, &fakeRest{})

	params := baseParams()
	params[hmc.ParamName] = "vios1"

	res, err := e.Run(context.Background(), hmc.ActionAcceptLicense, params)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Changed || ranCmd != "license -accept" {
		t.Errorf("changed = %v, cmd = %q", res.Changed, ranCmd)
	}
}

func TestViosFactsEnrichment(t *testing.T) {
	r := &fakeRest{
		viosQuick: func(string) ([]map[string]any, error) {
			return []map[string]any{
				{"PartitionName": "vios1", "UUID": "vios-uuid-1", "RMCState": "active"},
				{"PartitionName": "vios2", "UUID": "vios-uuid-2"},
			}, nil
		},
		freePVs: func(viosUUID string) ([]rest.PhysicalVolume, error) {
			if viosUUID != "vios-uuid-1" {
				t.Errorf("uuid = %q", viosUUID)
			}
			return []rest.PhysicalVolume{{VolumeName: "hdisk1", AvailableForUsage: "true"}}, nil
		},
		getVios: func(string) (*rest.ViosDocument, error) {
			return &rest.ViosDocument{OpticalMedia: []rest.VirtualOpticalMedia{{MediaName: "vios31.iso"}}}, nil
		},
	}
	e, _ := newTestEngine(&fakeConsole{}, r)

	params := baseParams()
	params[hmc.ParamName] = "vios1"
	params[hmc.ParamFreePVs] = true
	params[hmc.ParamVirtualOpticalMedia] = true

	res, err := e.Run(context.Background(), hmc.ActionViosFacts, params)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	facts := res.Facts.(map[string]any)
	pvs := facts["free_pvs"].([]rest.PhysicalVolume)
	if len(pvs) != 1 || pvs[0].VolumeName != "hdisk1" {
		t.Errorf("free_pvs = %v", pvs)
	}
	media := facts["virtual_optical_media"].([]rest.VirtualOpticalMedia)
	if len(media) != 1 || media[0].MediaName != "vios31.iso" {
		t.Errorf("media = %v", media)
	}
}

func TestViosFactsUnknownPartition(t *testing.T) {
	r := &fakeRest{viosQuick: func(string) ([]map[string]any, error) {
		return []map[string]any{{"PartitionName": "other"}}, nil
	}}
	e, _ := newTestEngine(&fakeConsole{}, r)

	params := baseParams()
	params[hmc.ParamName] = "vios1"

	_, err := e.Run(context.Background(), hmc.ActionViosFacts, params)
	var nf *hmc.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
}

func TestViosVersionByID(t *testing.T) {
	console := &fakeConsole{
		partStatuses: func(string) ([]hmccli.PartitionStatus, error) {
			return []hmccli.PartitionStatus{{Name: "vios1", State: BootedState, RMCState: RMCActive, ID: "2"}}, nil
		},
		viosVersion: func(_, partition string) (string, error) {
			if partition != "vios1" {
				t.Errorf("partition = %q, want resolved name", partition)
			}
			return "3.1.4.10", nil
		},
	}
	e, _ := newTestEngine(console, &fakeRest{})

	params := baseParams()
	params[hmc.ParamViosID] = "2"

	res, err := e.Run(context.Background(), hmc.ActionViosVersion, params)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	facts := res.Facts.(map[string]any)
	if facts["ioslevel"] != "3.1.4.10" {
		t.Errorf("facts = %v", facts)
	}
}

func TestCreateViosRejectsUnsupportedSettings(t *testing.T) {
	console := &fakeConsole{partConfig: func(string, string, string) (map[string]string, error) {
		t.Error("invalid settings must be rejected before any console call")
		return nil, nil
	}}
	e, _ := newTestEngine(console, &fakeRest{})

	params := baseParams()
	params[hmc.ParamName] = "vios1"
	params[hmc.ParamSettings] = map[string]string{
		"desired_mem": "4096",
		"lpar_env":    "aixlinux",
		"lpar_name":   "other",
	}

	_, err := e.Run(context.Background(), hmc.ActionCreateVios, params)
	var ce *hmc.ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want ConstraintError", err)
	}
	if !strings.Contains(ce.Msg, "lpar_env") || !strings.Contains(ce.Msg, "lpar_name") {
		t.Errorf("message = %q, want the offending settings listed", ce.Msg)
	}
	if console.mutatingCalls != 0 {
		t.Error("no create must be issued for invalid settings")
	}
}
