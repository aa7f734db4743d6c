package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/openlpar/hmcctl/pkg/hmc"
	"github.com/openlpar/hmcctl/pkg/transports/hmccli"
)

// DefaultProfile is the partition profile name used when the caller does not
// name one.
const DefaultProfile = "default_profile"

func runCreateVios(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	name := params.String(hmc.ParamName)
	settings := viosSettings(params)
	if err := hmc.ValidateViosSettings(settings); err != nil {
		return nil, err
	}

	// Existence pre-check. A lookup-failure code here means the partition
	// does not exist yet and the create should proceed.
	_, err := e.Console.PartitionConfig(ctx, system, name, "")
	if err == nil {
		return &Result{Changed: false, Info: "vios " + name + " already exists"}, nil
	}
	var nf *hmc.NotFoundError
	if !errors.As(err, &nf) && hmc.Classify(hmc.ActionCreateVios, err) != hmc.DispositionAlreadyApplied {
		return nil, hmc.WithAction(hmc.ActionCreateVios, err)
	}

	if _, ok := settings["profile_name"]; !ok {
		settings["profile_name"] = DefaultProfile
	}
	e.countMutation(hmc.ActionCreateVios)
	if err := e.Console.CreateVios(ctx, system, name, settings); err != nil {
		return nil, hmc.WithAction(hmc.ActionCreateVios, err)
	}
	return &Result{Changed: true}, nil
}

// viosSettings extracts the free-form settings mapping passed to a create.
func viosSettings(params hmc.ParameterSet) map[string]string {
	switch v := params[hmc.ParamSettings].(type) {
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out
	case map[string]any:
		return hmc.DesiredAttributes(hmc.ParameterSet(v))
	}
	return map[string]string{}
}

func runInstallViaNim(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	deadline, err := Deadline(params)
	if err != nil {
		return nil, err
	}
	name := params.String(hmc.ParamName)
	spec := hmccli.NimInstallSpec{
		System:       system,
		Partition:    name,
		Profile:      DefaultProfile,
		NimIP:        params.String(hmc.ParamNimIP),
		Gateway:      params.String(hmc.ParamNimGateway),
		ViosIP:       params.String(hmc.ParamViosIP),
		Subnetmask:   params.String(hmc.ParamNimSubnetmask),
		VlanID:       params.StringOr(hmc.ParamNimVlanID, "0"),
		VlanPriority: params.StringOr(hmc.ParamNimVlanPriority, "0"),
		LocationCode: params.String(hmc.ParamLocationCode),
	}
	if spec.LocationCode == "" {
		devices, err := e.Console.NetbootDevices(ctx, spec)
		if err != nil {
			return nil, hmc.WithAction(hmc.ActionInstallViaNim, err)
		}
		for _, d := range devices {
			if d.PingResult == "successful" {
				spec.LocationCode = d.LocationCode
				break
			}
		}
		if spec.LocationCode == "" {
			return nil, hmc.WithAction(hmc.ActionInstallViaNim,
				fmt.Errorf("no network adapter on %s could reach the NIM server %s", name, spec.NimIP))
		}
	}

	e.countMutation(hmc.ActionInstallViaNim)
	if err := e.Console.InstallViosFromNIM(ctx, spec); err != nil {
		return nil, hmc.WithAction(hmc.ActionInstallViaNim, err)
	}
	outcome, err := e.poller(hmc.ActionInstallViaNim).WaitForBoot(ctx, system, name, deadline)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionInstallViaNim, err)
	}
	return &Result{Changed: true, Warning: outcome.Warning}, nil
}

func runInstallViaDisk(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	deadline, err := Deadline(params)
	if err != nil {
		return nil, err
	}
	name := params.String(hmc.ParamViosName)
	spec := hmccli.DiskInstallSpec{
		System:     system,
		Partition:  name,
		Profile:    params.String(hmc.ParamProfName),
		ImageDir:   params.String(hmc.ParamImageDir),
		ViosISO:    params.String(hmc.ParamViosISO),
		ViosIP:     params.String(hmc.ParamViosIP),
		Gateway:    params.String(hmc.ParamViosGateway),
		Subnetmask: params.String(hmc.ParamViosSubnetmask),
		MACAddress: params.String(hmc.ParamNetworkMacAddr),
		Label:      params.String(hmc.ParamLabel),
	}
	if spec.MACAddress == "" {
		// Probe towards the console itself; the install image is served
		// from the console's disk.
		probe := hmccli.NimInstallSpec{
			System:     system,
			Partition:  name,
			Profile:    spec.Profile,
			NimIP:      params.String(hmc.ParamHost),
			Gateway:    spec.Gateway,
			ViosIP:     spec.ViosIP,
			Subnetmask: spec.Subnetmask,
		}
		devices, err := e.Console.NetbootDevices(ctx, probe)
		if err != nil {
			return nil, hmc.WithAction(hmc.ActionInstallViaDisk, err)
		}
		for _, d := range devices {
			if d.PingResult == "successful" {
				spec.MACAddress = d.MACAddress
				break
			}
		}
		if spec.MACAddress == "" {
			return nil, hmc.WithAction(hmc.ActionInstallViaDisk,
				fmt.Errorf("no network adapter on %s answered the netboot probe, MAC address not retrievable", name))
		}
	}
	e.countMutation(hmc.ActionInstallViaDisk)
	if err := e.Console.InstallViosFromImage(ctx, spec); err != nil {
		return nil, hmc.WithAction(hmc.ActionInstallViaDisk, err)
	}
	outcome, err := e.poller(hmc.ActionInstallViaDisk).WaitForBoot(ctx, system, name, deadline)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionInstallViaDisk, err)
	}
	return &Result{Changed: true, Warning: outcome.Warning}, nil
}

func runAcceptLicense(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	name := params.String(hmc.ParamName)
	status, err := findPartition(ctx, e, system, name, "")
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionAcceptLicense, err)
	}
	if status.RMCState != RMCActive {
		return nil, hmc.WithAction(hmc.ActionAcceptLicense,
			fmt.Errorf("vios %s has no active RMC connection, state %q", name, status.RMCState))
	}
	e.countMutation(hmc.ActionAcceptLicense)
	if _, err := e.Console.RunViosCommand(ctx, system, name, "license -accept"); err != nil {
		return nil, hmc.WithAction(hmc.ActionAcceptLicense, err)
	}
	return &Result{Changed: true}, nil
}

func runViosFacts(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	name := params.String(hmc.ParamName)
	systemUUID, err := e.restUUID(ctx, system)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionViosFacts, err)
	}
	list, err := e.Rest.ListViosQuick(ctx, systemUUID)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionViosFacts, err)
	}
	var entry map[string]any
	for _, v := range list {
		if s, _ := v["PartitionName"].(string); s == name {
			entry = v
			break
		}
	}
	if entry == nil {
		return nil, hmc.WithAction(hmc.ActionViosFacts, &hmc.NotFoundError{Kind: "vios", Name: name})
	}

	facts := map[string]any{"vios": entry}
	viosUUID, _ := entry["UUID"].(string)
	if params.Bool(hmc.ParamVirtualOpticalMedia) && viosUUID != "" {
		doc, err := e.Rest.GetVios(ctx, viosUUID)
		if err != nil {
			return nil, hmc.WithAction(hmc.ActionViosFacts, err)
		}
		facts["virtual_optical_media"] = doc.OpticalMedia
	}
	if params.Bool(hmc.ParamFreePVs) && viosUUID != "" {
		pvs, err := e.Rest.FreePhysicalVolumes(ctx, viosUUID)
		if err != nil {
			return nil, hmc.WithAction(hmc.ActionViosFacts, err)
		}
		facts["free_pvs"] = pvs
	}
	return &Result{Changed: false, Facts: facts}, nil
}

func runViosVersion(ctx context.Context, e *Engine, system string, params hmc.ParameterSet) (*Result, error) {
	status, err := findPartition(ctx, e, system, params.String(hmc.ParamViosName), params.String(hmc.ParamViosID))
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionViosVersion, err)
	}
	level, err := e.Console.ViosVersion(ctx, system, status.Name)
	if err != nil {
		return nil, hmc.WithAction(hmc.ActionViosVersion, err)
	}
	return &Result{Changed: false, Facts: map[string]any{"ioslevel": level}}, nil
}

// findPartition locates a partition by name or numeric identifier.
func findPartition(ctx context.Context, e *Engine, system, name, id string) (*hmccli.PartitionStatus, error) {
	statuses, err := e.Console.PartitionStatuses(ctx, system)
	if err != nil {
		return nil, err
	}
	for i := range statuses {
		s := &statuses[i]
		if (name != "" && s.Name == name) || (id != "" && s.ID == id) {
			return s, nil
		}
	}
	target := name
	if target == "" {
		target = id
	}
	return nil, &hmc.NotFoundError{Kind: "vios", Name: target}
}
