// Package hmc defines the domain model for driving an IBM Power Hardware
// Management Console: the closed set of lifecycle actions, their parameter
// constraint profiles, desired-state projection, the idempotency differ, and
// the console error taxonomy.
package hmc

import "fmt"

// Action is the closed set of lifecycle operations the engine can drive.
type Action string

const (
	ActionPowerOn         Action = "poweron"
	ActionPowerOff        Action = "poweroff"
	ActionModifySysConfig Action = "modify_syscfg"
	ActionModifyHwRes     Action = "modify_hwres"
	ActionEnablePCM       Action = "enable_pcm"
	ActionDisablePCM      Action = "disable_pcm"
	ActionCreateVios      Action = "create_vios"
	ActionInstallViaNim   Action = "install_nim"
	ActionInstallViaDisk  Action = "install_disk"
	ActionAcceptLicense   Action = "accept_license"
	ActionUpdateVios      Action = "update_vios"
	ActionUpgradeVios     Action = "upgrade_vios"
	ActionFacts           Action = "facts"
	ActionPcmFacts        Action = "pcm_facts"
	ActionViosFacts       Action = "vios_facts"
	ActionViosVersion     Action = "vios_version"
)

// String implements fmt.Stringer.
func (a Action) String() string { return string(a) }

// Mutating reports whether the action can issue a mutating console call.
func (a Action) Mutating() bool {
	switch a {
	case ActionFacts, ActionPcmFacts, ActionViosFacts, ActionViosVersion:
		return false
	}
	return true
}

// RepositoryType discriminates where a VIOS update or upgrade image lives.
type RepositoryType string

const (
	RepoNFS        RepositoryType = "nfs"
	RepoSFTP       RepositoryType = "sftp"
	RepoDisk       RepositoryType = "disk"
	RepoIBMWebsite RepositoryType = "ibmwebsite"
)

// ConstraintProfile describes the static parameter rules of one action.
// Mandatory and Unsupported never intersect. ExclusiveGroups lists groups of
// parameter names of which exactly one member must be provided.
type ConstraintProfile struct {
	Mandatory       []string
	Unsupported     []string
	ExclusiveGroups [][]string
}

// union accumulates another profile into a copy of p. Mandatory and
// unsupported lists concatenate without deduplication; validation is
// insensitive to duplicates.
func (p ConstraintProfile) union(q ConstraintProfile) ConstraintProfile {
	out := ConstraintProfile{
		Mandatory:       append(append([]string{}, p.Mandatory...), q.Mandatory...),
		Unsupported:     append(append([]string{}, p.Unsupported...), q.Unsupported...),
		ExclusiveGroups: append(append([][]string{}, p.ExclusiveGroups...), q.ExclusiveGroups...),
	}
	return out
}

// Connection and target parameters shared by every action.
var baseMandatory = []string{ParamHost, ParamAuth, ParamSystemName}

// systemConfigFields are the modify_syscfg attribute parameters.
var systemConfigFields = []string{ParamNewName, ParamPowerOffPolicy, ParamPowerOnLparStartPolicy}

// hardwareResourceFields are the modify_hwres attribute parameters.
var hardwareResourceFields = []string{ParamHugePages, ParamMemMirroringMode, ParamPendMemRegionSize}

// viosInstallFields are the parameters that only installation actions accept.
var viosInstallFields = []string{
	ParamNimIP, ParamNimGateway, ParamViosIP, ParamNimSubnetmask, ParamProfName,
	ParamLocationCode, ParamNimVlanID, ParamNimVlanPriority, ParamTimeout,
}

// staticProfiles holds the profiles of every non-composite action, built once
// at init and treated as immutable.
var staticProfiles = map[Action]ConstraintProfile{
	ActionPowerOn: {
		Mandatory:   baseMandatory,
		Unsupported: concat(systemConfigFields, hardwareResourceFields, []string{ParamMetrics}),
	},
	ActionPowerOff: {
		Mandatory:   baseMandatory,
		Unsupported: concat(systemConfigFields, hardwareResourceFields, []string{ParamMetrics}),
	},
	ActionFacts: {
		Mandatory:   baseMandatory,
		Unsupported: concat(systemConfigFields, hardwareResourceFields, []string{ParamMetrics}),
	},
	ActionPcmFacts: {
		Mandatory:   baseMandatory,
		Unsupported: concat(systemConfigFields, hardwareResourceFields, []string{ParamMetrics}),
	},
	ActionModifySysConfig: {
		Mandatory:   baseMandatory,
		Unsupported: concat(hardwareResourceFields, []string{ParamMetrics}),
	},
	ActionModifyHwRes: {
		Mandatory:   baseMandatory,
		Unsupported: concat(systemConfigFields, []string{ParamMetrics}),
	},
	ActionEnablePCM: {
		Mandatory:   concat(baseMandatory, []string{ParamMetrics}),
		Unsupported: concat(systemConfigFields, hardwareResourceFields),
	},
	ActionDisablePCM: {
		Mandatory:   concat(baseMandatory, []string{ParamMetrics}),
		Unsupported: concat(systemConfigFields, hardwareResourceFields),
	},
	ActionCreateVios: {
		Mandatory:   concat(baseMandatory, []string{ParamName}),
		Unsupported: concat(viosInstallFields, []string{ParamVirtualOpticalMedia, ParamFreePVs}),
	},
	ActionAcceptLicense: {
		Mandatory:   concat(baseMandatory, []string{ParamName}),
		Unsupported: concat(viosInstallFields, []string{ParamSettings, ParamVirtualOpticalMedia, ParamFreePVs}),
	},
	ActionViosFacts: {
		Mandatory:   concat(baseMandatory, []string{ParamName}),
		Unsupported: concat(viosInstallFields, []string{ParamSettings}),
	},
	ActionInstallViaNim: {
		Mandatory: concat(baseMandatory, []string{ParamNimIP, ParamViosIP, ParamNimSubnetmask, ParamNimGateway, ParamName}),
		Unsupported: []string{
			ParamSettings, ParamVirtualOpticalMedia, ParamFreePVs, ParamViosISO,
			ParamImageDir, ParamNetworkMacAddr, ParamProfName, ParamLabel,
		},
	},
	ActionInstallViaDisk: {
		Mandatory: []string{
			ParamHost, ParamAuth, ParamViosISO, ParamImageDir, ParamViosIP,
			ParamViosGateway, ParamViosSubnetmask, ParamSystemName, ParamViosName, ParamProfName,
		},
		Unsupported: []string{ParamNimIP, ParamName, ParamNimGateway, ParamNimSubnetmask},
	},
}

// updateBase is the profile shared by update and upgrade before the
// repository sub-profile is unioned in.
var updateBase = ConstraintProfile{
	Mandatory:       []string{ParamHost, ParamAuth, ParamRepository, ParamSystemName},
	ExclusiveGroups: [][]string{{ParamViosID, ParamViosName}},
}

// repositoryProfiles are the sub-profiles keyed by the repository
// discriminator for update/upgrade actions.
var repositoryProfiles = map[RepositoryType]ConstraintProfile{
	RepoSFTP: {
		Mandatory:       []string{ParamUserID, ParamHostName},
		Unsupported:     []string{ParamMountLoc, ParamOption},
		ExclusiveGroups: [][]string{{ParamSSHKeyFile, ParamPassword}},
	},
	RepoNFS: {
		Mandatory:   []string{ParamMountLoc, ParamHostName},
		Unsupported: []string{ParamUserID, ParamPassword, ParamSSHKeyFile},
	},
	RepoDisk: {
		Mandatory: []string{ParamImageName},
		Unsupported: []string{
			ParamFiles, ParamHostName, ParamUserID, ParamPassword, ParamSSHKeyFile,
			ParamMountLoc, ParamOption, ParamDirectory, ParamSave,
		},
	},
	RepoIBMWebsite: {
		Mandatory: []string{ParamImageName},
		Unsupported: []string{
			ParamFiles, ParamHostName, ParamUserID, ParamPassword, ParamSSHKeyFile,
			ParamMountLoc, ParamOption, ParamDirectory,
		},
	},
}

// ProfileFor returns the constraint profile of the given action. Composite
// actions (installation media, update/upgrade repositories) compose their
// profile from a base plus a sub-profile selected by a discriminator carried
// in params; an unresolvable discriminator is itself a constraint violation.
func ProfileFor(action Action, params ParameterSet) (ConstraintProfile, error) {
	if p, ok := staticProfiles[action]; ok {
		return p, nil
	}
	switch action {
	case ActionUpdateVios, ActionUpgradeVios:
		return updateProfile(action, params)
	case ActionViosVersion:
		return ConstraintProfile{
			Mandatory:       baseMandatory,
			ExclusiveGroups: [][]string{{ParamViosID, ParamViosName}},
			Unsupported: []string{
				ParamFiles, ParamHostName, ParamUserID, ParamPassword, ParamSSHKeyFile,
				ParamRepository, ParamRestart, ParamMountLoc, ParamOption, ParamDirectory,
				ParamSave, ParamDisks, ParamImageName,
			},
		}, nil
	}
	return ConstraintProfile{}, fmt.Errorf("no constraint profile for action %q", action)
}

func updateProfile(action Action, params ParameterSet) (ConstraintProfile, error) {
	repo := RepositoryType(params.String(ParamRepository))
	if repo == "" {
		// The base profile will report the missing repository parameter.
		return updateBase, nil
	}
	sub, ok := repositoryProfiles[repo]
	if !ok {
		return ConstraintProfile{}, &ConstraintError{
			Msg: fmt.Sprintf("unknown repository %q, valid values are nfs, sftp, disk, ibmwebsite", repo),
		}
	}
	p := updateBase.union(sub)
	switch action {
	case ActionUpdateVios:
		p = p.union(ConstraintProfile{Unsupported: []string{ParamDisks}})
	case ActionUpgradeVios:
		if repo == RepoIBMWebsite {
			return ConstraintProfile{}, &ConstraintError{Msg: "upgrade using 'ibmwebsite' is not supported"}
		}
		p = p.union(ConstraintProfile{Mandatory: []string{ParamDisks}, Unsupported: []string{ParamRestart}})
		if repo == RepoSFTP || repo == RepoNFS {
			p = p.union(ConstraintProfile{Mandatory: []string{ParamFiles}})
		}
	}
	return p, nil
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
