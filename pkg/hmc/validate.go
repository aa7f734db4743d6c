package hmc

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks a requested action's parameters against its constraint
// profile. It is purely local: no console session is opened and no remote
// call is made. The first violated rule class aborts with a single message;
// message phrasing is singular for one offending name, comma-joined plural
// otherwise.
func Validate(action Action, params ParameterSet) error {
	profile, err := ProfileFor(action, params)
	if err != nil {
		return err
	}
	return validateProfile(profile, params)
}

func validateProfile(profile ConstraintProfile, params ParameterSet) error {
	var missing []string
	for _, name := range profile.Mandatory {
		if !params.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 1 {
		return &ConstraintError{Msg: fmt.Sprintf("mandatory parameter '%s' is missing", missing[0])}
	}
	if len(missing) > 1 {
		return &ConstraintError{Msg: fmt.Sprintf("mandatory parameters '%s' are missing", strings.Join(missing, ","))}
	}

	var unsupported []string
	for _, name := range profile.Unsupported {
		if params.Has(name) {
			unsupported = append(unsupported, name)
		}
	}
	if len(unsupported) == 1 {
		return &ConstraintError{Msg: fmt.Sprintf("unsupported parameter: %s", unsupported[0])}
	}
	if len(unsupported) > 1 {
		return &ConstraintError{Msg: fmt.Sprintf("unsupported parameters: %s", strings.Join(unsupported, ", "))}
	}

	for _, group := range profile.ExclusiveGroups {
		provided := 0
		for _, name := range group {
			if params.Has(name) {
				provided++
			}
		}
		if provided == 0 {
			return &ConstraintError{Msg: fmt.Sprintf("one of '%s' is mandatory", strings.Join(group, "', '"))}
		}
		if provided > 1 {
			return &ConstraintError{Msg: fmt.Sprintf("parameters '%s' are mutually exclusive", strings.Join(group, "', '"))}
		}
	}
	return nil
}

// unsupportedViosSettings are partition attributes a VIOS create either
// forces itself or does not apply to a vioserver partition.
var unsupportedViosSettings = map[string]struct{}{
	"lpar_env": {}, "os400_restricted_io_mode": {}, "console_slot": {},
	"alt_restart_device_slot": {}, "alt_console_slot": {}, "op_console_slot": {},
	"load_source_slot": {}, "hsl_pool_id": {}, "virtual_opti_pool_id": {},
	"vnic_adapters": {}, "electronic_err_reporting": {}, "suspend_capable": {},
	"simplified_remote_restart_capable": {}, "remote_restart_capable": {},
	"migration_disabled": {}, "virtual_serial_num": {}, "min_num_huge_pages": {},
	"desired_num_huge_pages": {}, "max_num_huge_pages": {}, "name": {},
	"lpar_name": {}, "rs_device_name": {}, "powervm_mgmt_capable": {},
	"primary_paging_vios_name": {}, "primary_paging_vios_id": {},
	"secondary_paging_vios_name": {}, "secondary_paging_vios_id": {},
	"primary_rs_vios_name": {}, "primary_rs_vios_id": {},
	"secondary_rs_vios_name": {}, "secondary_rs_vios_id": {},
}

// ValidateViosSettings rejects create-time partition settings the console
// does not accept for a VIOS partition.
func ValidateViosSettings(settings map[string]string) error {
	var invalid []string
	for key := range settings {
		if _, ok := unsupportedViosSettings[key]; ok {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return &ConstraintError{Msg: "invalid settings: " + strings.Join(invalid, ", ")}
}
