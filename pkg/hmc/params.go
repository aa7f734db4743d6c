package hmc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Parameter names accepted across actions. The names are the flat caller
// surface; attribute parameters carry the same names the console uses so the
// desired-state projection can pass them through unchanged.
const (
	ParamHost       = "hmc_host"
	ParamAuth       = "hmc_auth"
	ParamSystemName = "system_name"
	ParamState      = "state"
	ParamAction     = "action"

	// Managed-system configuration.
	ParamNewName                = "new_name"
	ParamPowerOffPolicy         = "power_off_policy"
	ParamPowerOnLparStartPolicy = "power_on_lpar_start_policy"
	ParamHugePages              = "requested_num_sys_huge_pages"
	ParamMemMirroringMode       = "mem_mirroring_mode"
	ParamPendMemRegionSize      = "pend_mem_region_size"
	ParamMetrics                = "metrics"

	// VIOS creation and installation.
	ParamName                = "name"
	ParamSettings            = "settings"
	ParamNimIP               = "nim_ip"
	ParamNimGateway          = "nim_gateway"
	ParamNimSubnetmask       = "nim_subnetmask"
	ParamNimVlanID           = "nim_vlan_id"
	ParamNimVlanPriority     = "nim_vlan_priority"
	ParamViosIP              = "vios_ip"
	ParamViosGateway         = "vios_gateway"
	ParamViosSubnetmask      = "vios_subnetmask"
	ParamViosISO             = "vios_iso"
	ParamImageDir            = "image_dir"
	ParamNetworkMacAddr      = "network_macaddr"
	ParamProfName            = "prof_name"
	ParamLocationCode        = "location_code"
	ParamLabel               = "label"
	ParamTimeout             = "timeout"
	ParamVirtualOpticalMedia = "virtual_optical_media"
	ParamFreePVs             = "free_pvs"

	// VIOS update/upgrade.
	ParamRepository = "repository"
	ParamViosID     = "vios_id"
	ParamViosName   = "vios_name"
	ParamImageName  = "image_name"
	ParamFiles      = "files"
	ParamHostName   = "host_name"
	ParamUserID     = "user_id"
	ParamPassword   = "password"
	ParamSSHKeyFile = "ssh_key_file"
	ParamMountLoc   = "mount_loc"
	ParamOption     = "option"
	ParamDirectory  = "directory"
	ParamDisks      = "disks"
	ParamRestart    = "restart"
	ParamSave       = "save"
)

// ParameterSet is the raw caller input: parameter name to optional value.
// Absent and nil entries are equivalent.
type ParameterSet map[string]any

// Has reports whether the parameter carries a usable value. Nil values,
// empty strings and empty lists count as absent.
func (p ParameterSet) Has(name string) bool {
	v, ok := p[name]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []string:
		return len(t) > 0
	case map[string]string:
		return len(t) > 0
	}
	return true
}

// String returns the parameter as a string, or "" when absent or not a
// string value.
func (p ParameterSet) String(name string) string {
	if s, ok := p[name].(string); ok {
		return s
	}
	return ""
}

// StringOr returns the parameter as a string, or def when absent.
func (p ParameterSet) StringOr(name, def string) string {
	if s := p.String(name); s != "" {
		return s
	}
	return def
}

// Int returns the parameter as an int with a found flag.
func (p ParameterSet) Int(name string) (int, bool) {
	switch t := p[name].(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	}
	return 0, false
}

// Bool returns the parameter as a bool; absent means false.
func (p ParameterSet) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

// List returns the parameter as a string list.
func (p ParameterSet) List(name string) []string {
	l, _ := p[name].([]string)
	return l
}

// controlFields are dropped when projecting a ParameterSet into desired
// attributes: they select the action and target rather than describe state.
var controlFields = map[string]struct{}{
	ParamAction:     {},
	ParamState:      {},
	ParamHost:       {},
	ParamAuth:       {},
	ParamSystemName: {},
}

// DesiredAttributes projects raw caller parameters into the target attribute
// mapping compared against live state: control fields and nil values are
// dropped and scalar values are rendered in canonical decimal form. Composite
// values (lists, nested maps) are not flattened here; FlattenList is applied
// at execution time when a command needs a flat rendering.
func DesiredAttributes(params ParameterSet) map[string]string {
	out := make(map[string]string, len(params))
	for key, value := range params {
		if _, control := controlFields[key]; control {
			continue
		}
		if value == nil {
			continue
		}
		switch t := value.(type) {
		case string:
			if t == "" {
				continue
			}
			out[key] = t
		case int:
			out[key] = strconv.Itoa(t)
		case int64:
			out[key] = strconv.FormatInt(t, 10)
		case float64:
			out[key] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(t)
		}
	}
	return out
}

// FlattenList joins a list parameter into the single comma-separated string
// form the console commands expect.
func FlattenList(values []string) string {
	return strings.Join(values, ",")
}

// NFSMountOption renders the NFS protocol version selector in the quoted
// form the console's mount invocation requires, or "" when unset.
func NFSMountOption(version string) string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%q", "ver="+version)
}

// mtmsPattern matches a machine type/model*serial identifier such as
// 9009-42A*1234567.
var mtmsPattern = regexp.MustCompile(`^[0-9a-zA-Z]{4}-[0-9a-zA-Z]{3}\*[0-9a-zA-Z]{7}$`)

// IsMTMS reports whether the identifier is an MTMS pattern rather than a
// managed system name.
func IsMTMS(identifier string) bool {
	return mtmsPattern.MatchString(identifier)
}
