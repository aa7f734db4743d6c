package hmc

// currentRenames is the one-directional projection applied to live attributes
// before comparison. Live field names can differ from the desired-state
// names: the reported current name corresponds to the requested new name, the
// current memory-mirroring mode field carries a curr_ prefix, and the
// reported region size corresponds to the pending region size. The
// projection is never applied before issuing commands.
var currentRenames = map[string]string{
	"name":                    ParamNewName,
	"curr_mem_mirroring_mode": ParamMemMirroringMode,
	"mem_region_size":         ParamPendMemRegionSize,
}

// ProjectCurrent returns a copy of the live attributes with the renaming
// projection applied. Keys without a rename pass through unchanged; a renamed
// key replaces its source key.
func ProjectCurrent(current map[string]string) map[string]string {
	out := make(map[string]string, len(current))
	for key, value := range current {
		if renamed, ok := currentRenames[key]; ok {
			key = renamed
		}
		out[key] = value
	}
	return out
}

// IsNoop reports whether the desired attributes are already satisfied by the
// current ones: every desired key must be present in current with an exactly
// equal string value. Extra current keys never force a change; a desired key
// absent from current always does. Values are compared as the canonical
// strings they already are, with no numeric coercion.
func IsNoop(desired, current map[string]string) bool {
	for key, want := range desired {
		got, ok := current[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}
