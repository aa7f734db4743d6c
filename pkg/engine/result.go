package engine

// Result is the terminal record of one invocation.
type Result struct {
	// Changed reports whether a mutating console call was issued and
	// converged.
	Changed bool `json:"changed"`

	// Info carries a short human-readable note on no-op and soft no-op
	// outcomes.
	Info string `json:"info,omitempty"`

	// Warning is set on soft-success outcomes, e.g. an install that booted
	// but never established management connectivity.
	Warning string `json:"warning,omitempty"`

	// Facts holds the structured payload of query actions.
	Facts any `json:"facts,omitempty"`
}
