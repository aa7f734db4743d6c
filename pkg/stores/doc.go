// Package stores persists the invocation history: one row per lifecycle
// action run, recording what was targeted, whether anything changed, and how
// the run ended. The history is what an operator consults when a managed
// system is not in the state they expect.
package stores
