// Package engine drives one lifecycle action against one managed system or
// VIOS partition through to a terminal result.
//
// Every invocation runs the same pipeline: validate the parameter set against
// the action's constraint profile, resolve the target, read current state,
// decide via the idempotency differ whether a mutating call is needed, issue
// at most one mutating console call, and block in the convergence poller
// until an acceptable terminal state or the deadline. Failures pass through
// the error classifier, which recognizes exactly two swallowable console
// signatures; everything else is fatal.
//
// An invocation is single-threaded and holds no lock over the remote
// resource. A concurrent external actor mutating the same target is not
// guarded against; the differ only absorbs convergent re-invocations.
package engine
