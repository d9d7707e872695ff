// Package guard gates views on session state.
//
// [Decide] is a pure function from a session snapshot to one of three
// states: Checking while restoration or an auth call is pending, Allowed, or
// Denied with a redirect target. A [Guard] subscribes to a session store,
// re-evaluates on every change and pushes the redirect on every denied
// evaluation.
//
// The auth guard admits authenticated users and sends everyone else to the
// login view. The guest guard is its inverse and sends authenticated users
// to the dashboard.
package guard
