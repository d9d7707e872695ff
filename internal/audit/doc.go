// Package audit carries authentication outcomes from the auth API to a sink
// off the request path.
//
// [Dispatcher] buffers [Event] values and delivers them from one goroutine.
// Sinks write JSON lines, structured log entries or a channel for tests.
// Which events to emit is decided by the caller.
package audit
