// Package rate provides the Redis-backed fixed-window counters the
// development auth server uses to throttle logins and reset requests.
//
// # Window semantics
//
// INCR plus a conditional EXPIRE on the first hit. Key prefixes:
//   - dl:  login failures per email
//   - dli: login failures per IP
//   - dr:  forgot-password requests per email
package rate
