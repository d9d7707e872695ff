// Package internal holds helpers private to the development auth server:
// reset token generation and client address extraction.
//
// # Sub-packages
//
//   - rate: Redis-backed fixed-window throttles
//   - stores: Redis-backed accounts and reset tokens
package internal
