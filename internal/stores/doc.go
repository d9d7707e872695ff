// Package stores holds the Redis-backed records of the development auth
// server: accounts and single-use password reset tokens.
//
// Reset records are versioned and binary-encoded with a TTL. Consume runs in
// a WATCH/MULTI transaction and retries on contention.
package stores
