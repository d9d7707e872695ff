// Package tokenstore persists the session token outside process memory.
//
// A [Store] has exactly one writer: the session Store in the root package.
// Implementations differ only in where the token lives:
//
//   - [FileStore]: a YAML file under the user's config directory (CLI profiles).
//   - [RedisStore]: one Redis key per profile (shared front-end workers).
//   - [CookieStore]: an HTTP cookie for server-rendered front-ends.
//   - [MemoryStore]: tests and ephemeral sessions.
//
// # What this package must NOT do
//
//   - Validate or interpret tokens.
//   - Call the auth API.
package tokenstore
