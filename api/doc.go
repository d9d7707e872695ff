// Package api is the HTTP client for the remote document-chat auth API.
//
// # Endpoints
//
//   - POST /auth/login, POST /auth/register, POST /auth/dev-login return {token, user}.
//   - GET /auth/verify (bearer token) returns {user}.
//   - POST /auth/forgot-password and POST /auth/reset-password return 2xx or a 4xx body
//     carrying message or detail.
//
// # Architecture boundaries
//
// This package translates JSON over HTTP into typed values and a single [Error] type.
// It does NOT hold session state, persist tokens, or decide what a failure means for
// the session. Those decisions belong to the Store in the root package.
//
// # What this package must NOT do
//
//   - Log bearer tokens or passwords.
//   - Retry non-idempotent calls (login, register, reset).
//   - Import goAuthClient or tokenstore (no upward imports).
package api
