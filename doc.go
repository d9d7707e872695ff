// Package goAuthClient is the client-side session lifecycle for the document-chat
// front-end: it restores, establishes, refreshes and destroys a session against the
// remote auth API and tells route guards who is logged in.
//
// A [Store] is built through [Builder] and owns the persisted token exclusively.
// Store methods are safe to call from multiple goroutines.
//
// # Lifecycle
//
// A Store starts in the loading state. [Store.Restore] runs once per Store (later and
// concurrent calls share the first attempt) and always ends with loading released,
// whatever the outcome. Login, Register, RefreshUser and Logout then move the session
// between authenticated and unauthenticated. Subscribers are notified after each
// visible state change.
//
// # Architecture boundaries
//
// The Store is the boundary where remote failures stop: every API or storage error is
// logged, counted and converted to a [Result] or to the unauthenticated state. Guards
// and views never see Go errors from session operations.
//
// # What this package must NOT do
//
//   - Keep package-level session state (tests build isolated Stores).
//   - Write the persisted token from anywhere but Store methods.
//   - Navigate during Snapshot or Subscribe callbacks it delivers.
package goAuthClient
