// Package middleware adapts session guards to net/http for server-rendered
// front-ends.
//
// Every request gets its own session store persisted in an HttpOnly cookie.
// The store is restored against the auth API before the guard decides.
//
//   - [Gate.RequireAuth] redirects anonymous requests to the login route.
//   - [Gate.RequireGuest] redirects signed-in requests to the dashboard.
//   - [Gate.LogoutHandler] clears the cookie and redirects to the landing route.
//
// Denied requests get 303 See Other. A denied request already on the
// redirect target gets 401 instead of a redirect loop.
package middleware
