// Package devserver is a development implementation of the document-chat
// auth API: login, register, verify, dev-login, forgot-password and
// reset-password over JSON.
//
// Accounts and reset tokens live in Redis, passwords are hashed with
// Argon2id and sessions are HS256 JWTs. It backs the CLI's devserver command,
// the example front-end and the session store's integration tests. It is not
// meant for production.
package devserver
