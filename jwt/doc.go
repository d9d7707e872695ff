// Package jwt issues and inspects session tokens.
//
// The client side only ever inspects: [Expired] reads the exp claim without
// verifying the signature so a stale persisted token can be dropped without a
// network round-trip. Verification stays with the server, which is why
// [Manager] (signing and verifying) is used by the development backend only.
package jwt
