// Package auth implements the authentication core: the JWT token codec,
// password hashing, roles, and the login/registration service.
//
// Tokens are stateless HS256 JWTs carrying the user's email as subject and a
// single role claim. There is no server-side session store and no revocation
// list; a token is valid until its expiry. The signing key is supplied as a
// Base64-encoded secret and validated once at startup.
package auth
