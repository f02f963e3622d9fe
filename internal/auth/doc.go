// Package auth hashes passwords and issues bearer tokens.
//
// Passwords are stored as bcrypt hashes. Tokens are JWTs whose subject is
// the user UUID, signed with HS256 from a shared secret or RS256 from a
// PEM-encoded RSA private key.
package auth
