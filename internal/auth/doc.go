// Package auth holds the credential primitives: bcrypt password hashing and
// signed, time-bounded access tokens.
package auth
