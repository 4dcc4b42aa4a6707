// Package common contains shared constants and sentinel errors used across
// AlephNote components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests to a remote note service.
const AccessTokenHeaderName = "access_token"

// NoteIDLength is the length of a note identifier (upper-case hex UUID
// without dashes).
const NoteIDLength = 32
