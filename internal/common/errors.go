package common

import "errors"

// Error taxonomy shared by the sync engine and the remote plugins.
// Callers should match these values with errors.Is.
var (
	// Invalid or incomplete provider configuration. Fatal for Init.
	ErrConfiguration = errors.New("configuration error")

	// Remote rejected the credentials. Repeats every pass until fixed.
	ErrAuthentication = errors.New("authentication failed")

	// Remote unreachable or transport failure.
	ErrNetwork = errors.New("network error")

	// Remote call exceeded its deadline.
	ErrTimeout = errors.New("remote call timed out")

	// Local and remote revisions diverged. Resolved internally.
	ErrConflict = errors.New("note conflict")

	// Ciphertext could not be decrypted or key derivation failed.
	ErrEncryption = errors.New("encryption error")

	// Malformed remote or local payload.
	ErrSerialization = errors.New("serialization error")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")
)
