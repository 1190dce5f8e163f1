package driven

// SecretSealer encrypts and decrypts secrets stored at rest.
// An empty plaintext seals to an empty string.
type SecretSealer interface {
	// Seal encrypts plaintext into an opaque printable string.
	Seal(plaintext string) (string, error)

	// Open decrypts a value produced by Seal.
	Open(sealed string) (string, error)
}
