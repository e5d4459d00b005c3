package signer

import "io"

// Verifier interface for checking release signatures
type Verifier interface {
	// VerifyDetached checks an armored detached signature over data
	VerifyDetached(data, signature io.Reader) error
}
