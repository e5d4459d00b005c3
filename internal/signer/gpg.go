package signer

import (
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/sirupsen/logrus"
)

// GPGVerifier implements Verifier interface using an OpenPGP keyring
type GPGVerifier struct {
	keyring openpgp.EntityList
}

// NewGPGVerifier creates a new verifier from a public keyring file
func NewGPGVerifier(keyPath string) (*GPGVerifier, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("keyring path is empty")
	}

	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	defer keyFile.Close()

	// Try to parse as armored keyring first
	entityList, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		// Try as binary keyring
		if _, err := keyFile.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		entityList, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read keyring: %w", err)
		}
	}

	if len(entityList) == 0 {
		return nil, fmt.Errorf("no keys found in keyring")
	}

	return NewGPGVerifierFromEntities(entityList), nil
}

// NewGPGVerifierFromEntities creates a verifier trusting the given keys
func NewGPGVerifierFromEntities(entities openpgp.EntityList) *GPGVerifier {
	return &GPGVerifier{keyring: entities}
}

// VerifyDetached checks an armored detached signature (such as a release
// asset's .asc file) over data
func (v *GPGVerifier) VerifyDetached(data, signature io.Reader) error {
	signerEntity, err := openpgp.CheckArmoredDetachedSignature(v.keyring, data, signature, nil)
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}

	if identity := signerEntity.PrimaryIdentity(); identity != nil {
		logrus.Infof("Good signature from %s", identity.Name)
	}
	return nil
}
