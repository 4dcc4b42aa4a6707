// Package cryptox implements password-based authenticated encryption used
// for secrets stored in the settings document.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/ustczzh/AlephNote/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	envelopeVersion = 1
	saltSize        = 16
	nonceSize       = 12
)

// DeriveMasterKey stretches password with Argon2id into a 32-byte AES key.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	x := argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
	return x
}

// EncryptWithPassword seals plaintext with AES-256-GCM under a key derived
// from password and a fresh random salt.
//
// The returned envelope is laid out as
//
//	version(1) || salt(16) || nonce(12) || ciphertext+tag
//
// so it can be opened with nothing but the same password.
func EncryptWithPassword(plaintext, password []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(saltSize)

	key := DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(nonceSize)

	out := make([]byte, 0, 1+saltSize+nonceSize+len(plaintext)+aesgcm.Overhead())
	out = append(out, envelopeVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aesgcm.Seal(out, nonce, plaintext, nil)

	return out, nil
}

// DecryptWithPassword opens an envelope produced by EncryptWithPassword.
// Any malformed input or authentication failure is reported as
// common.ErrEncryption.
func DecryptWithPassword(envelope, password []byte) ([]byte, error) {
	if len(envelope) < 1+saltSize+nonceSize {
		return nil, fmt.Errorf("%w: envelope too short", common.ErrEncryption)
	}
	if envelope[0] != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported envelope version %d", common.ErrEncryption, envelope[0])
	}

	salt := envelope[1 : 1+saltSize]
	nonce := envelope[1+saltSize : 1+saltSize+nonceSize]
	ciphertext := envelope[1+saltSize+nonceSize:]

	key := DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}
	return aesgcm, nil
}
