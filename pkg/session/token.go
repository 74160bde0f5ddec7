package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

// Session tokens carry the user's provider credential sealed under the
// server-side secret, so the server never stores the credential itself. The
// user id is a stable fingerprint of the credential, which keeps identity
// constant across logins even though each token is freshly sealed.

func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// Fingerprint derives the opaque user id from a provider credential.
func Fingerprint(credential string) string {
	sum := sha256.Sum256([]byte("figaro-user:" + credential))
	return hex.EncodeToString(sum[:16])
}

// Seal encrypts the credential under the secret and returns a hex token
// suitable for a cookie value.
func Seal(credential string, secret string) (string, error) {
	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		return "", errors.Wrap(err, "could not create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Wrap(err, "could not create gcm")
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "could not generate nonce")
	}
	sealed := gcm.Seal(nonce, nonce, []byte(credential), nil)
	return hex.EncodeToString(sealed), nil
}

// Open decrypts a token produced by Seal. Any tampering or a wrong secret
// fails authentication of the ciphertext.
func Open(token string, secret string) (string, error) {
	raw, err := hex.DecodeString(token)
	if err != nil {
		return "", errors.Wrap(err, "malformed token")
	}
	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		return "", errors.Wrap(err, "could not create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Wrap(err, "could not create gcm")
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("token too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	credential, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrap(err, "could not open token")
	}
	return string(credential), nil
}
