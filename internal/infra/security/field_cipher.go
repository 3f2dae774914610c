package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Sealed values look like "enc:<key id>:<base64(nonce||ciphertext)>". Values
// without the "enc:" marker predate encryption and are returned as stored.
const (
	sealedMarker = "enc:"
	DefaultKeyID = "v1"
)

var (
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrUnknownKey         = errors.New("sealed with an unknown key id")
)

// Keyring seals column values (subscriber MSISDNs) with AES-GCM under the
// primary key and opens values sealed under any key it holds, so keys can be
// rotated without rewriting old rows first.
type Keyring struct {
	primary string
	aeads   map[string]cipher.AEAD
}

// NewEncryptionService is a single-key keyring under DefaultKeyID.
func NewEncryptionService(key string) (*Keyring, error) {
	return NewKeyring(DefaultKeyID, map[string]string{DefaultKeyID: key})
}

// NewKeyring builds a keyring from id -> raw key (16, 24 or 32 bytes).
// primary must be one of the ids.
func NewKeyring(primary string, keys map[string]string) (*Keyring, error) {
	if _, ok := keys[primary]; !ok {
		return nil, fmt.Errorf("primary key %q not in keyring", primary)
	}
	kr := &Keyring{primary: primary, aeads: make(map[string]cipher.AEAD, len(keys))}
	for id, key := range keys {
		if id == "" || strings.Contains(id, ":") {
			return nil, fmt.Errorf("invalid key id %q", id)
		}
		aead, err := newAEAD([]byte(key))
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", id, err)
		}
		kr.aeads[id] = aead
	}
	return kr, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes; got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptField seals plaintext under the primary key. Empty stays empty.
func (k *Keyring) EncryptField(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead := k.aeads[k.primary]
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedMarker + k.primary + ":" + base64.StdEncoding.EncodeToString(sealed), nil
}

func (k *Keyring) DecryptField(stored string) (string, error) {
	rest, ok := strings.CutPrefix(stored, sealedMarker)
	if !ok {
		return stored, nil
	}
	id, b64, ok := strings.Cut(rest, ":")
	if !ok {
		return "", errors.New("malformed sealed value")
	}
	aead, ok := k.aeads[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, id)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	ns := aead.NonceSize()
	if len(data) < ns+aead.Overhead() {
		return "", ErrCiphertextTooShort
	}
	pt, err := aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(pt), nil
}
