// Package encryption seals contact attributes with AES-256-GCM before they
// reach storage and opens them again on the read path.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/models"
)

const (
	KeySize    = 32
	KeyHexSize = KeySize * 2
)

var errShortCiphertext = errors.New("ciphertext is too short")

// ParseHexKey decodes a 64-character hex string into a 32-byte key.
func ParseHexKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s) != KeyHexSize {
		return nil, fmt.Errorf("encryption key must be exactly %d hex characters, got %d", KeyHexSize, len(s))
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	return key, nil
}

type Codec struct {
	aead cipher.AEAD
	rand io.Reader
}

func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Codec{aead: aead, rand: rand.Reader}, nil
}

// NewCodecFromHex is ParseHexKey followed by NewCodec.
func NewCodecFromHex(hexKey string) (*Codec, error) {
	key, err := ParseHexKey(hexKey)
	if err != nil {
		return nil, err
	}
	return NewCodec(key)
}

// Encrypt seals plaintext under a fresh random nonce and returns
// base64(nonce || ciphertext || tag).
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

func (c *Codec) Decrypt(blob string) (string, error) {
	payload, err := base64.RawStdEncoding.DecodeString(blob)
	if err != nil {
		return "", &apperrors.DecryptionError{Err: fmt.Errorf("decode: %w", err)}
	}
	nonceSize := c.aead.NonceSize()
	if len(payload) < nonceSize+c.aead.Overhead() {
		return "", &apperrors.DecryptionError{Err: errShortCiphertext}
	}
	plaintext, err := c.aead.Open(nil, payload[:nonceSize], payload[nonceSize:], nil)
	if err != nil {
		return "", &apperrors.DecryptionError{Err: err}
	}
	return string(plaintext), nil
}

// EncryptContact seals every attribute of f. Extra is JSON encoded first.
func (c *Codec) EncryptContact(f models.ContactFields) (models.EncryptedContact, error) {
	var out models.EncryptedContact
	extra := "{}"
	if len(f.Extra) > 0 {
		b, err := json.Marshal(f.Extra)
		if err != nil {
			return out, fmt.Errorf("encode extra fields: %w", err)
		}
		extra = string(b)
	}

	pairs := []struct {
		dst *string
		src string
	}{
		{&out.FirstName, f.FirstName},
		{&out.LastName, f.LastName},
		{&out.Email, f.Email},
		{&out.Company, f.Company},
		{&out.Title, f.Title},
		{&out.Phone, f.Phone},
		{&out.Location, f.Location},
		{&out.LinkedInURL, f.LinkedInURL},
		{&out.Extra, extra},
	}
	for _, p := range pairs {
		v, err := c.Encrypt(p.src)
		if err != nil {
			return models.EncryptedContact{}, err
		}
		*p.dst = v
	}
	return out, nil
}

// DecryptContact opens every column of ec. Any failure fails the whole
// contact; no partially decrypted value is returned.
func (c *Codec) DecryptContact(ec models.EncryptedContact) (models.Contact, error) {
	out := models.Contact{ID: ec.ID, CampaignID: ec.CampaignID, CreatedAt: ec.CreatedAt}
	var extra string
	pairs := []struct {
		dst *string
		src string
	}{
		{&out.FirstName, ec.FirstName},
		{&out.LastName, ec.LastName},
		{&out.Email, ec.Email},
		{&out.Company, ec.Company},
		{&out.Title, ec.Title},
		{&out.Phone, ec.Phone},
		{&out.Location, ec.Location},
		{&out.LinkedInURL, ec.LinkedInURL},
		{&extra, ec.Extra},
	}
	for _, p := range pairs {
		v, err := c.Decrypt(p.src)
		if err != nil {
			return models.Contact{}, err
		}
		*p.dst = v
	}
	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &out.Extra); err != nil {
			return models.Contact{}, &apperrors.DecryptionError{Err: fmt.Errorf("decode extra fields: %w", err)}
		}
	}
	return out, nil
}
