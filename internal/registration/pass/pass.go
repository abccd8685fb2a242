// Package pass renders the registration pass shown at the door: an encrypted
// registration payload encoded as a QR code.
package pass

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/skip2/go-qrcode"

	"ms-membership/internal/models"
)

// Size is the PNG edge length in pixels.
const Size = 256

var ErrInvalidPass = errors.New("invalid registration pass")

// Claims is what the QR code carries.
type Claims struct {
	RegistrationID string                    `json:"rid"`
	EventID        string                    `json:"eid"`
	Phone          string                    `json:"phone"`
	Name           string                    `json:"name"`
	Role           models.Role               `json:"role"`
	Status         models.RegistrationStatus `json:"status"`
}

type Generator struct {
	aead cipher.AEAD
}

func NewGenerator(secret string) *Generator {
	key := sha256.Sum256([]byte(secret)) // AES-256 key
	block, err := aes.NewCipher(key[:])
	if err != nil {
		panic(fmt.Sprintf("pass: aes cipher: %v", err))
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		panic(fmt.Sprintf("pass: gcm: %v", err))
	}
	return &Generator{aead: aead}
}

func ClaimsFor(reg *models.Registration) Claims {
	return Claims{
		RegistrationID: reg.RegistrationID,
		EventID:        reg.EventID,
		Phone:          reg.Phone,
		Name:           reg.Name,
		Role:           reg.Role,
		Status:         reg.Status,
	}
}

// Token seals the claims into a URL-safe string: nonce followed by the
// authenticated ciphertext.
func (g *Generator) Token(c Claims) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, g.aead.NonceSize(), g.aead.NonceSize()+len(data)+g.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := g.aead.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decode reverses Token. Tokens sealed with another secret or altered in any
// byte fail with ErrInvalidPass.
func (g *Generator) Decode(token string) (Claims, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil || len(raw) < g.aead.NonceSize()+g.aead.Overhead() {
		return Claims{}, ErrInvalidPass
	}
	nonce, body := raw[:g.aead.NonceSize()], raw[g.aead.NonceSize():]
	plain, err := g.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return Claims{}, ErrInvalidPass
	}

	var c Claims
	if err := json.Unmarshal(plain, &c); err != nil || c.RegistrationID == "" {
		return Claims{}, ErrInvalidPass
	}
	return c, nil
}

// PNG renders the registration's pass. Only registered rows get one.
func (g *Generator) PNG(reg *models.Registration) ([]byte, error) {
	if reg.Status != models.StatusRegistered {
		return nil, fmt.Errorf("pass for %s registration: %w", reg.Status, ErrInvalidPass)
	}
	token, err := g.Token(ClaimsFor(reg))
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, Size)
}
