package sealer

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var ErrMalformed = errors.New("malformed sealed value")

// Sealer encrypts OAuth tokens before they reach storage.
type Sealer struct {
	aead   cipher.AEAD
	macKey []byte
}

func New(secret string) (*Sealer, error) {
	const op = "sealer.New"

	if secret == "" {
		return nil, fmt.Errorf("%s: empty secret", op)
	}

	encKey := sha256.Sum256([]byte("seal:" + secret))
	macKey := sha256.Sum256([]byte("digest:" + secret))

	aead, err := chacha20poly1305.NewX(encKey[:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Sealer{
		aead:   aead,
		macKey: macKey[:],
	}, nil
}

// * Seal шифрует значение, nonce хранится в начале результата
func (s *Sealer) Seal(plain string) (string, error) {
	const op = "sealer.Seal"

	if plain == "" {
		return "", nil
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plain), nil)

	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	const op = "sealer.Open"

	if sealed == "" {
		return "", nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	if len(raw) < s.aead.NonceSize() {
		return "", fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]

	plain, err := s.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(plain), nil
}

// * Digest возвращает детерминированный HMAC токена для поиска пользователя
func (s *Sealer) Digest(token string) string {
	h := hmac.New(sha256.New, s.macKey)
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}
