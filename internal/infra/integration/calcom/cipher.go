package calcom

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCiphertext = errors.New("invalid encrypted key format")

// KeyCipher decrypts tenant Cal.com API keys stored in business_onboarding
// as "ivhex:cthex", AES-256-CBC with PKCS#7 padding.
type KeyCipher struct {
	key []byte
}

// NewKeyCipher takes CAL_COM_ENCRYPTION_KEY. A 64 character value is read as
// hex; anything else is hashed with SHA-256.
func NewKeyCipher(secret string) (*KeyCipher, error) {
	if secret == "" {
		return nil, errors.New("CAL_COM_ENCRYPTION_KEY is not set")
	}
	if len(secret) == 64 {
		key, err := hex.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("decoding hex encryption key: %w", err)
		}
		return &KeyCipher{key: key}, nil
	}
	sum := sha256.Sum256([]byte(secret))
	return &KeyCipher{key: sum[:]}, nil
}

func (k *KeyCipher) Decrypt(encrypted string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(encrypted, ":")
	if !ok || strings.Contains(ctHex, ":") {
		return "", ErrInvalidCiphertext
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrInvalidCiphertext
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(k.key)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)

	plain, err := unpad(out)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errors.New("bad padding, wrong encryption key?")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("bad padding, wrong encryption key?")
		}
	}
	return b[:len(b)-n], nil
}
