// Package keystore creates wallet keys and seals them for storage.
package keystore

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidSecret = errors.New("encryption secret must be 32 bytes hex encoded")
	ErrCorrupted     = errors.New("sealed key cannot be opened")
)

// Keystore seals private keys with XChaCha20-Poly1305. The user's address is
// bound as additional data, so a sealed key moved to another record does not
// open.
type Keystore struct {
	secret []byte
}

func New(secretHex string) (*Keystore, error) {
	secret, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(secretHex), "0x"))
	if err != nil || len(secret) != chacha20poly1305.KeySize {
		return nil, ErrInvalidSecret
	}
	return &Keystore{secret: secret}, nil
}

// Generate creates a new keypair and returns the address with the sealed key.
func (k *Keystore) Generate() (address string, sealed string, err error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("generate key: %w", err)
	}
	address = crypto.PubkeyToAddress(key.PublicKey).Hex()

	sealed, err = k.Seal(address, key)
	if err != nil {
		return "", "", err
	}
	return address, sealed, nil
}

func (k *Keystore) Seal(address string, key *ecdsa.PrivateKey) (string, error) {
	aead, err := chacha20poly1305.NewX(k.secret)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+crypto.DigestLength+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	out := aead.Seal(nonce, nonce, crypto.FromECDSA(key), additionalData(address))
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a sealed key and checks that it belongs to address.
func (k *Keystore) Open(address string, sealed string) (*ecdsa.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, ErrCorrupted
	}

	aead, err := chacha20poly1305.NewX(k.secret)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCorrupted
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, additionalData(address))
	if err != nil {
		return nil, ErrCorrupted
	}

	key, err := crypto.ToECDSA(plain)
	if err != nil {
		return nil, ErrCorrupted
	}
	if crypto.PubkeyToAddress(key.PublicKey) != common.HexToAddress(address) {
		return nil, ErrCorrupted
	}
	return key, nil
}

func additionalData(address string) []byte {
	return common.HexToAddress(address).Bytes()
}
