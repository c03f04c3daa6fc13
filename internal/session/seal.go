package session

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// deriveKey derives the sealing key from the machine secret using
// HKDF-SHA256, bound to the device id so a copied state file does not open
// on another installation.
func deriveKey(secret []byte, deviceID string) ([]byte, error) {
	h := hkdf.New(sha256.New, secret, []byte(deviceID), []byte("session-state"))
	out := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

// seal encrypts plaintext with ChaCha20-Poly1305; the nonce is prepended.
func seal(secret []byte, deviceID string, plaintext []byte) ([]byte, error) {
	key, err := deriveKey(secret, deviceID)
	if err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts a sealed blob produced by seal.
func open(secret []byte, deviceID string, sealed []byte) ([]byte, error) {
	key, err := deriveKey(secret, deviceID)
	if err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed state too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed state: %w", err)
	}
	return plaintext, nil
}
