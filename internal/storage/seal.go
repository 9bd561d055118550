package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
)

// Sealed wraps a backend so that every value is encrypted with AES-GCM
// before it reaches the medium. Keys stay in the clear.
func Sealed(inner Backend, keyString string) (Backend, error) {
	key, err := parseKey(keyString)
	if err != nil {
		return nil, err
	}
	if _, err := newGCM(key); err != nil {
		return nil, err
	}
	return &sealedBackend{inner: inner, key: key}, nil
}

type sealedBackend struct {
	inner Backend
	key   []byte
}

func (s *sealedBackend) Namespace(ns string) KV {
	return &sealedKV{inner: s.inner.Namespace(ns), key: s.key}
}

func (s *sealedBackend) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}

type sealedKV struct {
	inner KV
	key   []byte
}

func (kv *sealedKV) Get(ctx context.Context, key string, v any) (bool, error) {
	var sealed string
	ok, err := kv.inner.Get(ctx, key, &sealed)
	if err != nil || !ok {
		return false, err
	}

	plain, err := decrypt(sealed, kv.key)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return false, err
	}
	return true, nil
}

func (kv *sealedKV) Set(ctx context.Context, key string, v any) error {
	plain, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sealed, err := encrypt(plain, kv.key)
	if err != nil {
		return err
	}
	return kv.inner.Set(ctx, key, sealed)
}

func (kv *sealedKV) Remove(ctx context.Context, key string) error {
	return kv.inner.Remove(ctx, key)
}

func (kv *sealedKV) Clear(ctx context.Context) error {
	return kv.inner.Clear(ctx)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// encrypt seals plain text and returns nonce+ciphertext as base64
func encrypt(plain, key []byte) (string, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func decrypt(encoded string, key []byte) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return aesGCM.Open(nil, nonce, ciphertext, nil)
}

func parseKey(keyString string) ([]byte, error) {
	if len(keyString) == 64 {
		return hex.DecodeString(keyString)
	}

	if len(keyString) == 32 || len(keyString) == 24 || len(keyString) == 16 {
		return []byte(keyString), nil
	}
	return nil, errors.New("invalid ENCRYPTION_KEY length: must be 16, 24 or 32 bytes, or 64 hex chars")
}
