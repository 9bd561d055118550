package storage

import (
	"encoding/hex"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	tests := []struct {
		name      string
		plainText string
		key       string
		wantErr   bool
	}{
		{
			name:      "Valid 32-byte key",
			plainText: `{"token":"ghp_x"}`,
			key:       "12345678901234567890123456789012",
		},
		{
			name:      "Valid 64-char hex key",
			plainText: `{"token":"ghp_x"}`,
			key:       hex.EncodeToString([]byte("12345678901234567890123456789012")),
		},
		{
			name:      "Invalid key length",
			plainText: "null",
			key:       "shortkey",
			wantErr:   true,
		},
		{
			name:      "Empty value",
			plainText: "",
			key:       "12345678901234567890123456789012",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := parseKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseKey() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			encrypted, err := encrypt([]byte(tt.plainText), key)
			if err != nil {
				t.Fatalf("encrypt() error = %v", err)
			}

			decrypted, err := decrypt(encrypted, key)
			if err != nil {
				t.Fatalf("decrypt() error = %v", err)
			}

			if string(decrypted) != tt.plainText {
				t.Errorf("decrypt() = %v, want %v", string(decrypted), tt.plainText)
			}
		})
	}
}

func TestDecryptErrors(t *testing.T) {
	key := []byte("12345678901234567890123456789012")

	t.Run("Invalid base64", func(t *testing.T) {
		if _, err := decrypt("invalid-base64", key); err == nil {
			t.Error("decrypt() expected error for invalid base64")
		}
	})

	t.Run("Short ciphertext", func(t *testing.T) {
		if _, err := decrypt("SHORT", key); err == nil {
			t.Error("decrypt() expected error for short ciphertext")
		}
	})
}
