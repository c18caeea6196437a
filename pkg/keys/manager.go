package keys

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyFile represents the key file for a caller address
type KeyFile struct {
	Address    string    `json:"address"`
	PrivateKey string    `json:"privateKey"`
	Label      string    `json:"label,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewKeyFile builds a key file for key
func NewKeyFile(key *ecdsa.PrivateKey, label string) *KeyFile {
	return &KeyFile{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: EncodePrivateKey(key),
		Label:      label,
		CreatedAt:  time.Now().UTC(),
	}
}

// Key parses the stored private key and checks it matches the address
func (kf *KeyFile) Key() (*ecdsa.PrivateKey, error) {
	key, err := ParsePrivateKey(kf.PrivateKey)
	if err != nil {
		return nil, err
	}
	if addr := crypto.PubkeyToAddress(key.PublicKey); addr != common.HexToAddress(kf.Address) {
		return nil, fmt.Errorf("key file address %s does not match key %s", kf.Address, addr.Hex())
	}
	return key, nil
}

// GetKeyFilePath returns the path for an address's key file
func GetKeyFilePath(dir string, address common.Address) string {
	return filepath.Join(dir, fmt.Sprintf("ballot_%s.json", strings.ToLower(address.Hex()[2:])))
}

// SaveKeyFile saves a key file to disk
func SaveKeyFile(dir string, keyFile *KeyFile) (string, error) {
	if !common.IsHexAddress(keyFile.Address) {
		return "", fmt.Errorf("invalid key file address: %q", keyFile.Address)
	}
	path := GetKeyFilePath(dir, common.HexToAddress(keyFile.Address))

	data, err := json.MarshalIndent(keyFile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal key file: %w", err)
	}

	// Ensure directory exists
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write with restricted permissions (owner read/write only)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write key file: %w", err)
	}

	return path, nil
}

// LoadKeyFile loads a key file from disk
func LoadKeyFile(dir string, address common.Address) (*KeyFile, error) {
	path := GetKeyFilePath(dir, address)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("key file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	var keyFile KeyFile
	if err := json.Unmarshal(data, &keyFile); err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}

	return &keyFile, nil
}

// KeyFileExists checks if a key file exists for an address
func KeyFileExists(dir string, address common.Address) bool {
	_, err := os.Stat(GetKeyFilePath(dir, address))
	return err == nil
}
