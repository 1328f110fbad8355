package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"github.com/zalando/go-keyring"
)

const (
	// ServiceName is the keychain service identifier
	ServiceName = "jsbundle"
)

// Credentials are the S3 keys used by publish
type Credentials struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// KeychainStore stores credentials in the system keychain
type KeychainStore struct {
	serviceName string
}

// NewKeychainStore creates a new keychain store
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{
		serviceName: ServiceName,
	}
}

// IsAvailable checks if keychain is available on this system
func (k *KeychainStore) IsAvailable() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux":
		// Linux requires a secret service (like gnome-keyring)
		err := keyring.Set(k.serviceName, "__test__", "test")
		if err != nil {
			return false
		}
		_ = keyring.Delete(k.serviceName, "__test__")
		return true
	default:
		return false
	}
}

// Save stores credentials in keychain
func (k *KeychainStore) Save(account string, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := keyring.Set(k.serviceName, account, string(data)); err != nil {
		return fmt.Errorf("failed to save to keychain: %w", err)
	}

	return nil
}

// Load retrieves credentials from keychain. It returns nil, nil when the
// account has no entry.
func (k *KeychainStore) Load(account string) (*Credentials, error) {
	data, err := keyring.Get(k.serviceName, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load from keychain: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}

	return &creds, nil
}

// Delete removes credentials from keychain
func (k *KeychainStore) Delete(account string) error {
	err := keyring.Delete(k.serviceName, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keychain: %w", err)
	}
	return nil
}

// ResolveCredentials fills missing publish keys from the keychain when the
// keychain store is configured. Keys set in the file or environment win.
func (p *PublishConfig) ResolveCredentials(store *KeychainStore) error {
	if p.CredentialStore != "keychain" {
		return nil
	}
	if p.AccessKey != "" && p.SecretKey != "" {
		return nil
	}

	creds, err := store.Load(p.Account())
	if err != nil {
		return err
	}
	if creds == nil {
		return fmt.Errorf("no credentials in keychain for %s - run 'jsbundle publish login'", p.Account())
	}

	if p.AccessKey == "" {
		p.AccessKey = creds.AccessKey
	}
	if p.SecretKey == "" {
		p.SecretKey = creds.SecretKey
	}
	return nil
}
