package remote

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name passwords are stored under.
const KeyringService = "mcreport"

// ErrNoCredential is returned when no password is stored for a server.
var ErrNoCredential = errors.New("no stored rcon password")

// KeyringStore keeps RCON passwords in the OS keyring, one per server address.
type KeyringStore struct {
	Service string
}

// NewKeyringStore returns a store using KeyringService.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{Service: KeyringService}
}

// Get returns the password stored for address.
func (k *KeyringStore) Get(address string) (string, error) {
	pwd, err := keyring.Get(k.Service, address)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w for %s", ErrNoCredential, address)
		}
		return "", fmt.Errorf("failed to read password for %s from keyring: %w", address, err)
	}
	return pwd, nil
}

// Set stores password for address.
func (k *KeyringStore) Set(address, password string) error {
	if err := keyring.Set(k.Service, address, password); err != nil {
		return fmt.Errorf("failed to store password for %s in keyring: %w", address, err)
	}
	return nil
}

// Delete removes the password of address. Deleting a missing entry is not an error.
func (k *KeyringStore) Delete(address string) error {
	err := keyring.Delete(k.Service, address)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete password for %s from keyring: %w", address, err)
	}
	return nil
}
