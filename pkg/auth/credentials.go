package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"instaapi/pkg/config"
)

// Account is a persisted Instagram web session
type Account struct {
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
	CSRFToken string `json:"csrf_token"`
	UserAgent string `json:"user_agent,omitempty"`
	// Cookies holds every other cookie the session carried (ds_user_id, mid, ...)
	Cookies      map[string]string `json:"cookies,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving sessions
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(username string) (*Account, error)
	List() ([]*Account, error)
	Delete(username string) error
	Exists(username string) bool
}

// Manager tries its stores in order, falling through on failure
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a manager over the given stores, tried in order
func NewManager(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// NewManagerFromConfig builds the store chain selected by cfg.Store:
// keyring, file, env, none, or auto (keyring, then encrypted file, then env).
func NewManagerFromConfig(cfg config.SessionConfig) (*Manager, error) {
	switch cfg.Store {
	case "none":
		return NewManager(), nil
	case "env":
		return NewManager(NewEnvironmentStore()), nil
	case "keyring":
		ks, err := NewKeyringStore()
		if err != nil {
			return nil, err
		}
		return NewManager(ks), nil
	case "file":
		fs, err := NewEncryptedFileStore(cfg.File, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create encrypted store: %w", err)
		}
		return NewManager(fs), nil
	case "auto", "":
		var stores []CredentialStore
		if ks, err := NewKeyringStore(); err == nil {
			stores = append(stores, ks)
		}

		path := cfg.File
		if path == "" {
			dir, err := getConfigDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get config directory: %w", err)
			}
			path = filepath.Join(dir, "sessions.enc")
		}
		fs, err := NewEncryptedFileStore(path, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create encrypted store: %w", err)
		}
		stores = append(stores, fs, NewEnvironmentStore())
		return NewManager(stores...), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

// Store saves the account in the first store that accepts it
func (m *Manager) Store(account *Account) error {
	if account == nil || account.Username == "" {
		return errors.New("username is required")
	}
	if account.SessionID == "" {
		return errors.New("session ID is required")
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the account from the first store that has it
func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(username); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
}

// Exists reports whether any store holds a session for username
func (m *Manager) Exists(username string) bool {
	for _, store := range m.stores {
		if store.Exists(username) {
			return true
		}
	}
	return false
}

// List merges accounts from every store, keeping the newest per username
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)
	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := byName[account.Username]; !ok || account.LastModified.After(existing.LastModified) {
				byName[account.Username] = account
			}
		}
	}

	result := make([]*Account, 0, len(byName))
	for _, account := range byName {
		result = append(result, account)
	}
	return result, nil
}

// Delete removes the account from every store that has it
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	switch {
	case deleted:
		return nil
	case lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound):
		return fmt.Errorf("failed to delete session: %w", lastErr)
	default:
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, username)
	}
}

func getConfigDir() (string, error) {
	var dir string
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "instaapi")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "instaapi")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "instaapi")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "instaapi")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// SanitizeAccount returns a copy safe to log
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	return &Account{
		Username:     account.Username,
		SessionID:    maskString(account.SessionID),
		CSRFToken:    maskString(account.CSRFToken),
		UserAgent:    account.UserAgent,
		LastModified: account.LastModified,
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("session not found")
	ErrInvalidCredentials  = errors.New("invalid session")
	ErrStoreUnavailable    = errors.New("session store unavailable")
)
