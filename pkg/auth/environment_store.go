package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads a single session from INSTAAPI_* variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment session. A username set in
// INSTAAPI_USERNAME must match the one requested.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	sessionID := os.Getenv("INSTAAPI_SESSION_ID")
	if sessionID == "" {
		return nil, ErrCredentialsNotFound
	}

	envUser := os.Getenv("INSTAAPI_USERNAME")
	switch {
	case envUser != "" && username != "" && envUser != username:
		return nil, ErrCredentialsNotFound
	case envUser != "":
		username = envUser
	case username == "":
		username = "default"
	}

	return &Account{
		Username:     username,
		SessionID:    sessionID,
		CSRFToken:    os.Getenv("INSTAAPI_CSRF_TOKEN"),
		UserAgent:    os.Getenv("INSTAAPI_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
