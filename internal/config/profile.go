package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/netsonde/synthctl/pkg/errors"
)

// DefaultProfile is the profile consulted when none is selected.
const DefaultProfile = "default"

// ErrProfileNotFound is returned when the requested profile file does not
// exist.
var ErrProfileNotFound = stderrors.New("credential profile not found")

// Profile is a stored credential set. Either api-key or token carries the
// API token; api-key wins when both are present.
type Profile struct {
	Email  string `json:"email" validate:"required,email"`
	APIKey string `json:"api-key,omitempty"`
	Token  string `json:"token,omitempty"`
	URL    string `json:"url,omitempty"`
	Proxy  string `json:"proxy,omitempty"`
}

func (p *Profile) token() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	return p.Token
}

// Store reads and writes credential profiles as JSON files under the
// config home directory, ~/.netsonde by default. SYNTHCTL_HOME overrides
// the directory and SYNTHCTL_CFG_FILE pins the file itself regardless of
// the profile name.
type Store struct {
	home string
	mu   sync.RWMutex
}

// NewStore builds a store over the config home resolved from the
// environment.
func NewStore() (*Store, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return &Store{home: home}, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot locate home directory: %w", err)
	}
	return &Store{home: filepath.Join(userHome, ".netsonde")}, nil
}

// NewStoreAt builds a store over an explicit directory.
func NewStoreAt(dir string) *Store {
	return &Store{home: dir}
}

func (s *Store) path(profile string) string {
	if file := os.Getenv(EnvCfgFile); file != "" {
		return file
	}
	return filepath.Join(s.home, profile)
}

// Load reads and validates one profile. Returns ErrProfileNotFound when
// the file does not exist.
func (s *Store) Load(profile string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.path(profile)
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: '%s' (%s)", ErrProfileNotFound, profile, path)
		}
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.NewConfigError("malformed credential profile '%s': %v", profile, err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, errors.NewConfigError("invalid credential profile '%s': %v", profile, err)
	}
	if p.token() == "" {
		return nil, errors.NewConfigError("credential profile '%s' carries no API token", profile)
	}
	return &p, nil
}

// Save writes one profile with owner-only permissions, creating the config
// home as needed.
func (s *Store) Save(profile string, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.home, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(profile), data, 0600)
}

// Exists reports whether the profile file is present.
func (s *Store) Exists(profile string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path(profile))
	return err == nil
}
