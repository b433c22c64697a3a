package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/collabry/collabry-go/pkg/apperr"
)

// Store persists the session to a state file, the terminal analog of the
// browser's local storage. Clear is the forced-logout wipe the HTTP layer
// invokes through its OnUnauthorized hook.
type Store struct {
	mu   sync.Mutex
	path string
	cur  *Session
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath places the state file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "collabry", "session.json"), nil
}

// Load reads the persisted session. A missing file is not an error; it just
// means nobody is signed in.
func (st *Store) Load() (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.cur != nil {
		return st.cur, nil
	}
	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "reading session file", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperr.Wrap(apperr.CodeMalformedPayload, "corrupt session file", err)
	}
	st.cur = &s
	return &s, nil
}

func (st *Store) Save(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(st.path), 0o700); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "creating session dir", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "encoding session", err)
	}
	if err := os.WriteFile(st.path, data, 0o600); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "writing session file", err)
	}
	st.cur = s
	return nil
}

// Clear wipes the persisted session and the in-memory copy.
func (st *Store) Clear() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.cur = nil
	if err := os.Remove(st.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Wrap(apperr.CodeInternal, "removing session file", err)
	}
	return nil
}

// Current returns the cached session without touching disk.
func (st *Store) Current() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cur
}
