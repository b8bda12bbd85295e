package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	// ErrMissingDescriptor is returned when the descriptor file cannot be read.
	ErrMissingDescriptor = errors.New("missing descriptor file")
	// ErrInvalidDescriptor is returned when the descriptor file is not a valid ABI.
	ErrInvalidDescriptor = errors.New("invalid descriptor file")
)

// Loader reads contract descriptors from <basePath>/<kind>.json and caches parsed results.
type Loader struct {
	basePath string

	mu    sync.RWMutex
	cache map[string]abi.ABI
}

func NewLoader(basePath string) *Loader {
	return &Loader{
		basePath: basePath,
		cache:    make(map[string]abi.ABI),
	}
}

// Path returns the descriptor file path for a contract kind.
func (l *Loader) Path(kind string) string {
	return filepath.Join(l.basePath, kind+".json")
}

// Load returns the parsed descriptor of a contract kind.
func (l *Loader) Load(kind string) (abi.ABI, error) {
	l.mu.RLock()
	parsed, ok := l.cache[kind]
	l.mu.RUnlock()
	if ok {
		return parsed, nil
	}

	path := l.Path(kind)
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%w: `%s`", ErrMissingDescriptor, path)
	}

	parsed, err = abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%w: `%s`: %v", ErrInvalidDescriptor, kind, err)
	}

	l.mu.Lock()
	l.cache[kind] = parsed
	l.mu.Unlock()

	return parsed, nil
}
