package valuation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fcf_valuation/pkg/core/analysis"
)

var (
	// ErrDatasetNotFound means the requested statement directory does not
	// exist.
	ErrDatasetNotFound = errors.New("dataset directory not found")
	// ErrOutsideDataRoot means the requested directory escapes the
	// configured data root.
	ErrOutsideDataRoot = errors.New("dataset directory outside data root")
)

// EngineFactory creates the engine for one company directory.
type EngineFactory func(dir string) *analysis.Engine

// Registry keeps one engine per company directory so every request for the
// same company reuses its snapshot.
type Registry struct {
	factory EngineFactory
	root    string

	mu      sync.Mutex
	engines map[string]*analysis.Engine
}

// NewRegistry creates a registry. A non-empty root confines directories to
// that tree; relative request directories are resolved against it.
func NewRegistry(factory EngineFactory, root string) *Registry {
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	return &Registry{factory: factory, root: root, engines: make(map[string]*analysis.Engine)}
}

// Engine returns the engine for dir, creating it on first use.
func (r *Registry) Engine(dir string) (*analysis.Engine, error) {
	path, err := r.resolve(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, dir)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[path]
	if !ok {
		e = r.factory(path)
		r.engines[path] = e
	}
	return e, nil
}

// Reload drops the cached snapshot of dir. It reports whether an engine
// existed.
func (r *Registry) Reload(dir string) (bool, error) {
	path, err := r.resolve(dir)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	e, ok := r.engines[path]
	r.mu.Unlock()
	if ok {
		e.Calculator().Reload()
	}
	return ok, nil
}

// Len returns the number of registered engines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

func (r *Registry) resolve(dir string) (string, error) {
	if r.root != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(r.root, dir)
	}
	path, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid directory %q: %w", dir, err)
	}
	if r.root != "" && path != r.root && !strings.HasPrefix(path, r.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideDataRoot, dir)
	}
	return path, nil
}
