// Package manifest stages per-object snapshots of one watch batch on disk.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"

	"sitewatcher/internal/ztperrors"
	"sitewatcher/pkg/logging"
)

const storeSubsystem = "ManifestStore"

// Bucket selects the staging sub-area of a Store.
type Bucket string

const (
	// BucketUpdate holds objects to be rendered and applied.
	BucketUpdate Bucket = "update"
	// BucketDelete holds objects whose dependents must be removed.
	BucketDelete Bucket = "delete"
)

func (b Bucket) valid() bool {
	return b == BucketUpdate || b == BucketDelete
}

// listChunk is how many directory entries List reads per syscall.
const listChunk = 64

// Store is the on-disk staging area of a single batch.
//
// Files are organized per bucket:
//   - {root}/update/{namespace}.{name}-*.yaml
//   - {root}/delete/{namespace}.{name}-*.yaml
//
// A Store must not be shared between batches. Release removes everything unless
// the store was created with keep set.
type Store struct {
	mu sync.Mutex

	root     string
	keep     bool
	released bool
	logger   logging.Logger
}

// NewStore creates a fresh staging area below parentDir (os.TempDir() when empty).
func NewStore(parentDir string, keep bool, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	root, err := os.MkdirTemp(parentDir, "sitewatcher-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	for _, b := range []Bucket{BucketDelete, BucketUpdate} {
		if err := os.Mkdir(filepath.Join(root, string(b)), 0o700); err != nil {
			_ = os.RemoveAll(root)
			return nil, fmt.Errorf("failed to create %s staging directory: %w", b, err)
		}
	}

	logger.Debug(storeSubsystem, "Created staging area %s", root)
	return &Store{root: root, keep: keep, logger: logger}, nil
}

// Root returns the staging root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory of bucket b.
func (s *Store) Dir(b Bucket) string {
	return filepath.Join(s.root, string(b))
}

// Stage serializes obj into a new file of bucket b and returns its path.
// Server-managed metadata is pruned from the written snapshot; obj itself is not modified.
func (s *Store) Stage(id Identity, obj *unstructured.Unstructured, b Bucket) (string, error) {
	if !b.valid() {
		return "", fmt.Errorf("unknown bucket %q", b)
	}
	if !id.Complete() {
		return "", ztperrors.Data("stage object", fmt.Errorf("object %q is missing namespace or name", id))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return "", errors.New("manifest store already released")
	}

	snapshot := obj.DeepCopy()
	PruneServerFields(snapshot)

	data, err := yaml.Marshal(snapshot.Object)
	if err != nil {
		return "", ztperrors.Data("stage object", fmt.Errorf("failed to serialize %s: %w", id, err))
	}

	f, err := os.CreateTemp(s.Dir(b), fmt.Sprintf("%s.%s-*.yaml", id.Namespace, id.Name))
	if err != nil {
		return "", fmt.Errorf("failed to create staged file for %s: %w", id, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write staged file for %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close staged file for %s: %w", id, err)
	}

	s.logger.Debug(storeSubsystem, "Staged %s into %s", id, f.Name())
	return f.Name(), nil
}

// Read loads a staged snapshot.
func (s *Store) Read(path string) (*unstructured.Unstructured, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged file %s: %w", path, err)
	}

	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, ztperrors.Data("read staged object", fmt.Errorf("%s: %w", path, err))
	}

	obj := &unstructured.Unstructured{}
	if err := obj.UnmarshalJSON(jsonData); err != nil {
		return nil, ztperrors.Data("read staged object", fmt.Errorf("%s: %w", path, err))
	}
	return obj, nil
}

// Remove unlinks a staged file.
func (s *Store) Remove(path string) error {
	if !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return fmt.Errorf("path %s is outside the staging area", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove staged file %s: %w", path, err)
	}
	s.logger.Debug(storeSubsystem, "Removed %s", path)
	return nil
}

// List yields the staged file paths of bucket b.
//
// Entries are read from disk as the sequence is consumed. The sequence can be
// ranged over once; later ranges yield nothing.
func (s *Store) List(b Bucket) iter.Seq[string] {
	dir := s.Dir(b)
	var once sync.Once

	return func(yield func(string) bool) {
		fresh := false
		once.Do(func() { fresh = true })
		if !fresh || !b.valid() {
			return
		}

		d, err := os.Open(dir)
		if err != nil {
			s.logger.Warn(storeSubsystem, "Cannot list %s: %v", dir, err)
			return
		}
		defer d.Close()

		for {
			entries, err := d.ReadDir(listChunk)
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				if !yield(filepath.Join(dir, entry.Name())) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					s.logger.Warn(storeSubsystem, "Listing %s stopped: %v", dir, err)
				}
				return
			}
		}
	}
}

// Release destroys the staging area unless the store keeps it for inspection.
// It is safe to call more than once.
func (s *Store) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil
	}
	s.released = true

	if s.keep {
		s.logger.Info(storeSubsystem, "Keeping staged manifests in %s", s.root)
		return nil
	}

	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("failed to remove staging area %s: %w", s.root, err)
	}
	s.logger.Debug(storeSubsystem, "Removed staging area %s", s.root)
	return nil
}
