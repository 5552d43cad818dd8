package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
	"github.com/a3tai/mcp-sheet-actions/internal/storage"
)

// Registry resolves sheet ids to their storage references.
type Registry interface {
	Save(ctx context.Context, ref SheetReference) error
	FindByID(ctx context.Context, id uuid.UUID) (SheetReference, error)
	List(ctx context.Context) ([]SheetReference, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// sheetRecord is the on-disk form of a SheetReference.
type sheetRecord struct {
	ID           string `yaml:"id"`
	OriginalName string `yaml:"original_name"`
	Name         string `yaml:"name"`
	Path         string `yaml:"path"`
	CreatedAt    string `yaml:"created_at"`
}

type registryFile struct {
	Sheets []sheetRecord `yaml:"sheets"`
}

// FileRegistry keeps the registry in a YAML index file.
type FileRegistry struct {
	mu     sync.RWMutex
	path   string
	sheets map[uuid.UUID]SheetReference
}

// OpenFileRegistry loads the index at path, starting empty if it does not exist.
func OpenFileRegistry(path string) (*FileRegistry, error) {
	r := &FileRegistry{path: path, sheets: make(map[uuid.UUID]SheetReference)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet registry: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sheet registry %s: %w", path, err)
	}
	for _, rec := range file.Sheets {
		ref, err := rec.reference()
		if err != nil {
			return nil, fmt.Errorf("invalid sheet registry entry %q: %w", rec.ID, err)
		}
		r.sheets[ref.ID] = ref
	}
	return r, nil
}

func (rec sheetRecord) reference() (SheetReference, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return SheetReference{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return SheetReference{}, err
	}
	return SheetReference{
		ID:           id,
		OriginalName: rec.OriginalName,
		Name:         rec.Name,
		Path:         rec.Path,
		CreatedAt:    createdAt,
	}, nil
}

func recordOf(ref SheetReference) sheetRecord {
	return sheetRecord{
		ID:           ref.ID.String(),
		OriginalName: ref.OriginalName,
		Name:         ref.Name,
		Path:         ref.Path,
		CreatedAt:    ref.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Save stores or replaces ref.
func (r *FileRegistry) Save(ctx context.Context, ref SheetReference) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.sheets[ref.ID]
	r.sheets[ref.ID] = ref
	if err := r.persistLocked(); err != nil {
		if existed {
			r.sheets[ref.ID] = prev
		} else {
			delete(r.sheets, ref.ID)
		}
		return err
	}
	return nil
}

// FindByID returns the reference for id or a SheetNotFound error.
func (r *FileRegistry) FindByID(ctx context.Context, id uuid.UUID) (SheetReference, error) {
	if err := ctx.Err(); err != nil {
		return SheetReference{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.sheets[id]
	if !ok {
		return SheetReference{}, pdferrors.New(pdferrors.ErrorTypeSheetNotFound, id.String())
	}
	return ref, nil
}

// List returns all references, oldest first.
func (r *FileRegistry) List(ctx context.Context) ([]SheetReference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(), nil
}

// Delete removes id from the registry.
func (r *FileRegistry) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.sheets[id]
	if !ok {
		return pdferrors.New(pdferrors.ErrorTypeSheetNotFound, id.String())
	}
	delete(r.sheets, id)
	if err := r.persistLocked(); err != nil {
		r.sheets[id] = prev
		return err
	}
	return nil
}

func (r *FileRegistry) sortedLocked() []SheetReference {
	refs := make([]SheetReference, 0, len(r.sheets))
	for _, ref := range r.sheets {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].CreatedAt.Equal(refs[j].CreatedAt) {
			return refs[i].CreatedAt.Before(refs[j].CreatedAt)
		}
		return refs[i].ID.String() < refs[j].ID.String()
	})
	return refs
}

func (r *FileRegistry) persistLocked() error {
	file := registryFile{Sheets: []sheetRecord{}}
	for _, ref := range r.sortedLocked() {
		file.Sheets = append(file.Sheets, recordOf(ref))
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to encode sheet registry", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to create registry directory", err)
	}
	err = storage.WriteFileAtomic(r.path, 0o644, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeStorage, "failed to write sheet registry", err)
	}
	return nil
}
