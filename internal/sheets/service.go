package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-sheet-actions/internal/actions"
	"github.com/a3tai/mcp-sheet-actions/internal/pdf"
	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
)

// Storage holds sheet files addressed by logical path. Read returns a local
// file the engine may modify; the modification is only published by Write.
type Storage interface {
	Create(ctx context.Context, src io.Reader, logical string) error
	Read(ctx context.Context, logical string) (string, error)
	Write(ctx context.Context, localPath, logical string) error
	Discard(localPath string) error
	Delete(ctx context.Context, logical string) error
}

// Options configures a Service.
type Options struct {
	MaxFileSize int64
	CacheSize   int
	// HelperScript replaces the bundled helper library when set.
	HelperScript string
	Debug        bool
}

// AttachResult describes a calculation that was attached to a sheet.
type AttachResult struct {
	SheetID     uuid.UUID    `json:"sheet_id"`
	Kind        actions.Kind `json:"kind"`
	TargetField string       `json:"target_field"`
	Script      string       `json:"script"`
}

// Service handles sheet operations by orchestrating registry, storage and the PDF engine
type Service struct {
	registry    Registry
	storage     Storage
	engine      *pdf.Service
	previewer   *actions.Previewer
	helpers     string
	maxFileSize int64
	fields      *fieldCache
	locks       *keyedMutex
	debug       bool
	now         func() time.Time
	newID       func() uuid.UUID
}

// NewService creates a new sheet service
func NewService(registry Registry, storage Storage, opts Options) *Service {
	helpers := opts.HelperScript
	if helpers == "" {
		helpers = actions.HelperScript
	}
	return &Service{
		registry:    registry,
		storage:     storage,
		engine:      pdf.NewService(opts.Debug),
		previewer:   actions.NewPreviewer(helpers),
		helpers:     helpers,
		maxFileSize: opts.MaxFileSize,
		fields:      newFieldCache(opts.CacheSize),
		locks:       newKeyedMutex(),
		debug:       opts.Debug,
		now:         time.Now,
		newID:       uuid.New,
	}
}

// Import validates the PDF at srcPath and copies it into storage under a new id.
// Nothing is stored when validation fails.
func (s *Service) Import(ctx context.Context, srcPath, originalName string) (SheetReference, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SheetReference{}, pdferrors.New(pdferrors.ErrorTypeFileNotFound, "file does not exist").WithFile(srcPath)
		}
		return SheetReference{}, pdferrors.Wrap(pdferrors.ErrorTypeReadError, "cannot access file", err).WithFile(srcPath)
	}
	if info.IsDir() {
		return SheetReference{}, pdferrors.New(pdferrors.ErrorTypeReadError, "path is a directory").WithFile(srcPath)
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return SheetReference{}, pdferrors.Newf(pdferrors.ErrorTypeNotSupported,
			"file too large: %d bytes (max: %d bytes)", info.Size(), s.maxFileSize).WithFile(srcPath)
	}

	if err := s.engine.Validate(srcPath); err != nil {
		return SheetReference{}, err
	}

	if originalName == "" {
		originalName = filepath.Base(srcPath)
	}
	ref := NewSheetReference(s.newID(), originalName, s.now())

	f, err := os.Open(srcPath)
	if err != nil {
		return SheetReference{}, pdferrors.Wrap(pdferrors.ErrorTypeReadError, "cannot open file", err).WithFile(srcPath)
	}
	defer f.Close()

	if err := s.storage.Create(ctx, f, ref.Path); err != nil {
		return SheetReference{}, err
	}
	if err := s.registry.Save(ctx, ref); err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), ref.Path); delErr != nil {
			log.Printf("[sheets] warning: failed to remove %s after registry error: %v", ref.Path, delErr)
		}
		return SheetReference{}, err
	}

	log.Printf("[sheets] imported %q as %s", originalName, ref.ID)
	return ref, nil
}

// Get returns the reference of a sheet.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (SheetReference, error) {
	return s.registry.FindByID(ctx, id)
}

// List returns all imported sheets, oldest first.
func (s *Service) List(ctx context.Context) ([]SheetReference, error) {
	return s.registry.List(ctx)
}

// Delete removes the stored file and then the registry entry.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := s.locks.lock(id.String())
	defer unlock()

	ref, err := s.registry.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, ref.Path); err != nil {
		return err
	}
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}
	s.fields.invalidate(id)

	log.Printf("[sheets] deleted %s", id)
	return nil
}

// Validate re-runs the compatibility checks on a stored sheet.
func (s *Service) Validate(ctx context.Context, id uuid.UUID) (*pdf.ValidateResult, error) {
	var result *pdf.ValidateResult
	err := s.withSheet(ctx, id, func(ref SheetReference, local string) error {
		result = s.engine.ValidateFile(pdf.ValidateRequest{Path: local})
		result.Path = ref.Path
		return nil
	})
	return result, err
}

// ListFields returns the calculable fields of a stored sheet.
func (s *Service) ListFields(ctx context.Context, id uuid.UUID) ([]pdf.FieldDescriptor, error) {
	if fields, ok := s.fields.get(id); ok {
		return fields, nil
	}

	var fields []pdf.FieldDescriptor
	err := s.withSheet(ctx, id, func(_ SheetReference, local string) error {
		listing, err := s.engine.ListCalculableFields(local)
		if err != nil {
			return err
		}
		fields = listing.Fields
		s.fields.put(id, fields)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// AttachCalculation compiles action and wires it, together with the helper
// library, into the stored sheet. The stored file is only replaced when the
// whole attach succeeds.
func (s *Service) AttachCalculation(ctx context.Context, id uuid.UUID, action actions.CalculationAction) (*AttachResult, error) {
	target, script, err := actions.Compile(action)
	if err != nil {
		return nil, err
	}

	err = s.withSheet(ctx, id, func(ref SheetReference, local string) error {
		if err := s.engine.Attach(local, s.helpers, script, target); err != nil {
			return err
		}
		if err := s.storage.Write(ctx, local, ref.Path); err != nil {
			return err
		}
		s.fields.invalidate(id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.debug {
		log.Printf("[sheets] attached %s to %q of %s", action.Kind(), target, id)
	}
	return &AttachResult{SheetID: id, Kind: action.Kind(), TargetField: target, Script: script}, nil
}

// Preview evaluates action against field values without touching any sheet.
func (s *Service) Preview(ctx context.Context, action actions.CalculationAction, values map[string]string) (*actions.PreviewResult, error) {
	return s.previewer.Preview(ctx, action, values)
}

// CacheStats reports field cache usage.
func (s *Service) CacheStats() CacheStats {
	return s.fields.stats()
}

// MaxFileSize returns the import size limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// withSheet runs fn on a working copy of the sheet while holding its lock.
func (s *Service) withSheet(ctx context.Context, id uuid.UUID, fn func(ref SheetReference, local string) error) error {
	unlock := s.locks.lock(id.String())
	defer unlock()

	ref, err := s.registry.FindByID(ctx, id)
	if err != nil {
		return err
	}
	local, err := s.storage.Read(ctx, ref.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.storage.Discard(local); err != nil {
			log.Printf("[sheets] warning: %v", err)
		}
	}()

	if err := fn(ref, local); err != nil {
		return fmt.Errorf("sheet %s: %w", id, err)
	}
	return nil
}
