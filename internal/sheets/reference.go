// Package sheets manages uploaded character sheets: identity, storage and
// the calculations attached to them.
package sheets

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SheetReference locates an uploaded sheet.
type SheetReference struct {
	ID           uuid.UUID `json:"id"`
	OriginalName string    `json:"original_name"`
	// Name is the storage-safe file name derived from the id.
	Name string `json:"name"`
	// Path is the logical storage path, "<idhex>/<Name>".
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSheetReference derives the storage name and path for a new sheet.
func NewSheetReference(id uuid.UUID, originalName string, createdAt time.Time) SheetReference {
	idHex := strings.ReplaceAll(id.String(), "-", "")
	name := idHex
	if ext := extension(originalName); ext != "" {
		name += "." + ext
	}
	return SheetReference{
		ID:           id,
		OriginalName: originalName,
		Name:         name,
		Path:         path.Join(idHex, name),
		CreatedAt:    createdAt.UTC(),
	}
}

// extension returns the final extension of name without the dot. Dot files
// such as ".profile" have none.
func extension(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	idx := strings.LastIndex(base, ".")
	if idx <= 0 || idx == len(base)-1 {
		return ""
	}
	return base[idx+1:]
}
