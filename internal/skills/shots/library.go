// Package shots manages the screenshot library: a flat directory of image
// files plus a JSON inventory kept in the shared state store so concurrent
// imports from hooks and the CLI cannot corrupt it.
package shots

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/oddrun/sidekick/internal/errors"
	"github.com/oddrun/sidekick/internal/txstate"
)

// IndexFile is the inventory state file, relative to the toolkit home.
const IndexFile = "shots.json"

// Entry is one screenshot in the library.
type Entry struct {
	ID         string    `json:"id"`
	File       string    `json:"file"`
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	Source     string    `json:"source,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
}

// Index is the persisted inventory.
type Index struct {
	Entries []Entry `json:"entries"`
}

// Library manages screenshots under dir with its inventory in store.
type Library struct {
	store *txstate.Store
	dir   string
}

// NewLibrary creates a library rooted at dir.
func NewLibrary(store *txstate.Store, dir string) *Library {
	return &Library{store: store, dir: dir}
}

// Import copies srcPath into the library. Byte-identical captures are
// deduplicated: the existing entry is returned with imported=false.
func (l *Library) Import(srcPath string) (entry Entry, imported bool, err error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return Entry{}, false, errors.SkillError("shots", fmt.Sprintf("read %s", srcPath), err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	newEntry := Entry{
		ID:         uuid.NewString(),
		File:       uuid.NewString() + filepath.Ext(srcPath),
		Hash:       hash,
		Size:       int64(len(data)),
		Source:     srcPath,
		ImportedAt: time.Now(),
	}

	// Copy first so a crash between copy and index update leaves an
	// orphaned file, never a dangling index entry.
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return Entry{}, false, errors.SkillError("shots", "create library directory", err)
	}
	destPath := filepath.Join(l.dir, newEntry.File)
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return Entry{}, false, errors.SkillError("shots", fmt.Sprintf("copy to %s", destPath), err)
	}

	var existing *Entry
	_, err = txstate.Update(l.store, IndexFile, Index{}, func(ix Index) (Index, error) {
		for _, e := range ix.Entries {
			if e.Hash == hash {
				dup := e
				existing = &dup
				return ix, nil
			}
		}
		ix.Entries = append(ix.Entries, newEntry)
		return ix, nil
	}, nil)
	if err != nil {
		os.Remove(destPath)
		return Entry{}, false, err
	}
	if existing != nil {
		os.Remove(destPath)
		return *existing, false, nil
	}
	return newEntry, true, nil
}

// List returns the inventory, newest first.
func (l *Library) List() ([]Entry, error) {
	ix, err := txstate.Read(l.store, IndexFile, Index{})
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(ix.Entries))
	copy(entries, ix.Entries)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ImportedAt.After(entries[j].ImportedAt)
	})
	return entries, nil
}

// Prune drops entries older than retention and deletes their files.
// Returns how many were removed. A retention of zero keeps everything.
func (l *Library) Prune(retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention)

	var removed []Entry
	_, err := txstate.Update(l.store, IndexFile, Index{}, func(ix Index) (Index, error) {
		removed = removed[:0]
		kept := ix.Entries[:0]
		for _, e := range ix.Entries {
			if e.ImportedAt.Before(cutoff) {
				removed = append(removed, e)
			} else {
				kept = append(kept, e)
			}
		}
		ix.Entries = kept
		return ix, nil
	}, nil)
	if err != nil {
		return 0, err
	}

	for _, e := range removed {
		if err := os.Remove(filepath.Join(l.dir, e.File)); err != nil && !os.IsNotExist(err) {
			return len(removed), errors.SkillError("shots", fmt.Sprintf("delete %s", e.File), err)
		}
	}
	return len(removed), nil
}
