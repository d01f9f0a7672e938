// Package stamp enumerates the sticker images clients may attach to a
// comment in place of free text.
package stamp

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

// Stamp is one catalog entry: a filename and its derived access URL.
type Stamp struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

var approvedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Catalog lists sticker assets from a directory. The directory is re-read on
// every query, so files added or removed at runtime are observed immediately.
type Catalog struct {
	dir       string
	urlPrefix string
}

// NewCatalog creates a catalog over dir. URLs are derived by joining
// urlPrefix with the filename.
func NewCatalog(dir, urlPrefix string) *Catalog {
	return &Catalog{dir: dir, urlPrefix: urlPrefix}
}

// Dir returns the directory the catalog is listing.
func (c *Catalog) Dir() string {
	return c.dir
}

// List returns the current stamps sorted by filename. Directories and files
// with unapproved extensions are skipped. A missing stamp directory yields an
// empty catalog, not an error.
func (c *Catalog) List() ([]Stamp, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Stamp{}, nil
		}
		return nil, fmt.Errorf("failed to read stamp directory: %w", err)
	}

	stamps := []Stamp{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !approvedExtensions[strings.ToLower(path.Ext(name))] {
			continue
		}
		stamps = append(stamps, Stamp{Name: name, URL: c.URLFor(name)})
	}

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Name < stamps[j].Name })

	return stamps, nil
}

// IsValid reports whether name is a stamp in the current listing. Forged or
// stale references come back false and are downgraded by the caller, never
// rejected as an error.
func (c *Catalog) IsValid(name string) bool {
	if name == "" {
		return false
	}
	stamps, err := c.List()
	if err != nil {
		return false
	}
	for _, s := range stamps {
		if s.Name == name {
			return true
		}
	}
	return false
}

// URLFor derives the access URL for a stored stamp filename.
func (c *Catalog) URLFor(name string) string {
	return strings.TrimSuffix(c.urlPrefix, "/") + "/" + name
}
