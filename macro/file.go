package macro

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const fileExt = ".json"

// ErrNotFound is returned when a named macro does not exist.
var ErrNotFound = errors.New("macro not found")

// ErrInvalidName is returned for macro names that cannot be file names.
var ErrInvalidName = errors.New("invalid macro name")

// SaveFile writes t to path. The file is written atomically using a
// temporary file and rename.
func SaveFile(path string, t *Timeline) error {
	data, err := Marshal(t)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create macro dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// LoadFile reads a macro file.
func LoadFile(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read macro: %w", err)
	}
	t, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// Info describes a stored macro.
type Info struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Library is a directory holding one JSON file per macro.
type Library struct {
	dir string
}

// NewLibrary returns a library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// DefaultDir returns the macro directory under the user config dir.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, "supermacro", "macros"), nil
}

// Dir returns the library directory.
func (l *Library) Dir() string { return l.dir }

// Path returns the file path for name. A trailing ".json" is optional.
func (l *Library) Path(name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), fileExt)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\:`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(l.dir, name+fileExt), nil
}

// List returns the stored macros sorted by name. A missing directory is an
// empty library.
func (l *Library) List() ([]Info, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read macro dir: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExt {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Name:    strings.TrimSuffix(entry.Name(), fileExt),
			Path:    filepath.Join(l.dir, entry.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Save stores t under name and returns the file path.
func (l *Library) Save(name string, t *Timeline) (string, error) {
	if t.IsEmpty() {
		return "", fmt.Errorf("save %q: timeline is empty", name)
	}
	path, err := l.Path(name)
	if err != nil {
		return "", err
	}
	return path, SaveFile(path, t)
}

// Load reads the macro stored under name.
func (l *Library) Load(name string) (*Timeline, error) {
	path, err := l.Path(name)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// Delete removes the macro stored under name.
func (l *Library) Delete(name string) error {
	path, err := l.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("delete macro: %w", err)
	}
	return nil
}

// Rename moves a macro to a new name. An existing macro under the new name
// is not overwritten.
func (l *Library) Rename(oldName, newName string) error {
	from, err := l.Path(oldName)
	if err != nil {
		return err
	}
	to, err := l.Path(newName)
	if err != nil {
		return err
	}
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("rename macro: %q already exists", newName)
	}
	if err := os.Rename(from, to); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, oldName)
		}
		return fmt.Errorf("rename macro: %w", err)
	}
	return nil
}
