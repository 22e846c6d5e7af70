package vm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
)

var loadLog = commonlog.GetLogger("rubric.load")

// DefaultExtension is appended to library names that do not carry it.
const DefaultExtension = ".rb"

// DefaultSearchPath seeds $: at start-up: the standard library directory
// followed by the current directory.
var DefaultSearchPath = []string{"./lib/rubric", "."}

// ---------------------------------------------------------------------------
// File system access
// ---------------------------------------------------------------------------

// FileSystem is the host access the loader needs.
type FileSystem interface {
	IsRegular(path string) bool
	ReadFile(path string) ([]byte, error)
	Abs(path string) (string, error)
}

// OSFileSystem reads from the host file system.
type OSFileSystem struct {
	// FollowSymlinks makes Abs resolve symbolic links, so two links to the
	// same file are required once.
	FollowSymlinks bool
}

func (OSFileSystem) IsRegular(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (fs OSFileSystem) Abs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if fs.FollowSymlinks {
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			return real, nil
		}
	}
	return abs, nil
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// Loader resolves library names against the search path and evaluates the
// selected files in the VM's top-level scope.
//
// The search path and the loaded-features list are VM arrays so that code
// can edit them through $: and read them through $". The loaded set is
// keyed by canonical absolute path and only ever grows, except that a
// require whose evaluation fails is forgotten again.
type Loader struct {
	vm        *VM
	fs        FileSystem
	Extension string

	path     *Array
	features *Array
	loaded   map[string]bool
}

// NewLoader creates a loader seeded with DefaultSearchPath.
func NewLoader(vm *VM, fs FileSystem) *Loader {
	l := &Loader{
		vm:        vm,
		fs:        fs,
		Extension: DefaultExtension,
		path:      NewArray(),
		features:  NewArray(),
		loaded:    make(map[string]bool),
	}
	l.SetSearchPath(DefaultSearchPath)
	return l
}

// SetFileSystem replaces the file system used for resolution and reads.
func (l *Loader) SetFileSystem(fs FileSystem) {
	l.fs = fs
}

// SearchPath returns the current search directories, front to back.
// Entries that are not strings are skipped.
func (l *Loader) SearchPath() []string {
	dirs := make([]string, 0, l.path.Len())
	for _, v := range l.path.Elements {
		if s := v.AsString(); s != nil {
			dirs = append(dirs, s.String())
		} else if v.IsSymbol() {
			dirs = append(dirs, l.vm.SymbolName(v))
		}
	}
	return dirs
}

// SetSearchPath replaces the search directories.
func (l *Loader) SetSearchPath(dirs []string) {
	l.path.Elements = l.path.Elements[:0]
	l.AppendPath(dirs...)
}

// PrependPath adds directories in front of the search path, keeping their
// order.
func (l *Loader) PrependPath(dirs ...string) {
	vals := make([]Value, len(dirs))
	for i, d := range dirs {
		vals[i] = NewString(d)
	}
	l.path.Unshift(vals...)
}

// AppendPath adds directories at the end of the search path.
func (l *Loader) AppendPath(dirs ...string) {
	for _, d := range dirs {
		l.path.Push(NewString(d))
	}
}

// Loaded returns the canonical paths recorded by require, in load order.
func (l *Loader) Loaded() []string {
	out := make([]string, 0, l.features.Len())
	for _, v := range l.features.Elements {
		if s := v.AsString(); s != nil {
			out = append(out, s.String())
		}
	}
	return out
}

// IsLoaded reports whether the canonical path abs has been required.
func (l *Loader) IsLoaded(abs string) bool {
	return l.loaded[abs]
}

func (l *Loader) withExtension(path string) string {
	if strings.HasSuffix(path, l.Extension) {
		return path
	}
	return path + l.Extension
}

// Resolve maps a library name to a file. Each search directory is tried in
// order with the extension appended when missing; if none matches, path is
// tried as given and then with the extension.
func (l *Loader) Resolve(path string) (string, error) {
	name := l.withExtension(path)
	for _, dir := range l.SearchPath() {
		candidate := dir + "/" + name
		if l.fs.IsRegular(candidate) {
			return candidate, nil
		}
	}
	if l.fs.IsRegular(path) {
		return path, nil
	}
	if name != path && l.fs.IsRegular(name) {
		return name, nil
	}
	return "", &FileNotFoundError{Path: path}
}

// Require evaluates the file path resolves to unless its canonical path
// was required before. It returns true when the file was evaluated.
//
// The path is recorded before evaluation, so a file that requires itself
// (directly or through other files) is not evaluated again. If evaluation
// fails the record is removed.
func (l *Loader) Require(path string) (bool, error) {
	file, err := l.Resolve(path)
	if err != nil {
		return false, err
	}
	abs, err := l.fs.Abs(file)
	if err != nil {
		return false, fmt.Errorf("require %s: %w", path, err)
	}
	if l.loaded[abs] {
		loadLog.Debugf("require %s: already loaded", abs)
		return false, nil
	}

	l.loaded[abs] = true
	l.features.Push(NewString(abs))
	loadLog.Infof("require %s", abs)

	if err := l.evalFile(file); err != nil {
		l.forget(abs)
		return false, err
	}
	return true, nil
}

// Load evaluates the file path resolves to, whether or not it was loaded
// before. It does not touch the loaded set.
func (l *Loader) Load(path string) (bool, error) {
	file, err := l.Resolve(path)
	if err != nil {
		return false, err
	}
	loadLog.Infof("load %s", file)
	if err := l.evalFile(file); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Loader) evalFile(file string) error {
	src, err := l.fs.ReadFile(file)
	if err != nil {
		return fmt.Errorf("cannot read %q: %w", file, err)
	}
	_, err = l.vm.EvalString(string(src), file)
	return err
}

func (l *Loader) forget(abs string) {
	delete(l.loaded, abs)
	for i := l.features.Len() - 1; i >= 0; i-- {
		if s := l.features.Elements[i].AsString(); s != nil && s.String() == abs {
			l.features.Elements = append(l.features.Elements[:i], l.features.Elements[i+1:]...)
			return
		}
	}
}
