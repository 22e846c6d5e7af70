package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("rubric.manifest")

// ResolvedDep is a dependency fetched or found on the local filesystem.
type ResolvedDep struct {
	Name      string    // dependency name
	LocalPath string    // project root of the dependency
	Manifest  *Manifest // the dependency's own manifest (may be nil)
}

// LoadPaths returns the directories the dependency contributes to the
// search path: its manifest's load paths, or lib/ when it has none.
func (d ResolvedDep) LoadPaths() []string {
	if d.Manifest != nil {
		return d.Manifest.LoadPaths()
	}
	return []string{filepath.Join(d.LocalPath, "lib")}
}

// Resolver resolves [dependencies] into search path entries.
type Resolver struct {
	manifest *Manifest
	lock     *LockFile
}

// NewResolver creates a resolver for m.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve resolves all dependencies, transitive ones included, and returns
// them dependencies-first. The lock file is rewritten when any dependency
// is present.
func (r *Resolver) Resolve() ([]ResolvedDep, error) {
	if len(r.manifest.Dependencies) == 0 {
		return nil, nil
	}

	lock, err := ReadLock(r.manifest.LockFilePath())
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	r.lock = lock

	resolved := make(map[string]*ResolvedDep)
	order, err := r.resolveAll(r.manifest.Dir, r.manifest.Dependencies, resolved)
	if err != nil {
		return nil, err
	}

	if err := r.writeLock(resolved); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	return order, nil
}

// SearchPaths returns the dependency load paths in resolution order.
func (r *Resolver) SearchPaths() ([]string, error) {
	deps, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, d := range deps {
		paths = append(paths, d.LoadPaths()...)
	}
	return paths, nil
}

func (r *Resolver) resolveAll(base string, deps map[string]Dependency, resolved map[string]*ResolvedDep) ([]ResolvedDep, error) {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var order []ResolvedDep
	for _, name := range names {
		if _, ok := resolved[name]; ok {
			continue
		}

		rd, err := r.resolveOne(base, name, deps[name])
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		resolved[name] = rd

		if rd.Manifest != nil && len(rd.Manifest.Dependencies) > 0 {
			transitive, err := r.resolveAll(rd.LocalPath, rd.Manifest.Dependencies, resolved)
			if err != nil {
				return nil, err
			}
			order = append(order, transitive...)
		}
		order = append(order, *rd)
	}
	return order, nil
}

func (r *Resolver) resolveOne(base, name string, dep Dependency) (*ResolvedDep, error) {
	switch {
	case dep.Path != "":
		localPath := dep.Path
		if !filepath.IsAbs(localPath) {
			localPath = filepath.Join(base, localPath)
		}
		if _, err := os.Stat(localPath); err != nil {
			return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
		}
		depManifest, _ := Load(localPath)
		log.Debugf("dependency %s at %s", name, localPath)
		return &ResolvedDep{Name: name, LocalPath: localPath, Manifest: depManifest}, nil

	case dep.Git != "":
		depDir := filepath.Join(r.manifest.DepsDir(), name)
		if _, err := os.Stat(depDir); os.IsNotExist(err) {
			log.Infof("cloning %s from %s", name, dep.Git)
			if err := os.MkdirAll(r.manifest.DepsDir(), 0755); err != nil {
				return nil, err
			}
			if err := gitClone(dep.Git, depDir); err != nil {
				return nil, err
			}
		} else if locked := r.lock.FindLockedDep(name); locked == nil || locked.Tag != dep.Tag {
			log.Infof("fetching %s", name)
			if err := gitFetch(depDir); err != nil {
				return nil, err
			}
		}
		if dep.Tag != "" {
			if err := gitCheckout(depDir, dep.Tag); err != nil {
				return nil, err
			}
		}
		depManifest, _ := Load(depDir)
		return &ResolvedDep{Name: name, LocalPath: depDir, Manifest: depManifest}, nil
	}
	return nil, fmt.Errorf("dependency %q has no git or path specified", name)
}

func (r *Resolver) writeLock(resolved map[string]*ResolvedDep) error {
	lf := &LockFile{}
	for _, rd := range resolved {
		ld := LockedDep{Name: rd.Name}
		dep := r.manifest.Dependencies[rd.Name]
		switch {
		case dep.Git != "":
			ld.Git = dep.Git
			ld.Tag = dep.Tag
			if commit, err := gitCurrentCommit(rd.LocalPath); err == nil {
				ld.Commit = commit
			}
		case dep.Path != "":
			ld.Path = dep.Path
		default:
			// transitive
			ld.Path = rd.LocalPath
		}
		lf.Deps = append(lf.Deps, ld)
	}

	if err := os.MkdirAll(filepath.Dir(r.manifest.LockFilePath()), 0755); err != nil {
		return err
	}
	return WriteLock(r.manifest.LockFilePath(), lf)
}
