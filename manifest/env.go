package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by the CLI.
const (
	EnvPath = "RUBRIC_PATH"
	EnvLog  = "RUBRIC_LOG"
)

// Env holds the settings taken from the process environment and an
// optional .env file. Process variables win over the file.
type Env struct {
	Path []string // extra search directories, appended after the manifest's
	Log  int      // verbosity; 0 when unset
}

// LoadEnv reads dir/.env if present and overlays the process environment.
// dir may be empty, in which case only the process environment is used.
func LoadEnv(dir string) (*Env, error) {
	vars := map[string]string{}
	if dir != "" {
		path := filepath.Join(dir, ".env")
		file, err := godotenv.Read(path)
		switch {
		case err == nil:
			vars = file
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	}
	for _, key := range []string{EnvPath, EnvLog} {
		if v, ok := os.LookupEnv(key); ok {
			vars[key] = v
		}
	}

	env := &Env{}
	if p := vars[EnvPath]; p != "" {
		for _, d := range filepath.SplitList(p) {
			if d != "" {
				env.Path = append(env.Path, d)
			}
		}
	}
	if l := vars[EnvLog]; l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLog, err)
		}
		env.Log = n
	}
	return env, nil
}
