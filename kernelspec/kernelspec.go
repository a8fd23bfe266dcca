// Package kernelspec installs and removes the kernel.json files Jupyter
// uses to discover and launch kernels.
package kernelspec

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pithecene-io/ikernel/session"
)

// FileName is the spec file inside a kernel directory.
const FileName = "kernel.json"

// ConnectionFileArg is replaced by Jupyter with the connection file path.
const ConnectionFileArg = "{connection_file}"

// Spec is the content of kernel.json.
type Spec struct {
	Argv          []string          `json:"argv"`
	DisplayName   string            `json:"display_name"`
	Language      string            `json:"language"`
	InterruptMode string            `json:"interrupt_mode,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
}

// New returns the spec launching exe as a kernel for dialect d. Extra
// args are placed after the connection file argument.
func New(exe string, d *session.Dialect, extra ...string) Spec {
	argv := []string{exe, "run", "--connection-file", ConnectionFileArg, "--dialect", d.Name}
	argv = append(argv, extra...)
	return Spec{
		Argv:          argv,
		DisplayName:   DisplayName(d),
		Language:      d.LanguageInfo.Name,
		InterruptMode: "signal",
	}
}

// Name is the kernel directory name for dialect d.
func Name(d *session.Dialect) string {
	return "ikernel-" + d.Name
}

// DisplayName is the name shown by frontends.
func DisplayName(d *session.Dialect) string {
	switch d.Name {
	case session.Go.Name:
		return "Go (ikernel)"
	case session.Aiken.Name:
		return "Aiken (ikernel)"
	default:
		return d.Name + " (ikernel)"
	}
}

// UserDir returns the per-user kernels directory. JUPYTER_DATA_DIR
// overrides the platform default.
func UserDir() (string, error) {
	if dir := os.Getenv("JUPYTER_DATA_DIR"); dir != "" {
		return filepath.Join(dir, "kernels"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Jupyter", "kernels"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "jupyter", "kernels"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "jupyter", "kernels"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "jupyter", "kernels"), nil
		}
		return filepath.Join(home, ".local", "share", "jupyter", "kernels"), nil
	}
}

// PrefixDir returns the kernels directory under an installation prefix
// such as a virtualenv.
func PrefixDir(prefix string) string {
	return filepath.Join(prefix, "share", "jupyter", "kernels")
}

// Install writes spec to <kernelsDir>/<name>/kernel.json, replacing any
// existing file, and returns the file path.
func Install(kernelsDir, name string, spec Spec) (string, error) {
	dir := filepath.Join(kernelsDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create kernel directory: %w", err)
	}

	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode kernel spec: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write kernel spec: %w", err)
	}
	return path, nil
}

// Load reads the spec installed as name.
func Load(kernelsDir, name string) (*Spec, error) {
	data, err := os.ReadFile(filepath.Join(kernelsDir, name, FileName))
	if err != nil {
		return nil, err
	}
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse kernel spec: %w", err)
	}
	return &spec, nil
}

// Uninstall removes the kernel directory name. It reports false if
// nothing was installed.
func Uninstall(kernelsDir, name string) (bool, error) {
	dir := filepath.Join(kernelsDir, name)
	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("remove kernel directory: %w", err)
	}
	return true, nil
}
