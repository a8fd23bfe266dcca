package kernelspec

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pithecene-io/ikernel/session"
)

func TestNew(t *testing.T) {
	spec := New("/usr/local/bin/ikernel", session.Go, "--config", "/etc/ikernel.yaml")

	want := Spec{
		Argv: []string{
			"/usr/local/bin/ikernel", "run",
			"--connection-file", "{connection_file}",
			"--dialect", "go",
			"--config", "/etc/ikernel.yaml",
		},
		DisplayName:   "Go (ikernel)",
		Language:      "go",
		InterruptMode: "signal",
	}
	if diff := cmp.Diff(want, spec); diff != "" {
		t.Errorf("New mismatch (-want +got):\n%s", diff)
	}
}

func TestInstallLoadUninstall(t *testing.T) {
	dir := t.TempDir()
	spec := New("/opt/ikernel", session.Aiken)

	path, err := Install(dir, Name(session.Aiken), spec)
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if want := filepath.Join(dir, "ikernel-aiken", "kernel.json"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	got, err := Load(dir, "ikernel-aiken")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(spec, *got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	removed, err := Uninstall(dir, "ikernel-aiken")
	if err != nil || !removed {
		t.Fatalf("Uninstall = %v, %v; want true, nil", removed, err)
	}
	removed, err = Uninstall(dir, "ikernel-aiken")
	if err != nil || removed {
		t.Errorf("second Uninstall = %v, %v; want false, nil", removed, err)
	}
}

func TestInstall_Overwrites(t *testing.T) {
	dir := t.TempDir()
	if _, err := Install(dir, "k", New("/old", session.Go)); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if _, err := Install(dir, "k", New("/new", session.Go)); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	got, err := Load(dir, "k")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Argv[0] != "/new" {
		t.Errorf("argv[0] = %q, want /new", got.Argv[0])
	}
}

func TestUserDir_JupyterDataDir(t *testing.T) {
	t.Setenv("JUPYTER_DATA_DIR", "/data/jupyter")
	dir, err := UserDir()
	if err != nil {
		t.Fatalf("UserDir failed: %v", err)
	}
	if want := filepath.Join("/data/jupyter", "kernels"); dir != want {
		t.Errorf("UserDir = %q, want %q", dir, want)
	}
}

func TestPrefixDir(t *testing.T) {
	if got, want := PrefixDir("/venv"), filepath.Join("/venv", "share", "jupyter", "kernels"); got != want {
		t.Errorf("PrefixDir = %q, want %q", got, want)
	}
}
