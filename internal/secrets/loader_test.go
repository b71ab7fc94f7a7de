package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrder(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "secret")
	if err := os.WriteFile(file, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret file: %v", err)
	}
	t.Setenv("QUICKAPPLY_TEST_SECRET", "from-env")

	cases := []struct {
		name string
		src  Source
		want string
	}{
		{name: "file wins", src: Source{File: file, Value: "inline", Env: "QUICKAPPLY_TEST_SECRET"}, want: "from-file"},
		{name: "inline before env", src: Source{Value: " inline ", Env: "QUICKAPPLY_TEST_SECRET"}, want: "inline"},
		{name: "env", src: Source{Env: "QUICKAPPLY_TEST_SECRET"}, want: "from-env"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Load(tc.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	if _, err := Load(Source{Name: "password", File: empty}); err == nil || errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected empty file error, got %v", err)
	}
	if _, err := Load(Source{Name: "password", File: filepath.Join(dir, "missing")}); err == nil {
		t.Fatalf("expected missing file error")
	}
	if _, err := Load(Source{Name: "password", Env: "QUICKAPPLY_TEST_UNSET"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLoadCredentialsPrompts(t *testing.T) {
	var asked []string
	ask := func(label string, masked bool) (string, error) {
		asked = append(asked, label)
		if masked {
			return "hunter2", nil
		}
		return "me@example.com", nil
	}

	creds, err := LoadCredentials(
		Source{Name: "identity", Value: "configured@example.com"},
		Source{Name: "password"},
		ask,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.Identity != "configured@example.com" || creds.Secret != "hunter2" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
	if len(asked) != 1 || asked[0] != "password" {
		t.Fatalf("expected a single prompt for the password, got %v", asked)
	}
}

func TestLoadCredentialsWithoutPrompter(t *testing.T) {
	_, err := LoadCredentials(Source{Name: "identity", Value: "me"}, Source{Name: "password"}, nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
