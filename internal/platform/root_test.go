package platform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFindRoot(t *testing.T) {
	// base/
	//   site/ (.sparti)
	//     pages/
	//       home/
	//   empty/
	baseDir := t.TempDir()
	siteDir := filepath.Join(baseDir, "site")
	pagesDir := filepath.Join(siteDir, "pages")
	homeDir := filepath.Join(pagesDir, "home")
	emptyDir := filepath.Join(baseDir, "empty")

	for _, dir := range []string{homeDir, emptyDir, filepath.Join(siteDir, ".sparti")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name      string
		startPath string
		wantRoot  string
		wantErr   bool
	}{
		{name: "Start at Root", startPath: siteDir, wantRoot: siteDir},
		{name: "Start in Subdir", startPath: pagesDir, wantRoot: siteDir},
		{name: "Start Nested Deeply", startPath: homeDir, wantRoot: siteDir},
		{name: "No Root Found", startPath: emptyDir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.startPath)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FindRoot() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrRootNotFound) {
					t.Errorf("FindRoot() error = %v, want ErrRootNotFound", err)
				}
				return
			}
			if filepath.Clean(got) != filepath.Clean(tt.wantRoot) {
				t.Errorf("FindRoot() = %v, want %v", got, tt.wantRoot)
			}
		})
	}
}

func TestResolveStorePath(t *testing.T) {
	inTemp := filepath.Join(os.TempDir(), "already-safe")

	tests := []struct {
		name      string
		path      string
		forceTemp bool
		want      string
	}{
		{name: "no sandbox", path: "site", want: "site"},
		{name: "no sandbox empty", path: "", want: "."},
		{name: "inside temp kept", path: inTemp, forceTemp: true, want: inTemp},
		{name: "outside temp rerooted", path: "/srv/sites/acme", forceTemp: true, want: filepath.Join(os.TempDir(), "sparti-dev", "acme")},
		{name: "current dir", path: ".", forceTemp: true, want: filepath.Join(os.TempDir(), "sparti-dev", "default")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveStorePath(tt.path, tt.forceTemp); got != tt.want {
				t.Errorf("ResolveStorePath(%q, %v) = %q, want %q", tt.path, tt.forceTemp, got, tt.want)
			}
		})
	}
}

func TestDetectGitless(t *testing.T) {
	fresh := t.TempDir()
	if detectGitless(fresh, ".sparti", true) {
		t.Error("fresh auto-initialized store should be versioned")
	}
	if !detectGitless(fresh, ".sparti", false) {
		t.Error("existing store without .git should be gitless")
	}

	if err := os.Mkdir(filepath.Join(fresh, ".sparti"), 0755); err != nil {
		t.Fatal(err)
	}
	if !detectGitless(fresh, ".sparti", true) {
		t.Error("existing unversioned store should stay gitless")
	}

	if err := os.Mkdir(filepath.Join(fresh, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	if detectGitless(fresh, ".sparti", false) {
		t.Error("store with .git should be versioned")
	}
}
