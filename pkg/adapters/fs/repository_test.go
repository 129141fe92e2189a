package fs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sparti/pkg/adapters/fs"
	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/git"
	"github.com/aretw0/sparti/pkg/schema"
)

// setupRepo creates an initialized gitless repository for testing.
func setupRepo(t *testing.T, opts ...func(*fs.Config)) (*fs.Repository, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "site")
	cfg := fs.Config{
		Path:     root,
		AutoInit: true,
		Gitless:  true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	repo := fs.NewRepository(cfg)
	require.NoError(t, repo.Initialize(context.Background()))
	return repo, root
}

func heroDoc() core.Document {
	return core.Document{
		ID:     "home/hero",
		Flavor: "hero",
		Fields: schema.Document{
			"title": schema.String("Welcome"),
			"cta":   schema.Document{"label": schema.String("Buy"), "href": schema.String("/shop")},
		},
	}
}

func TestInitialize(t *testing.T) {
	t.Run("Creates Directory if Missing", func(t *testing.T) {
		_, root := setupRepo(t)
		info, err := os.Stat(filepath.Join(root, fs.DefaultSystemDir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("Fails if MustExist and Missing", func(t *testing.T) {
		repo := fs.NewRepository(fs.Config{Path: filepath.Join(t.TempDir(), "nope"), MustExist: true, Gitless: true})
		assert.Error(t, repo.Initialize(context.Background()))
	})

	t.Run("Inits Git Repo if AutoInit", func(t *testing.T) {
		if !git.IsInstalled() {
			t.Skip("git not installed")
		}
		_, root := setupRepo(t, func(c *fs.Config) { c.Gitless = false })

		_, err := os.Stat(filepath.Join(root, ".git"))
		require.NoError(t, err)

		ignore, err := os.ReadFile(filepath.Join(root, ".gitignore"))
		require.NoError(t, err)
		assert.Contains(t, string(ignore), fs.DefaultSystemDir+"/")
	})

	t.Run("Fails Without Git Repo if not AutoInit", func(t *testing.T) {
		if !git.IsInstalled() {
			t.Skip("git not installed")
		}
		repo := fs.NewRepository(fs.Config{Path: t.TempDir(), Gitless: false, AutoInit: false})
		assert.Error(t, repo.Initialize(context.Background()))
	})
}

func TestRepository_SaveGet(t *testing.T) {
	repo, root := setupRepo(t)
	ctx := core.WithTenant(context.Background(), "acme")

	require.NoError(t, repo.Save(ctx, heroDoc()))

	_, err := os.Stat(filepath.Join(root, "acme", "home", "hero.json"))
	require.NoError(t, err, "document must live under the tenant directory")

	got, err := repo.Get(ctx, "home/hero")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Tenant)
	assert.Equal(t, "hero", got.Flavor)
	assert.Equal(t, heroDoc().Fields, got.Fields)

	_, err = repo.Get(context.Background(), "home/hero")
	assert.ErrorIs(t, err, core.ErrNotFound, "other tenants must not see the document")
}

func TestRepository_KeepsExistingFormat(t *testing.T) {
	repo, root := setupRepo(t)
	ctx := context.Background()

	path := filepath.Join(root, core.DefaultTenant, "footer.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("flavor: footer\nfields:\n  copyright: Acme\n"), 0644))

	doc, err := repo.Get(ctx, "footer")
	require.NoError(t, err)
	assert.Equal(t, schema.String("Acme"), doc.Fields["copyright"])

	doc.Fields["copyright"] = schema.String("Acme Inc")
	require.NoError(t, repo.Save(ctx, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Acme Inc")
	_, err = os.Stat(filepath.Join(root, core.DefaultTenant, "footer.json"))
	assert.True(t, os.IsNotExist(err), "save must not fork the document into another format")
}

func TestRepository_YAMLFormat(t *testing.T) {
	repo, root := setupRepo(t, func(c *fs.Config) { c.Format = "yaml" })
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, heroDoc()))
	_, err := os.Stat(filepath.Join(root, core.DefaultTenant, "home", "hero.yaml"))
	require.NoError(t, err)

	got, err := repo.Get(ctx, "home/hero")
	require.NoError(t, err)
	assert.Equal(t, heroDoc().Fields, got.Fields)
}

func TestRepository_List(t *testing.T) {
	repo, root := setupRepo(t)
	acme := core.WithTenant(context.Background(), "acme")

	require.NoError(t, repo.Save(acme, heroDoc()))
	require.NoError(t, repo.Save(acme, core.Document{ID: "about/faq", Flavor: "faq", Fields: schema.Document{}}))
	require.NoError(t, repo.Save(core.WithTenant(acme, "globex"), core.Document{ID: "home/hero"}))

	// Noise that must be skipped.
	require.NoError(t, os.WriteFile(filepath.Join(root, "acme", "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "acme", "broken.json"), []byte("{"), 0644))

	docs, err := repo.List(acme)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "about/faq", docs[0].ID)
	assert.Equal(t, "home/hero", docs[1].ID)
	assert.Equal(t, heroDoc().Fields, docs[1].Fields)

	// Second listing is served from the index cache.
	again, err := repo.List(acme)
	require.NoError(t, err)
	assert.Equal(t, docs, again)

	st := repo.State().(fs.RepositoryState)
	assert.GreaterOrEqual(t, st.CacheSize, 3)

	empty, err := repo.List(core.WithTenant(acme, "initech"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepository_Delete(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, heroDoc()))
	require.NoError(t, repo.Delete(ctx, "home/hero"))

	_, err := repo.Get(ctx, "home/hero")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "home/hero"), core.ErrNotFound)
}

func TestRepository_Validation(t *testing.T) {
	repo, _ := setupRepo(t)

	for _, id := range []string{"", "../escape", "/abs", "a//b"} {
		err := repo.Save(context.Background(), core.Document{ID: id})
		assert.ErrorIs(t, err, core.ErrInvalidID, "id %q", id)
	}
	for _, tenant := range []string{".git", "a/b", `..\x`} {
		_, err := repo.Get(core.WithTenant(context.Background(), tenant), "x")
		assert.ErrorIs(t, err, core.ErrInvalidID, "tenant %q", tenant)
	}
}

func TestRepository_ReadOnly(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, heroDoc()))

	repo.SetReadOnly(true)
	assert.ErrorIs(t, repo.Save(ctx, heroDoc()), core.ErrReadOnly)
	assert.ErrorIs(t, repo.Delete(ctx, "home/hero"), core.ErrReadOnly)
	_, err := repo.Begin(ctx)
	assert.ErrorIs(t, err, core.ErrReadOnly)

	_, err = repo.Get(ctx, "home/hero")
	assert.NoError(t, err, "reads are still allowed")
}

func TestRepository_StrictRejectsPlainFiles(t *testing.T) {
	repo, root := setupRepo(t, func(c *fs.Config) { c.Strict = true })
	path := filepath.Join(root, core.DefaultTenant, "plain.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"x"}`), 0644))

	_, err := repo.Get(context.Background(), "plain")
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrNotFound))
}

func TestRepository_GitVersioning(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	repo, root := setupRepo(t, func(c *fs.Config) { c.Gitless = false })
	ctx := core.WithTenant(context.Background(), "acme")

	require.NoError(t, repo.Save(ctx, heroDoc()))
	reason := git.FormatChangeReason(git.ChangeFeat, "acme", "new hero", "")
	doc := heroDoc()
	doc.Fields["title"] = schema.String("Hello")
	require.NoError(t, repo.Save(core.WithChangeReason(ctx, reason), doc))
	require.NoError(t, repo.Delete(ctx, "home/hero"))

	client := git.NewClient(root, "", nil)
	log, err := client.Run("log", "--format=%s")
	require.NoError(t, err)
	lines := strings.Split(log, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "docs(acme): delete home/hero", lines[0])
	assert.Equal(t, "feat(acme): new hero", lines[1])
	assert.Equal(t, "docs(acme): update home/hero", lines[2])

	status, err := client.Status()
	require.NoError(t, err)
	assert.Empty(t, status, "work tree must be clean after commits")
}

func TestRepository_SyncGitless(t *testing.T) {
	repo, _ := setupRepo(t)
	assert.ErrorIs(t, repo.Sync(context.Background()), core.ErrUnsupported)
}
