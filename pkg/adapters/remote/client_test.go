package remote_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sparti/pkg/adapters/remote"
	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/schema"
)

type stored struct {
	ID     string         `json:"id"`
	Flavor string         `json:"flavor"`
	Fields map[string]any `json:"fields"`
}

// fakeAPI is an in-memory implementation of the document API.
type fakeAPI struct {
	mu   sync.Mutex
	docs map[string]stored
}

func newFakeAPI(t *testing.T) (*httptest.Server, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{docs: make(map[string]stored)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tenants/{tenant}/documents", api.list)
	mux.HandleFunc("GET /tenants/{tenant}/documents/{id...}", api.get)
	mux.HandleFunc("PUT /tenants/{tenant}/documents/{id...}", api.put)
	mux.HandleFunc("PATCH /tenants/{tenant}/documents/{id...}", api.patch)
	mux.HandleFunc("DELETE /tenants/{tenant}/documents/{id...}", api.delete)
	mux.HandleFunc("POST /uploads", api.upload)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, api
}

func key(r *http.Request) string {
	return r.PathValue("tenant") + "/" + r.PathValue("id")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = gojson.NewEncoder(w).Encode(v)
}

func (a *fakeAPI) list(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prefix := r.PathValue("tenant") + "/"
	out := []stored{}
	for k, d := range a.docs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, map[string]any{"documents": out})
}

func (a *fakeAPI) get(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.docs[key(r)]
	if !ok {
		http.Error(w, "no such document", http.StatusNotFound)
		return
	}
	writeJSON(w, d)
}

func (a *fakeAPI) put(w http.ResponseWriter, r *http.Request) {
	var d stored
	if err := gojson.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d.ID = r.PathValue("id")
	a.mu.Lock()
	a.docs[key(r)] = d
	a.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (a *fakeAPI) patch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fields map[string]any `json:"fields"`
	}
	if err := gojson.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.docs[key(r)]
	if !ok {
		http.Error(w, "no such document", http.StatusNotFound)
		return
	}
	for k, v := range body.Fields {
		if v == nil {
			delete(d.Fields, k)
			continue
		}
		d.Fields[k] = v
	}
	a.docs[key(r)] = d
	writeJSON(w, d)
}

func (a *fakeAPI) delete(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.docs[key(r)]; !ok {
		http.Error(w, "no such document", http.StatusNotFound)
		return
	}
	delete(a.docs, key(r))
	w.WriteHeader(http.StatusNoContent)
}

func (a *fakeAPI) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	if len(data) == 0 {
		http.Error(w, "empty file", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{
		"url": "https://cdn.test/" + r.URL.Query().Get("tenant") + "/" + header.Filename,
	})
}

func newClient(t *testing.T, srv *httptest.Server) *remote.Client {
	t.Helper()
	c, err := remote.NewClient(remote.Config{BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	require.NoError(t, err)
	require.NoError(t, c.Initialize(context.Background()))
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := remote.NewClient(remote.Config{})
	assert.Error(t, err)

	_, err = remote.NewClient(remote.Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	_, err = remote.NewClient(remote.Config{BaseURL: "https://example.com/api"})
	assert.NoError(t, err)
}

func TestClient_CRUD(t *testing.T) {
	srv, _ := newFakeAPI(t)
	c := newClient(t, srv)
	acme := core.WithTenant(context.Background(), "acme")

	fields := schema.Document{
		"title": schema.String("Welcome"),
		"menu":  schema.Array{schema.Document{"label": schema.String("Home")}},
		"count": schema.Number(3),
	}
	require.NoError(t, c.Save(acme, core.Document{ID: "home/header", Flavor: "header", Fields: fields}))

	got, err := c.Get(acme, "home/header")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Tenant)
	assert.Equal(t, "header", got.Flavor)
	if diff := cmp.Diff(fields, got.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, c.Save(acme, core.Document{ID: "about", Fields: schema.Document{}}))
	docs, err := c.List(acme)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "about", docs[0].ID)
	assert.Equal(t, "home/header", docs[1].ID)

	// Other tenants see nothing.
	others, err := c.List(core.WithTenant(context.Background(), "globex"))
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, c.Delete(acme, "about"))
	_, err = c.Get(acme, "about")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestClient_NotFound(t *testing.T) {
	srv, _ := newFakeAPI(t)
	c := newClient(t, srv)

	_, err := c.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)

	var se *remote.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, se.Body, "no such document")
	assert.False(t, se.Temporary())

	assert.ErrorIs(t, c.Delete(context.Background(), "missing"), core.ErrNotFound)
}

func TestClient_Patch(t *testing.T) {
	srv, _ := newFakeAPI(t)
	c := newClient(t, srv)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, core.Document{ID: "hero", Flavor: "hero", Fields: schema.Document{
		"title": schema.String("Old"),
		"extra": schema.Bool(true),
	}}))

	got, err := c.Patch(ctx, "hero", schema.Patch{
		"title": schema.String("New"),
		"extra": schema.Delete,
	})
	require.NoError(t, err)
	assert.Equal(t, schema.Document{"title": schema.String("New")}, got.Fields)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c, err := remote.NewClient(remote.Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = c.List(context.Background())
	var se *remote.StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Temporary())
	assert.NotErrorIs(t, err, core.ErrNotFound)

	state := c.State().(remote.ClientState)
	assert.Equal(t, int64(1), state.Requests)
	assert.Equal(t, int64(1), state.Failures)
}

func TestClient_ReadOnly(t *testing.T) {
	srv, _ := newFakeAPI(t)
	c, err := remote.NewClient(remote.Config{BaseURL: srv.URL, HTTPClient: srv.Client(), ReadOnly: true})
	require.NoError(t, err)

	err = c.Save(context.Background(), core.Document{ID: "x"})
	assert.ErrorIs(t, err, core.ErrReadOnly)
	assert.ErrorIs(t, c.Delete(context.Background(), "x"), core.ErrReadOnly)
}

func TestClient_InvalidID(t *testing.T) {
	srv, _ := newFakeAPI(t)
	c := newClient(t, srv)

	_, err := c.Get(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, core.ErrInvalidID)
}

func TestClient_Upload(t *testing.T) {
	srv, _ := newFakeAPI(t)
	c := newClient(t, srv)
	acme := core.WithTenant(context.Background(), "acme")

	url, err := c.Upload(acme, "images/logo.png", strings.NewReader("\x89PNG"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/acme/logo.png", url)

	_, err = c.Upload(acme, "empty.png", strings.NewReader(""))
	var se *remote.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
}

func TestClient_ServiceUpdate(t *testing.T) {
	srv, _ := newFakeAPI(t)
	c := newClient(t, srv)
	svc := core.NewService(c, core.WithUploader(c))
	ctx := core.WithTenant(context.Background(), "acme")

	require.NoError(t, svc.SaveDocument(ctx, core.Document{ID: "hero", Fields: schema.Document{
		"title": schema.String("Old"),
		"body":  schema.String("Keep"),
	}}))

	updated, err := svc.Update(ctx, "hero", schema.Patch{"title": schema.String("New")})
	require.NoError(t, err)
	assert.Equal(t, schema.String("New"), updated.Fields["title"])
	assert.Equal(t, schema.String("Keep"), updated.Fields["body"])

	url, err := svc.Upload(ctx, "a.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/acme/a.jpg", url)
}
