package web

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relata/relata/internal/document"
	"github.com/relata/relata/internal/resource"
	"github.com/relata/relata/internal/store"
	"github.com/relata/relata/internal/web/middleware"
)

type recordedEvent struct {
	Event string
	ID    document.Identifier
}

type fakeBroadcaster struct {
	events []recordedEvent
}

func (f *fakeBroadcaster) Broadcast(event string, id document.Identifier) {
	f.events = append(f.events, recordedEvent{Event: event, ID: id})
}

func testRegistry(t *testing.T) *resource.Registry {
	t.Helper()
	r := resource.NewRegistry()

	require.NoError(t, r.Register(&resource.Descriptor{
		Name:       "User",
		PrimaryKey: "id",
		Columns: map[string]resource.ColumnType{
			"id":    resource.ColumnInteger,
			"name":  resource.ColumnString,
			"email": resource.ColumnString,
		},
		Associations: []resource.Association{
			{Kind: resource.HasMany, Target: "Post", ForeignKey: "userId", Alias: "posts"},
			{Kind: resource.HasOne, Target: "Profile", ForeignKey: "userId", Alias: "profile"},
		},
	}))

	require.NoError(t, r.Register(&resource.Descriptor{
		Name:       "Post",
		PrimaryKey: "id",
		Columns: map[string]resource.ColumnType{
			"id":     resource.ColumnInteger,
			"title":  resource.ColumnString,
			"userId": resource.ColumnInteger,
		},
		Associations: []resource.Association{
			{Kind: resource.BelongsTo, Target: "User", ForeignKey: "userId", Alias: "user"},
		},
	}))

	require.NoError(t, r.Register(&resource.Descriptor{
		Name:       "Profile",
		PrimaryKey: "id",
		Columns: map[string]resource.ColumnType{
			"id":     resource.ColumnInteger,
			"bio":    resource.ColumnText,
			"userId": resource.ColumnInteger,
		},
	}))

	return r
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE "users" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"name" TEXT NOT NULL,
			"email" TEXT
		)`,
		`CREATE TABLE "posts" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"title" TEXT NOT NULL,
			"userId" INTEGER
		)`,
		`CREATE TABLE "profiles" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"bio" TEXT,
			"userId" INTEGER
		)`,
	}
	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

type testAPI struct {
	server      *httptest.Server
	db          *sql.DB
	broadcaster *fakeBroadcaster
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	registry := testRegistry(t)
	db := openTestDB(t)
	broadcaster := &fakeBroadcaster{}

	handler := NewHandler(HandlerConfig{
		Registry:    registry,
		Store:       store.NewSQLStore(db, registry, store.SQLiteDialect{}),
		Broadcaster: broadcaster,
	})

	chain := middleware.NewChain(middleware.ContentType())
	srv := httptest.NewServer(chain.Then(NewRouter(handler)))
	t.Cleanup(srv.Close)

	return &testAPI{server: srv, db: db, broadcaster: broadcaster}
}

func (api *testAPI) request(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, api.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", document.MediaType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) == 0 {
		return resp, nil
	}

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	return resp, decoded
}

func (api *testAPI) seed(t *testing.T, query string, args ...any) {
	t.Helper()
	_, err := api.db.Exec(query, args...)
	require.NoError(t, err)
}

func data(t *testing.T, doc map[string]any) map[string]any {
	t.Helper()
	d, ok := doc["data"].(map[string]any)
	require.True(t, ok, "expected single-resource data, got %v", doc["data"])
	return d
}

func TestCreateUser(t *testing.T) {
	api := newTestAPI(t)

	resp, doc := api.request(t, http.MethodPost, "/users",
		`{"data": {"type": "User", "attributes": {"name": "Ada", "email": "ada@example.com"}}}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, document.MediaType, resp.Header.Get("Content-Type"))

	d := data(t, doc)
	assert.Equal(t, "User", d["type"])
	assert.Equal(t, "1", d["id"])

	attrs := d["attributes"].(map[string]any)
	assert.Equal(t, "Ada", attrs["name"])
	assert.NotContains(t, attrs, "id")

	// Relationships are present even on a fresh row
	rels := d["relationships"].(map[string]any)
	assert.Contains(t, rels, "posts")
	assert.Contains(t, rels, "profile")

	links := doc["links"].(map[string]any)
	assert.Equal(t, api.server.URL+"/users/1", links["self"])
	assert.Equal(t, api.server.URL+"/users/1", resp.Header.Get("Location"))

	assert.Equal(t, "1.0", doc["jsonapi"].(map[string]any)["version"])

	require.Len(t, api.broadcaster.events, 1)
	assert.Equal(t, recordedEvent{Event: "create", ID: document.Identifier{Type: "User", ID: "1"}}, api.broadcaster.events[0])
}

func TestGetSingle(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name", "email") VALUES ('Ada', 'ada@example.com')`)
	api.seed(t, `INSERT INTO "posts" ("title", "userId") VALUES ('First', 1), ('Second', 1)`)

	resp, doc := api.request(t, http.MethodGet, "/users/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	d := data(t, doc)
	rels := d["relationships"].(map[string]any)
	posts := rels["posts"].(map[string]any)
	linkage := posts["data"].([]any)
	require.Len(t, linkage, 2)
	assert.Equal(t, map[string]any{"type": "Post", "id": "1"}, linkage[0])
	assert.Equal(t, map[string]any{"type": "Post", "id": "2"}, linkage[1])

	included := doc["included"].([]any)
	require.Len(t, included, 2)
	first := included[0].(map[string]any)
	assert.Equal(t, "Post", first["type"])
	assert.Equal(t, "First", first["attributes"].(map[string]any)["title"])
}

func TestGetSingle_SimpleMode(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)
	api.seed(t, `INSERT INTO "posts" ("title", "userId") VALUES ('First', 1)`)

	resp, doc := api.request(t, http.MethodGet, "/users/1?simple=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	d := data(t, doc)
	assert.NotContains(t, d, "relationships")
	assert.NotContains(t, doc, "included")
	assert.NotContains(t, doc, "links")
}

func TestGetSingle_NotFound(t *testing.T) {
	api := newTestAPI(t)

	resp, doc := api.request(t, http.MethodGet, "/users/999", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	errs := doc["errors"].([]any)
	require.Len(t, errs, 1)
	errObj := errs[0].(map[string]any)
	assert.Equal(t, "404", errObj["status"])
	assert.Equal(t, document.TitleResourceNotFound, errObj["title"])
	assert.NotContains(t, doc, "data")
}

func TestList_WithFilter(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada'), ('Grace'), ('Linus')`)

	resp, doc := api.request(t, http.MethodGet, "/users?filter[name]=Grace", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := doc["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Grace", list[0].(map[string]any)["attributes"].(map[string]any)["name"])
}

func TestList_FilterOperators(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "posts" ("title") VALUES ('go tips'), ('rust tips'), ('go tricks')`)

	resp, doc := api.request(t, http.MethodGet, "/posts?filter[title][like]=go%25", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, doc["data"].([]any), 2)
}

func TestList_PrimaryKeyCommaFilter(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('a'), ('b'), ('c')`)

	resp, doc := api.request(t, http.MethodGet, "/users?filter[id]=1,3", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, doc["data"].([]any), 2)
}

func TestList_EmptyCollection(t *testing.T) {
	api := newTestAPI(t)

	resp, doc := api.request(t, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list, ok := doc["data"].([]any)
	require.True(t, ok, "data must be a list, not null")
	assert.Empty(t, list)
}

func TestUpdateUser(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name", "email") VALUES ('Ada', 'ada@example.com')`)

	resp, doc := api.request(t, http.MethodPatch, "/users/1",
		`{"data": {"type": "User", "attributes": {"name": "Grace"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	attrs := data(t, doc)["attributes"].(map[string]any)
	assert.Equal(t, "Grace", attrs["name"])
	// Untouched attributes keep their value
	assert.Equal(t, "ada@example.com", attrs["email"])
}

func TestUpdate_EmptyStringBecomesNullForIntegerColumns(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)
	api.seed(t, `INSERT INTO "posts" ("title", "userId") VALUES ('First', 1)`)

	resp, doc := api.request(t, http.MethodPatch, "/posts/1",
		`{"data": {"type": "Post", "attributes": {"userId": ""}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rel := data(t, doc)["relationships"].(map[string]any)["userId"].(map[string]any)
	value, present := rel["data"]
	require.True(t, present)
	assert.Nil(t, value)
}

func TestDeleteUser(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)

	resp, body := api.request(t, http.MethodDelete, "/users/1", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Nil(t, body)

	resp, _ = api.request(t, http.MethodGet, "/users/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreate_InvalidBodies(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name    string
		body    string
		pointer string
	}{
		{"not json", `{{{`, ""},
		{"no data", `{"meta": {}}`, "/data"},
		{"null data", `{"data": null}`, "/data"},
		{"no attributes", `{"data": {"type": "User"}}`, "/data/attributes"},
		{"empty attributes", `{"data": {"type": "User", "attributes": {}}}`, "/data/attributes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, doc := api.request(t, http.MethodPost, "/users", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			errObj := doc["errors"].([]any)[0].(map[string]any)
			assert.Equal(t, document.TitleInvalidRequest, errObj["title"])
			if tt.pointer != "" {
				assert.Equal(t, tt.pointer, errObj["source"].(map[string]any)["pointer"])
			}
		})
	}
}

func TestBelongsToLinkageFromForeignKey(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)
	api.seed(t, `INSERT INTO "posts" ("title", "userId") VALUES ('First', 1), ('Orphan', NULL)`)

	_, doc := api.request(t, http.MethodGet, "/posts/1", "")
	rel := data(t, doc)["relationships"].(map[string]any)["userId"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "User", "id": "1"}, rel["data"])

	// The owning user is not auto-included
	assert.NotContains(t, doc, "included")

	_, doc = api.request(t, http.MethodGet, "/posts/2", "")
	rel = data(t, doc)["relationships"].(map[string]any)["userId"].(map[string]any)
	value, present := rel["data"]
	require.True(t, present)
	assert.Nil(t, value)
}

func TestGetRelationship_ToMany(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)
	api.seed(t, `INSERT INTO "posts" ("title", "userId") VALUES ('First', 1), ('Second', 1)`)

	resp, doc := api.request(t, http.MethodGet, "/users/1/relationships/posts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	linkage := doc["data"].([]any)
	require.Len(t, linkage, 2)
	assert.Equal(t, map[string]any{"type": "Post", "id": "1"}, linkage[0])

	links := doc["links"].(map[string]any)
	assert.Equal(t, api.server.URL+"/users/1/relationships/posts", links["self"])
	assert.Equal(t, api.server.URL+"/users/1/posts", links["related"])
}

func TestGetRelationship_Unknown(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)

	resp, doc := api.request(t, http.MethodGet, "/users/1/relationships/followers", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	errObj := doc["errors"].([]any)[0].(map[string]any)
	assert.Equal(t, document.TitleRelationshipNotFound, errObj["title"])
}

func TestUpdateRelationship_ToManyFullReplacement(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)
	api.seed(t, `INSERT INTO "posts" ("title", "userId") VALUES ('one', 1), ('two', 1), ('three', NULL)`)

	body := `{"data": [{"type": "Post", "id": "2"}, {"type": "Post", "id": "3"}]}`
	resp, doc := api.request(t, http.MethodPatch, "/users/1/relationships/posts", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	linkage := doc["data"].([]any)
	require.Len(t, linkage, 2)
	assert.Equal(t, map[string]any{"type": "Post", "id": "2"}, linkage[0])
	assert.Equal(t, map[string]any{"type": "Post", "id": "3"}, linkage[1])

	// Post 1 was unlinked by the replacement
	_, postDoc := api.request(t, http.MethodGet, "/posts/1", "")
	rel := data(t, postDoc)["relationships"].(map[string]any)["userId"].(map[string]any)
	assert.Nil(t, rel["data"])
}

func TestUpdateRelationship_SilentlySkipsMissingTargets(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)
	api.seed(t, `INSERT INTO "posts" ("title", "userId") VALUES ('one', NULL)`)

	body := `{"data": [{"type": "Post", "id": "1"}, {"type": "Post", "id": "999"}]}`
	resp, doc := api.request(t, http.MethodPatch, "/users/1/relationships/posts", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	linkage := doc["data"].([]any)
	require.Len(t, linkage, 1)
	assert.Equal(t, map[string]any{"type": "Post", "id": "1"}, linkage[0])
}

func TestUpdateRelationship_Idempotent(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)
	api.seed(t, `INSERT INTO "posts" ("title", "userId") VALUES ('one', NULL), ('two', NULL)`)

	body := `{"data": [{"type": "Post", "id": "1"}, {"type": "Post", "id": "2"}]}`

	_, first := api.request(t, http.MethodPatch, "/users/1/relationships/posts", body)
	_, second := api.request(t, http.MethodPatch, "/users/1/relationships/posts", body)
	assert.Equal(t, first["data"], second["data"])
}

func TestUpdateRelationship_BelongsTo(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada'), ('Grace')`)
	api.seed(t, `INSERT INTO "posts" ("title", "userId") VALUES ('one', 1)`)

	resp, doc := api.request(t, http.MethodPatch, "/posts/1/relationships/userId",
		`{"data": {"type": "User", "id": "2"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"type": "User", "id": "2"}, doc["data"])

	// data: null clears the link
	resp, doc = api.request(t, http.MethodPatch, "/posts/1/relationships/userId",
		`{"data": null}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	value, present := doc["data"]
	require.True(t, present)
	assert.Nil(t, value)
}

func TestUpdateRelationship_HasOne(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)
	api.seed(t, `INSERT INTO "profiles" ("bio", "userId") VALUES ('first', NULL), ('second', NULL)`)

	// Set
	resp, doc := api.request(t, http.MethodPatch, "/users/1/relationships/profile",
		`{"data": {"type": "Profile", "id": "1"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"type": "Profile", "id": "1"}, doc["data"])

	// Replace: the previous profile is unlinked
	resp, doc = api.request(t, http.MethodPatch, "/users/1/relationships/profile",
		`{"data": {"type": "Profile", "id": "2"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"type": "Profile", "id": "2"}, doc["data"])

	_, userDoc := api.request(t, http.MethodGet, "/users/1", "")
	rel := data(t, userDoc)["relationships"].(map[string]any)["profile"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "Profile", "id": "2"}, rel["data"])

	// Clear
	resp, doc = api.request(t, http.MethodPatch, "/users/1/relationships/profile",
		`{"data": null}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	value, present := doc["data"]
	require.True(t, present)
	assert.Nil(t, value)
}

func TestUpdateRelationship_ShapeMismatch(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)

	resp, doc := api.request(t, http.MethodPatch, "/users/1/relationships/posts",
		`{"data": {"type": "Post", "id": "1"}}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	errObj := doc["errors"].([]any)[0].(map[string]any)
	assert.Equal(t, document.TitleInvalidRequest, errObj["title"])
}

func TestGetRelated_ToMany(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)
	api.seed(t, `INSERT INTO "posts" ("title", "userId") VALUES ('First', 1), ('Second', 1)`)

	resp, doc := api.request(t, http.MethodGet, "/users/1/posts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := doc["data"].([]any)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)
	assert.Equal(t, "Post", first["type"])
	assert.Equal(t, "First", first["attributes"].(map[string]any)["title"])
}

func TestGetRelated_BelongsTo(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, `INSERT INTO "users" ("name") VALUES ('Ada')`)
	api.seed(t, `INSERT INTO "posts" ("title", "userId") VALUES ('First', 1), ('Orphan', NULL)`)

	resp, doc := api.request(t, http.MethodGet, "/posts/1/userId", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := data(t, doc)
	assert.Equal(t, "User", d["type"])
	assert.Equal(t, "Ada", d["attributes"].(map[string]any)["name"])

	resp, doc = api.request(t, http.MethodGet, "/posts/2/userId", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	value, present := doc["data"]
	require.True(t, present)
	assert.Nil(t, value)
}

func TestContentTypeEnforcement(t *testing.T) {
	api := newTestAPI(t)

	// Missing Content-Type on a body request
	req, err := http.NewRequest(http.MethodPost, api.server.URL+"/users",
		strings.NewReader(`{"data": {"type": "User", "attributes": {"name": "x"}}}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Wrong media type
	req, err = http.NewRequest(http.MethodPost, api.server.URL+"/users",
		strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestUnknownPath(t *testing.T) {
	api := newTestAPI(t)

	resp, doc := api.request(t, http.MethodGet, "/widgets", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, doc, "errors")
}
