package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/starford/orgagenda/internal/agendaservice"
	"github.com/starford/orgagenda/internal/index"
	"github.com/starford/orgagenda/internal/org"
	"github.com/starford/orgagenda/internal/testutil"
)

var buildTime = time.Date(2023, 6, 14, 8, 0, 0, 0, time.UTC)

var vault = map[string]string{
	"work.org":      "* TODO Call Bob\n2023-06-14 Wed 09:30\n\n* Release 2023-07-03 Mon\n",
	"home/plan.org": "* Dentist 2023-06-01 Thu 16:00\n* Someday\n",
}

// testEnv sets up a temp vault, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	return testEnvWithFiles(t, authToken, vault)
}

func testEnvWithFiles(t *testing.T, authToken string, files map[string]string) http.Handler {
	t.Helper()
	_, store := testutil.TestVault(t, files)
	db := testutil.TestDB(t)
	logger := testutil.Logger()

	builder := org.NewBuilder(
		org.WithClock(org.ClockFunc(func() time.Time { return buildTime })),
		org.WithLogger(logger),
	)
	svc := agendaservice.NewService(store, db, builder, time.UTC, logger)
	if _, err := index.Sync(db, store, svc.ParseDocument, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	return NewRouter(svc, authToken != "", authToken, nil)
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAgenda_Text(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/agenda")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type = %q", ct)
	}
	if w.Header().Get("X-Agenda-Id") == "" {
		t.Fatal("missing X-Agenda-Id")
	}

	want := org.Header +
		"plan.org:1: 2023-06-01 16:00 => Dentist 2023-06-01 Thu 16:00\n\n" +
		"now => 2023-06-14 08:00" + strings.Repeat("-", 80) + "\n" +
		"work.org:1: => TODO Call Bob\n2023-06-14 Wed 09:30\n\n" +
		"work.org:4: 2023-07-03 => Release 2023-07-03 Mon\n\n"
	if got := w.Body.String(); got != want {
		t.Fatalf("agenda =\n%q\nwant\n%q", got, want)
	}
}

func TestAgenda_VaultSourceMatchesIndex(t *testing.T) {
	router := testEnv(t, "")

	fromIndex := get(t, router, "/agenda").Body.String()
	fromVault := get(t, router, "/agenda?source=vault").Body.String()
	if fromIndex != fromVault {
		t.Fatalf("index agenda %q != vault agenda %q", fromIndex, fromVault)
	}
}

func TestAgenda_JSON(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/agenda?format=json")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID     string   `json:"id"`
		Header string   `json:"header"`
		Lines  []string `json:"lines"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID != w.Header().Get("X-Agenda-Id") {
		t.Fatalf("id = %q, header = %q", resp.ID, w.Header().Get("X-Agenda-Id"))
	}
	if resp.Header != org.Header {
		t.Fatalf("header = %q", resp.Header)
	}
	if len(resp.Lines) != 4 {
		t.Fatalf("lines = %d, want 4", len(resp.Lines))
	}
}

func TestAgenda_MalformedSkipped(t *testing.T) {
	router := testEnvWithFiles(t, "", map[string]string{
		"bad.org": "* broken 2023-02-30 Thu\n* fine 2023-06-12 Mon\n",
	})

	w := get(t, router, "/agenda")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "broken") {
		t.Fatalf("malformed entry rendered: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "bad.org:2: => fine") {
		t.Fatalf("valid entry missing: %s", w.Body.String())
	}
}

func TestEntries_Range(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/entries?from=2023-06-10&to=2023-06-30")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp EntryListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 || resp.Entries[0].Path != "work.org" {
		t.Fatalf("entries = %+v", resp.Entries)
	}
}

func TestEntries_All(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/entries")
	var resp EntryListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("total = %d, want 3", resp.Total)
	}
}

func TestEntries_BadParams(t *testing.T) {
	router := testEnv(t, "")

	for _, target := range []string{
		"/entries?from=yesterday",
		"/entries?to=2023-13-01",
		"/entries?from=2023-06-30&to=2023-06-01",
	} {
		if w := get(t, router, target); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestSearch(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/search?q=dentist")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp EntryListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 || resp.Entries[0].Path != "home/plan.org" {
		t.Fatalf("results = %+v", resp.Entries)
	}

	if w := get(t, router, "/search"); w.Code != http.StatusBadRequest {
		t.Fatalf("empty query status = %d, want 400", w.Code)
	}
}

func TestDocuments(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/documents")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp DocumentListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(resp.Documents))
	}
	if resp.Documents[0].Path != "home/plan.org" || resp.Documents[1].Path != "work.org" {
		t.Fatalf("order = %s, %s", resp.Documents[0].Path, resp.Documents[1].Path)
	}
}

func TestDocument_Read(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/documents/home/plan.org")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Body.String() != vault["home/plan.org"] {
		t.Fatalf("body = %q", w.Body.String())
	}

	// Encoded slash.
	w = get(t, router, "/documents/home%2Fplan.org")
	if w.Code != http.StatusOK {
		t.Fatalf("encoded status = %d", w.Code)
	}

	if w := get(t, router, "/documents/missing.org"); w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", w.Code)
	}
}

func TestJump(t *testing.T) {
	router := testEnv(t, "")

	line := url.QueryEscape("work.org:4: 2023-07-03 => Release 2023-07-03 Mon")
	w := get(t, router, "/jump?line="+line)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp JumpResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Path != "work.org" || resp.Line != 4 {
		t.Fatalf("target = %+v", resp)
	}

	nowLine := url.QueryEscape("now => 2023-06-14 08:00")
	if w := get(t, router, "/jump?line="+nowLine); w.Code != http.StatusBadRequest {
		t.Fatalf("now line status = %d, want 400", w.Code)
	}
	missing := url.QueryEscape("gone.org:1: => x")
	if w := get(t, router, "/jump?line="+missing); w.Code != http.StatusNotFound {
		t.Fatalf("missing file status = %d, want 404", w.Code)
	}
}

func TestAuth_TokenMode(t *testing.T) {
	router := testEnv(t, "secret")

	if w := get(t, router, "/agenda"); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/agenda", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/agenda", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token status = %d", w.Code)
	}
}

func TestAgenda_JSONReportsSkipped(t *testing.T) {
	router := testEnvWithFiles(t, "", map[string]string{
		"bad.org": "* broken 2023-02-30 Thu\n* fine 2023-06-12 Mon\n",
	})

	for _, target := range []string{"/agenda?format=json", "/agenda?format=json&source=vault"} {
		w := get(t, router, target)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body = %s", target, w.Code, w.Body.String())
		}
		var resp struct {
			Skipped []struct {
				Origin struct {
					File string `json:"file"`
					Line int    `json:"line"`
				} `json:"origin"`
				Reason string `json:"reason"`
			} `json:"skipped"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(resp.Skipped) != 1 || resp.Skipped[0].Origin.File != "bad.org" || resp.Skipped[0].Reason == "" {
			t.Errorf("%s: skipped = %+v", target, resp.Skipped)
		}
	}
}
