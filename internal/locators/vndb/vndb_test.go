package vndb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"kura/internal/candidate"
	"kura/internal/logging"
	"kura/internal/services"
	"kura/internal/testsupport"
)

type capturedRequest struct {
	Filters []any  `json:"filters"`
	Fields  string `json:"fields"`
}

func newServer(t *testing.T, handle func(req capturedRequest) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/vn" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token abc" {
			t.Errorf("Authorization = %q", got)
		}
		var req capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(handle(req)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestLocator(t *testing.T, baseURL string) *Locator {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Locators.VNDB.BaseURL = baseURL
	cfg.Locators.VNDB.Token = "abc"
	cfg.Locators.RequestsPerSecond = 0
	return New(cfg, nil, logging.NewNop())
}

func TestExtractCode(t *testing.T) {
	loc := newTestLocator(t, "http://unused")
	tests := map[string]string{
		"Ever17 (v17)":          "v17",
		"[V2002] Some Title":    "v2002",
		"Game v2":               "",
		"Game v1.20":            "",
		"Game v10.2 patch":      "",
		"nothing here":          "",
		"v123 at the beginning": "v123",
	}
	for name, want := range tests {
		if got := loc.ExtractCode(name); got != want {
			t.Errorf("ExtractCode(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestShouldUse(t *testing.T) {
	loc := newTestLocator(t, "http://unused")
	if !loc.ShouldUse("v17") || !loc.ShouldUse("V2002") {
		t.Fatal("expected vndb ids to be owned")
	}
	if loc.ShouldUse("RJ123456") || loc.ShouldUse("v") {
		t.Fatal("foreign ids must not be owned")
	}
}

func TestSearch(t *testing.T) {
	srv := newServer(t, func(req capturedRequest) string {
		if diff := cmp.Diff([]any{"search", "=", "ever17"}, req.Filters); diff != "" {
			t.Errorf("filters (-want +got):\n%s", diff)
		}
		return `{"results":[
			{"id":"v17","title":"Ever17 -the out of infinity-","developers":[{"name":"KID"}]},
			{"id":"","title":"ignored"}
		],"more":false}`
	})

	records, err := newTestLocator(t, srv.URL).Search(context.Background(), "ever17")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []candidate.Record{{Code: "v17", DisplayName: "Ever17 -the out of infinity-", SourceID: Name, Maker: "KID"}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records (-want +got):\n%s", diff)
	}
}

func TestFetchMetadata(t *testing.T) {
	srv := newServer(t, func(req capturedRequest) string {
		if diff := cmp.Diff([]any{"id", "=", "v17"}, req.Filters); diff != "" {
			t.Errorf("filters (-want +got):\n%s", diff)
		}
		return `{"results":[{
			"id":"v17","title":"Ever17 -the out of infinity-",
			"titles":[{"lang":"ja","title":"Ever17 -the out of infinity-（日本語）"},{"lang":"en","title":"Ever17"}],
			"description":"A [url=https://example.test]great[/url] game.",
			"released":"2002-08-29","rating":86,
			"image":{"url":"https://img.test/cv/1.jpg"},
			"developers":[{"name":"KID","original":"キッド"}],
			"tags":[{"name":"Mystery","rating":2.5,"spoiler":0},{"name":"Twist","rating":3,"spoiler":2},{"name":"Sci-fi","rating":2.9,"spoiler":0}]
		}],"more":false}`
	})

	meta, err := newTestLocator(t, srv.URL).FetchMetadata(context.Background(), "V17")
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	want := candidate.Metadata{
		Code:   "v17",
		Source: Name,
		ByLanguage: map[string]candidate.Localized{
			candidate.LangEnglish: {
				Name:        "Ever17",
				Description: "A great game.",
				Maker:       "KID",
				Tags:        []string{"Sci-fi", "Mystery"},
			},
			candidate.LangJapanese: {
				Name:  "Ever17 -the out of infinity-（日本語）",
				Maker: "キッド",
				Tags:  []string{"Sci-fi", "Mystery"},
			},
		},
		ImageURLs:   []string{"https://img.test/cv/1.jpg"},
		ReleaseDate: "2002-08-29",
		Stars:       4.3,
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Fatalf("metadata (-want +got):\n%s", diff)
	}
}

func TestFetchMetadataNotFound(t *testing.T) {
	srv := newServer(t, func(capturedRequest) string {
		return `{"results":[],"more":false}`
	})
	_, err := newTestLocator(t, srv.URL).FetchMetadata(context.Background(), "v999999")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
