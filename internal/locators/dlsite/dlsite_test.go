package dlsite

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"kura/internal/candidate"
	"kura/internal/config"
	"kura/internal/logging"
	"kura/internal/services"
	"kura/internal/testsupport"
)

const testBaseURL = "https://dlsite.test"

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func newTestLocator(t *testing.T) (*Locator, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Locators.DLsite.BaseURL = testBaseURL
	cfg.Locators.RequestsPerSecond = 0
	return New(cfg, nil, logging.NewNop()), cfg
}

func TestExtractCode(t *testing.T) {
	loc, _ := newTestLocator(t)
	tests := []struct {
		name string
		want string
	}{
		{name: "Amazing Game [Maker] (RJ123456)", want: "RJ123456"},
		{name: "rj01234567 lowercase", want: "RJ01234567"},
		{name: "[VJ012345] brand title", want: "VJ012345"},
		{name: "English release RE234567", want: "RE234567"},
		{name: "XRJ123456 glued", want: ""},
		{name: "RJ12345 too short", want: ""},
		{name: "no code at all", want: ""},
	}
	for _, tt := range tests {
		if got := loc.ExtractCode(tt.name); got != tt.want {
			t.Errorf("ExtractCode(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestShouldUse(t *testing.T) {
	loc, _ := newTestLocator(t)
	for _, id := range []string{"RJ123456", "rj01234567", "BJ999999"} {
		if !loc.ShouldUse(id) {
			t.Errorf("ShouldUse(%q) = false", id)
		}
	}
	for _, id := range []string{"v17", "RJ123456 extra", "", "AB123456"} {
		if loc.ShouldUse(id) {
			t.Errorf("ShouldUse(%q) = true", id)
		}
	}
}

func TestSearchParsesSuggestResponse(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/suggest/",
		func(req *http.Request) (*http.Response, error) {
			if got := req.URL.Query().Get("term"); got != "Amazing Game" {
				t.Errorf("term = %q", got)
			}
			if got := req.URL.Query().Get("site"); got != "maniax" {
				t.Errorf("site = %q", got)
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"work":[
				{"work_name":"Amazing Game","workno":"rj123456","maker_name":"Maker","maker_id":"RG1"},
				{"work_name":"Amazing Game 2","workno":"RJ234567","maker_name":"Other"},
				{"work_name":"broken","workno":""}
			],"maker":[]}`), nil
		})

	loc, _ := newTestLocator(t)
	records, err := loc.Search(context.Background(), "Amazing Game")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []candidate.Record{
		{Code: "RJ123456", DisplayName: "Amazing Game", SourceID: Name, Maker: "Maker"},
		{Code: "RJ234567", DisplayName: "Amazing Game 2", SourceID: Name, Maker: "Other"},
	}
	if len(records) != len(want) {
		t.Fatalf("records = %+v", records)
	}
	for i := range want {
		if records[i] != want[i] {
			t.Fatalf("record %d = %+v, want %+v", i, records[i], want[i])
		}
	}
}

func TestSearchServerErrorIsTransient(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/suggest/",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"))

	loc, _ := newTestLocator(t)
	_, err := loc.Search(context.Background(), "anything")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestScoreCodesAddsMakerMatch(t *testing.T) {
	loc, cfg := newTestLocator(t)
	base := candidate.Query{
		Found:         []candidate.Record{{Code: "RJ123456", DisplayName: "Amazing Game", SourceID: Name, Maker: "Circle Foo"}},
		ExtractedCode: "RJ123456",
		OriginalName:  "Amazing Game",
		RawName:       "Amazing Game [Circle Foo] (RJ123456)",
	}
	withMaker := loc.ScoreCodes(base)

	noMaker := base
	noMaker.RawName = "Amazing Game (RJ123456)"
	without := loc.ScoreCodes(noMaker)

	if len(withMaker) != 1 || len(without) != 1 {
		t.Fatalf("unexpected results %+v / %+v", withMaker, without)
	}
	if diff := withMaker[0].Score - without[0].Score; diff != cfg.Scoring.MakerMatch {
		t.Fatalf("maker signal added %v, want %v", diff, cfg.Scoring.MakerMatch)
	}
	if withMaker[0].Score < cfg.Decision.AcceptThreshold {
		t.Fatalf("corroborated code scored %v, below accept threshold %v", withMaker[0].Score, cfg.Decision.AcceptThreshold)
	}
}

func TestFetchMetadataSkipsMissingLocales(t *testing.T) {
	setupHTTPMock(t)
	endpoint := testBaseURL + "/maniax/product/info/ajax"
	httpmock.RegisterResponderWithQuery(http.MethodGet, endpoint, "locale=ja_JP&product_id=RJ123456",
		httpmock.NewStringResponder(http.StatusOK, `{"RJ123456":{
			"work_name":"すごいゲーム","maker_name":"メーカー","regist_date":"2020-01-02 00:00:00",
			"age_category":3,"rate_average_star":45,"work_image":"//img.dlsite.test/main.jpg",
			"intro_s":"<p>Hello<br>World</p>","genres":[{"name":"RPG"},{"name":" "}]}}`))
	httpmock.RegisterResponderWithQuery(http.MethodGet, endpoint, "locale=en_US&product_id=RJ123456",
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	loc, _ := newTestLocator(t)
	meta, err := loc.FetchMetadata(context.Background(), "rj123456")
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if _, ok := meta.ByLanguage[candidate.LangEnglish]; ok {
		t.Fatal("english metadata should be absent")
	}
	jp, ok := meta.ByLanguage[candidate.LangJapanese]
	if !ok {
		t.Fatal("japanese metadata missing")
	}
	if jp.Name != "すごいゲーム" || jp.Maker != "メーカー" {
		t.Fatalf("unexpected localized data %+v", jp)
	}
	if len(jp.Genres) != 1 || jp.Genres[0] != "RPG" {
		t.Fatalf("genres = %v", jp.Genres)
	}
	if !strings.Contains(jp.Description, "Hello") || strings.Contains(jp.Description, "<p>") {
		t.Fatalf("description not converted: %q", jp.Description)
	}
	if meta.ReleaseDate != "2020-01-02" || meta.Rating != "R-18" || meta.Stars != 4.5 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if len(meta.ImageURLs) != 1 || meta.ImageURLs[0] != "https://img.dlsite.test/main.jpg" {
		t.Fatalf("image urls = %v", meta.ImageURLs)
	}
}

func TestFetchMetadataUnknownCode(t *testing.T) {
	setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/maniax/product/info/ajax",
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	loc, _ := newTestLocator(t)
	_, err := loc.FetchMetadata(context.Background(), "RJ000001")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFetchMetadataRejectsForeignCode(t *testing.T) {
	loc, _ := newTestLocator(t)
	_, err := loc.FetchMetadata(context.Background(), "v17")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
