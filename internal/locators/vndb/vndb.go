package vndb

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"kura/internal/candidate"
	"kura/internal/config"
	"kura/internal/language"
	"kura/internal/locators/httpx"
	"kura/internal/logging"
	"kura/internal/scoring"
	"kura/internal/services"
)

// Name is the locator name used in sidecars and configuration.
const Name = "vndb"

const (
	searchResults = 10
	maxTags       = 10
)

var (
	// Two or more digits keep version tokens such as "v2" out.
	codePattern  = regexp.MustCompile(`(?i)(?:^|[^\w.])(v\d{2,})(?:$|[^\w.])`)
	ownedPattern = regexp.MustCompile(`(?i)^v\d+$`)
	bbcode       = regexp.MustCompile(`\[/?[a-zA-Z]+(?:=[^\]]*)?\]`)
)

// Locator queries VNDB.
type Locator struct {
	endpoint string
	weights  config.Scoring
	client   *httpx.Client
	logger   *slog.Logger
}

// New constructs the VNDB locator from cfg. client may be nil.
func New(cfg *config.Config, client *httpx.Client, logger *slog.Logger) *Locator {
	if client == nil {
		header := http.Header{}
		if token := strings.TrimSpace(cfg.Locators.VNDB.Token); token != "" {
			header.Set("Authorization", "Token "+token)
		}
		client = httpx.New(httpx.Options{
			Name:              Name,
			Timeout:           time.Duration(cfg.Locators.RequestTimeout) * time.Second,
			RequestsPerSecond: cfg.Locators.RequestsPerSecond,
			CacheTTL:          time.Duration(cfg.Locators.CacheTTLMinutes) * time.Minute,
			Header:            header,
			Logger:            logger,
		})
	}
	return &Locator{
		endpoint: strings.TrimRight(cfg.Locators.VNDB.BaseURL, "/") + "/vn",
		weights:  cfg.Scoring,
		client:   client,
		logger:   logging.NewComponentLogger(logger, "vndb"),
	}
}

// Name implements candidate.Locator.
func (l *Locator) Name() string { return Name }

// ExtractCode returns an embedded VNDB id such as "v17", lower-cased.
func (l *Locator) ExtractCode(name string) string {
	match := codePattern.FindStringSubmatch(name)
	if match == nil {
		return ""
	}
	return strings.ToLower(match[1])
}

// ShouldUse reports whether canonicalID is a VNDB id.
func (l *Locator) ShouldUse(canonicalID string) bool {
	return ownedPattern.MatchString(strings.TrimSpace(canonicalID))
}

// ScoreCodes applies the shared signals; VNDB has no source-specific ones.
func (l *Locator) ScoreCodes(q candidate.Query) []candidate.Scored {
	q.Locator = Name
	return scoring.Score(l.weights, q)
}

type request struct {
	Filters []any  `json:"filters"`
	Fields  string `json:"fields"`
	Results int    `json:"results,omitempty"`
	Sort    string `json:"sort,omitempty"`
}

type developer struct {
	Name     string `json:"name"`
	Original string `json:"original"`
}

type title struct {
	Lang  string `json:"lang"`
	Title string `json:"title"`
	Main  bool   `json:"main"`
}

type tag struct {
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
	Spoil  int     `json:"spoiler"`
}

type visualNovel struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	AltTitle    string      `json:"alttitle"`
	Titles      []title     `json:"titles"`
	Description string      `json:"description"`
	Released    string      `json:"released"`
	Rating      float64     `json:"rating"`
	Developers  []developer `json:"developers"`
	Tags        []tag       `json:"tags"`
	Image       *struct {
		URL string `json:"url"`
	} `json:"image"`
}

type response struct {
	Results []visualNovel `json:"results"`
	More    bool          `json:"more"`
}

// Search runs a full-text title search.
func (l *Locator) Search(ctx context.Context, term string) ([]candidate.Record, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []candidate.Record{}, nil
	}
	req := request{
		Filters: []any{"search", "=", term},
		Fields:  "id, title, alttitle, developers.name",
		Results: searchResults,
		Sort:    "searchrank",
	}
	var resp response
	if err := l.client.PostJSON(ctx, l.endpoint, req, &resp); err != nil {
		return nil, err
	}
	records := make([]candidate.Record, 0, len(resp.Results))
	for _, vn := range resp.Results {
		id := strings.ToLower(strings.TrimSpace(vn.ID))
		if id == "" {
			continue
		}
		rec := candidate.Record{Code: id, DisplayName: strings.TrimSpace(vn.Title), SourceID: Name}
		if len(vn.Developers) > 0 {
			rec.Maker = strings.TrimSpace(vn.Developers[0].Name)
		}
		records = append(records, rec)
	}
	return records, nil
}

// FetchMetadata loads one visual novel. English data comes from the romanized
// or English title and the description; Japanese from the ja title and the
// developer's original name.
func (l *Locator) FetchMetadata(ctx context.Context, code string) (candidate.Metadata, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	meta := candidate.Metadata{Code: code, Source: Name, ByLanguage: map[string]candidate.Localized{}}
	if !l.ShouldUse(code) {
		return meta, services.Wrap(services.ErrValidation, Name, "fetch metadata", fmt.Sprintf("%q is not a VNDB id", code), nil)
	}
	req := request{
		Filters: []any{"id", "=", code},
		Fields:  "id, title, alttitle, titles.lang, titles.title, titles.main, description, released, rating, image.url, developers.name, developers.original, tags.name, tags.rating, tags.spoiler",
	}
	var resp response
	if err := l.client.PostJSON(ctx, l.endpoint, req, &resp); err != nil {
		return meta, err
	}
	if len(resp.Results) == 0 {
		return meta, services.Wrap(services.ErrNotFound, Name, "fetch metadata", code, nil)
	}
	vn := resp.Results[0]

	tags := topTags(vn.Tags)
	maker, makerOriginal := "", ""
	if len(vn.Developers) > 0 {
		maker = strings.TrimSpace(vn.Developers[0].Name)
		makerOriginal = strings.TrimSpace(vn.Developers[0].Original)
	}

	if name := englishTitle(vn); name != "" {
		meta.ByLanguage[candidate.LangEnglish] = candidate.Localized{
			Name:        name,
			Description: cleanDescription(vn.Description),
			Maker:       maker,
			Tags:        tags,
		}
	}
	if name := titleFor(vn.Titles, language.ISO2(candidate.LangJapanese)); name != "" {
		if makerOriginal == "" {
			makerOriginal = maker
		}
		meta.ByLanguage[candidate.LangJapanese] = candidate.Localized{
			Name:  name,
			Maker: makerOriginal,
			Tags:  tags,
		}
	}
	if released := strings.TrimSpace(vn.Released); released != "" && released != "TBA" {
		meta.ReleaseDate = released
	}
	if vn.Rating > 0 {
		meta.Stars = vn.Rating / 20
	}
	if vn.Image != nil && vn.Image.URL != "" {
		meta.ImageURLs = []string{vn.Image.URL}
	}
	l.logger.Debug("metadata fetched", logging.String(logging.FieldCode, code), logging.Int("languages", len(meta.ByLanguage)))
	return meta, nil
}

func englishTitle(vn visualNovel) string {
	if name := titleFor(vn.Titles, language.ISO2(candidate.LangEnglish)); name != "" {
		return name
	}
	return strings.TrimSpace(vn.Title)
}

func titleFor(titles []title, lang string) string {
	for _, t := range titles {
		if t.Lang == lang && strings.TrimSpace(t.Title) != "" {
			return strings.TrimSpace(t.Title)
		}
	}
	return ""
}

func topTags(tags []tag) []string {
	usable := make([]tag, 0, len(tags))
	for _, t := range tags {
		if t.Spoil == 0 && t.Rating > 0 && strings.TrimSpace(t.Name) != "" {
			usable = append(usable, t)
		}
	}
	sort.SliceStable(usable, func(i, j int) bool { return usable[i].Rating > usable[j].Rating })
	if len(usable) > maxTags {
		usable = usable[:maxTags]
	}
	out := make([]string, 0, len(usable))
	for _, t := range usable {
		out = append(out, strings.TrimSpace(t.Name))
	}
	return out
}

func cleanDescription(desc string) string {
	return strings.TrimSpace(bbcode.ReplaceAllString(desc, ""))
}
