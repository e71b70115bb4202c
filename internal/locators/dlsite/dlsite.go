package dlsite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/k3a/html2text"

	"kura/internal/candidate"
	"kura/internal/config"
	"kura/internal/locators/httpx"
	"kura/internal/logging"
	"kura/internal/scoring"
	"kura/internal/services"
	"kura/internal/textutil"
)

// Name is the locator name used in sidecars and configuration.
const Name = "dlsite"

var (
	codePattern  = regexp.MustCompile(`(?i)\b((?:RJ|RE|VJ|BJ)\d{6,8})\b`)
	ownedPattern = regexp.MustCompile(`(?i)^(?:RJ|RE|VJ|BJ)\d{6,8}$`)
)

// Locator queries DLsite.
type Locator struct {
	baseURL string
	site    string
	weights config.Scoring
	client  *httpx.Client
	logger  *slog.Logger
}

// New constructs the DLsite locator from cfg. client may be nil.
func New(cfg *config.Config, client *httpx.Client, logger *slog.Logger) *Locator {
	if client == nil {
		client = httpx.New(httpx.Options{
			Name:              Name,
			Timeout:           time.Duration(cfg.Locators.RequestTimeout) * time.Second,
			RequestsPerSecond: cfg.Locators.RequestsPerSecond,
			CacheTTL:          time.Duration(cfg.Locators.CacheTTLMinutes) * time.Minute,
			Logger:            logger,
		})
	}
	return &Locator{
		baseURL: strings.TrimRight(cfg.Locators.DLsite.BaseURL, "/"),
		site:    cfg.Locators.DLsite.Site,
		weights: cfg.Scoring,
		client:  client,
		logger:  logging.NewComponentLogger(logger, "dlsite"),
	}
}

// Name implements candidate.Locator.
func (l *Locator) Name() string { return Name }

// ExtractCode returns the first DLsite code in name, upper-cased.
func (l *Locator) ExtractCode(name string) string {
	match := codePattern.FindStringSubmatch(name)
	if match == nil {
		return ""
	}
	return strings.ToUpper(match[1])
}

// ShouldUse reports whether canonicalID is a DLsite code.
func (l *Locator) ShouldUse(canonicalID string) bool {
	return ownedPattern.MatchString(strings.TrimSpace(canonicalID))
}

type suggestResponse struct {
	Work []struct {
		WorkName  string `json:"work_name"`
		WorkNo    string `json:"workno"`
		MakerName string `json:"maker_name"`
		MakerID   string `json:"maker_id"`
	} `json:"work"`
}

// Search asks the suggest endpoint for works matching term.
func (l *Locator) Search(ctx context.Context, term string) ([]candidate.Record, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []candidate.Record{}, nil
	}
	query := url.Values{}
	query.Set("term", term)
	query.Set("site", l.site)
	query.Set("touch", "0")
	endpoint := l.baseURL + "/suggest/?" + query.Encode()

	var resp suggestResponse
	if err := l.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	records := make([]candidate.Record, 0, len(resp.Work))
	for _, work := range resp.Work {
		code := strings.ToUpper(strings.TrimSpace(work.WorkNo))
		if code == "" {
			continue
		}
		records = append(records, candidate.Record{
			Code:        code,
			DisplayName: strings.TrimSpace(work.WorkName),
			SourceID:    Name,
			Maker:       strings.TrimSpace(work.MakerName),
		})
	}
	return records, nil
}

// ScoreCodes scores with the shared signals plus a maker match against the
// raw directory name, where circle tags usually survive.
func (l *Locator) ScoreCodes(q candidate.Query) []candidate.Scored {
	q.Locator = Name
	return scoring.Score(l.weights, q, l.makerSignal)
}

func (l *Locator) makerSignal(q candidate.Query, rec candidate.Record) float64 {
	maker := textutil.Fold(rec.Maker)
	if maker == "" {
		return 0
	}
	if strings.Contains(textutil.Fold(q.RawName), maker) {
		return l.weights.MakerMatch
	}
	return 0
}

type productInfo struct {
	WorkName        string  `json:"work_name"`
	MakerName       string  `json:"maker_name"`
	RegistDate      string  `json:"regist_date"`
	AgeCategory     int     `json:"age_category"`
	RateAverageStar float64 `json:"rate_average_star"`
	WorkImage       string  `json:"work_image"`
	Intro           string  `json:"intro_s"`
	Genres          []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

var locales = []struct {
	lang   string
	locale string
}{
	{lang: candidate.LangJapanese, locale: "ja_JP"},
	{lang: candidate.LangEnglish, locale: "en_US"},
}

// FetchMetadata loads the product info for code in every locale DLsite
// offers. Languages the work is not published in are left out; a code unknown
// in every locale fails with services.ErrNotFound.
func (l *Locator) FetchMetadata(ctx context.Context, code string) (candidate.Metadata, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	meta := candidate.Metadata{Code: code, Source: Name, ByLanguage: map[string]candidate.Localized{}}
	if !l.ShouldUse(code) {
		return meta, services.Wrap(services.ErrValidation, Name, "fetch metadata", fmt.Sprintf("%q is not a DLsite code", code), nil)
	}

	for _, loc := range locales {
		info, found, err := l.productInfo(ctx, code, loc.locale)
		if err != nil {
			return meta, err
		}
		if !found {
			l.logger.Debug("work not published in locale", logging.String(logging.FieldCode, code), logging.String("locale", loc.locale))
			continue
		}
		meta.ByLanguage[loc.lang] = localizedFrom(info)
		if meta.ReleaseDate == "" {
			meta.ReleaseDate = releaseDate(info.RegistDate)
		}
		if meta.Rating == "" {
			meta.Rating = ageRating(info.AgeCategory)
		}
		if meta.Stars == 0 && info.RateAverageStar > 0 {
			meta.Stars = info.RateAverageStar / 10
		}
		if len(meta.ImageURLs) == 0 && info.WorkImage != "" {
			meta.ImageURLs = []string{absoluteURL(info.WorkImage)}
		}
	}
	if len(meta.ByLanguage) == 0 {
		return meta, services.Wrap(services.ErrNotFound, Name, "fetch metadata", code, nil)
	}
	return meta, nil
}

func (l *Locator) productInfo(ctx context.Context, code, locale string) (productInfo, bool, error) {
	query := url.Values{}
	query.Set("product_id", code)
	query.Set("locale", locale)
	endpoint := fmt.Sprintf("%s/%s/product/info/ajax?%s", l.baseURL, l.site, query.Encode())

	body, err := l.client.Raw(ctx, endpoint)
	if err != nil {
		return productInfo{}, false, err
	}
	// Unknown products come back as an empty JSON array.
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("[]")) {
		return productInfo{}, false, nil
	}
	var payload map[string]productInfo
	if err := json.Unmarshal(body, &payload); err != nil {
		return productInfo{}, false, services.Wrap(services.ErrTransient, Name, "decode product info", code, err)
	}
	info, ok := payload[code]
	if !ok || strings.TrimSpace(info.WorkName) == "" {
		return productInfo{}, false, nil
	}
	return info, true, nil
}

func localizedFrom(info productInfo) candidate.Localized {
	out := candidate.Localized{
		Name:  strings.TrimSpace(info.WorkName),
		Maker: strings.TrimSpace(info.MakerName),
	}
	if info.Intro != "" {
		out.Description = strings.TrimSpace(html2text.HTML2Text(info.Intro))
	}
	for _, genre := range info.Genres {
		if name := strings.TrimSpace(genre.Name); name != "" {
			out.Genres = append(out.Genres, name)
		}
	}
	return out
}

func releaseDate(regist string) string {
	regist = strings.TrimSpace(regist)
	if t, err := time.Parse(time.DateTime, regist); err == nil {
		return t.Format(time.DateOnly)
	}
	if len(regist) >= len(time.DateOnly) {
		return regist[:len(time.DateOnly)]
	}
	return regist
}

func ageRating(category int) string {
	switch category {
	case 1:
		return "All Ages"
	case 2:
		return "R-15"
	case 3:
		return "R-18"
	default:
		return ""
	}
}

func absoluteURL(ref string) string {
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	return ref
}
