package fetcher

import (
	"bytes"
	"context"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/monument-cli/internal/model"
	"github.com/sells-group/monument-cli/internal/resolve"
)

// EncyclopediaOptions configures the encyclopedia lookup.
type EncyclopediaOptions struct {
	// BaseURL is the wiki root, e.g. https://en.wikipedia.org.
	BaseURL string
	// QuerySuffix is appended to every search to disambiguate, e.g. " France".
	QuerySuffix string
	// MaxCategories caps how many page categories are kept.
	MaxCategories int
	// MinParagraphRunes skips short lead paragraphs (coordinates, hatnotes).
	MinParagraphRunes int
}

// EncyclopediaFetcher resolves a monument name to an encyclopedia article
// through the wiki's "go" search, which jumps straight to an article when
// one matches and otherwise lists results.
type EncyclopediaFetcher struct {
	client *HTTPClient
	opts   EncyclopediaOptions
}

// NewEncyclopediaFetcher creates an EncyclopediaFetcher.
func NewEncyclopediaFetcher(client *HTTPClient, opts EncyclopediaOptions) *EncyclopediaFetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://en.wikipedia.org"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.MaxCategories <= 0 {
		opts.MaxCategories = 5
	}
	if opts.MinParagraphRunes <= 0 {
		opts.MinParagraphRunes = 60
	}
	return &EncyclopediaFetcher{client: client, opts: opts}
}

// Source implements Fetcher.
func (f *EncyclopediaFetcher) Source() model.Source { return model.SourceEncyclopedia }

// FetchCandidates implements Fetcher. It returns at most one candidate: the
// article the search resolved to. The location hint is not used by the
// search. The candidate is flagged as redirected when the article title
// differs from the query.
func (f *EncyclopediaFetcher) FetchCandidates(ctx context.Context, query string, _ *model.Coordinates) ([]model.CandidateRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	searchURL := f.opts.BaseURL + "/w/index.php?" + url.Values{
		"search": {query + f.opts.QuerySuffix},
		"title":  {"Special:Search"},
		"go":     {"Go"},
	}.Encode()

	page, err := f.client.Get(ctx, searchURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: encyclopedia search %q", query)
	}
	if page == nil {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse search page")
	}

	articleURL := page.URL
	if isSearchResults(doc) {
		href, ok := doc.Find(".mw-search-results li .mw-search-result-heading a, .mw-search-results li a").First().Attr("href")
		if !ok {
			return nil, nil
		}
		articleURL = f.resolve(page.URL, href)
		if page, err = f.client.Get(ctx, articleURL); err != nil {
			return nil, eris.Wrapf(err, "fetcher: encyclopedia article %q", query)
		}
		if page == nil {
			return nil, nil
		}
		if doc, err = goquery.NewDocumentFromReader(bytes.NewReader(page.Body)); err != nil {
			return nil, eris.Wrap(err, "fetcher: parse article")
		}
		articleURL = page.URL
	}

	cand := f.parseArticle(doc, articleURL)
	cand.Query = query
	cand.Redirected = isRedirect(doc, query, cand.Name)
	return []model.CandidateRecord{cand}, nil
}

func (f *EncyclopediaFetcher) resolve(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return f.opts.BaseURL + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return f.opts.BaseURL + href
	}
	return base.ResolveReference(ref).String()
}

func (f *EncyclopediaFetcher) parseArticle(doc *goquery.Document, articleURL string) model.CandidateRecord {
	cand := model.CandidateRecord{
		Source:   model.SourceEncyclopedia,
		SourceID: articleID(articleURL),
		Name:     strings.TrimSpace(doc.Find("h1#firstHeading").First().Text()),
		URL:      articleURL,
	}
	if cand.Name == "" {
		cand.Name = strings.ReplaceAll(cand.SourceID, "_", " ")
	}

	doc.Find("#mw-content-text .mw-parser-output > p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		txt := cleanText(p.Text())
		if len([]rune(txt)) > f.opts.MinParagraphRunes {
			cand.Description = txt
			return false
		}
		return true
	})

	var cats []string
	doc.Find("#mw-normal-catlinks ul li a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		cats = append(cats, strings.TrimSpace(a.Text()))
		return len(cats) < f.opts.MaxCategories
	})
	cand.Category = strings.Join(cats, ", ")

	cand.Coordinates = parseCoordinates(doc)
	return cand
}

// parseCoordinates reads the kartographer map link in the title coordinates.
func parseCoordinates(doc *goquery.Document) *model.Coordinates {
	link := doc.Find("span#coordinates a.mw-kartographer-maplink").First()
	latS, okLat := link.Attr("data-lat")
	lonS, okLon := link.Attr("data-lon")
	if !okLat || !okLon {
		return nil
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(lonS), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &model.Coordinates{Lat: lat, Lon: lon}
}

func isSearchResults(doc *goquery.Document) bool {
	if doc.Find(".mw-search-results").Length() > 0 {
		return true
	}
	return strings.Contains(strings.ToLower(doc.Find("title").Text()), "search results")
}

// isRedirect reports whether the article is not the one the query named:
// the wiki says so explicitly, or the titles disagree after normalization.
func isRedirect(doc *goquery.Document, query, title string) bool {
	if doc.Find("span.mw-redirectedfrom").Length() > 0 {
		return true
	}
	return resolve.Normalize(query) != resolve.Normalize(title)
}

func articleID(articleURL string) string {
	u, err := url.Parse(articleURL)
	if err != nil {
		return articleURL
	}
	if t := u.Query().Get("title"); t != "" {
		return t
	}
	id, err := url.PathUnescape(path.Base(u.Path))
	if err != nil {
		return path.Base(u.Path)
	}
	return id
}

var citationRe = regexp.MustCompile(`\[[^\]]*\]`)

// cleanText drops citation markers and folds newlines.
func cleanText(s string) string {
	s = citationRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\n", ", ")
	return strings.TrimSpace(s)
}
