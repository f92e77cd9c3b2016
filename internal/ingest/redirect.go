package ingest

import (
	"bufio"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/monument-cli/internal/model"
)

// ParseRedirectLog reads "query -> resolved title" lines and returns the
// resolved title per query. Lines without an arrow are ignored.
func ParseRedirectLog(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		query, title, ok := strings.Cut(sc.Text(), "->")
		if !ok {
			continue
		}
		query = strings.TrimSpace(query)
		if query == "" {
			continue
		}
		out[query] = strings.TrimSpace(title)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: read redirect log")
	}
	return out, nil
}

// LoadRedirectLog parses the redirect log at path.
func LoadRedirectLog(path string) (map[string]string, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return ParseRedirectLog(f)
}

// ApplyRedirects flags encyclopedia candidates whose lookup query appears
// in the redirect log. A candidate without a recorded query is looked up by
// the name of the base record it was fetched for. Returns the number of
// candidates flagged.
func ApplyRedirects(cands []model.CandidateRecord, redirects map[string]string, baseNames map[string]string) int {
	n := 0
	for i := range cands {
		c := &cands[i]
		if c.Source != model.SourceEncyclopedia {
			continue
		}
		query := c.Query
		if query == "" {
			query = baseNames[c.BaseID]
		}
		if _, ok := redirects[query]; ok && query != "" {
			c.Redirected = true
			c.Query = query
			n++
		}
	}
	return n
}
