package moviebox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// stateSelectors are tried in order; the first non-empty match wins
var stateSelectors = []string{
	`script#__NUXT_DATA__`,
	`script#__NEXT_DATA__`,
	`script[type="application/json"]`,
}

// ExtractDetail pulls the JSON state a detail page embeds for hydration.
// A page without embedded state yields a nil record and no error.
func ExtractDetail(html []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(html)) == 0 {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	for _, sel := range stateSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if !json.Valid([]byte(text)) {
			return nil, fmt.Errorf("%w (%s)", ErrMalformedDetail, sel)
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(text)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDetail, err)
		}
		return json.RawMessage(buf.Bytes()), nil
	}

	return nil, nil
}
