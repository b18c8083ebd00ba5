package moviebox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SubjectType selects which kind of content a query covers
type SubjectType int

const (
	// SubjectTypeAll matches movies and TV series
	SubjectTypeAll SubjectType = 0
	// SubjectTypeMovies matches movies only
	SubjectTypeMovies SubjectType = 1
	// SubjectTypeTVSeries matches TV series only
	SubjectTypeTVSeries SubjectType = 2
)

// String returns the string representation of a SubjectType
func (st SubjectType) String() string {
	switch st {
	case SubjectTypeMovies:
		return "MOVIES"
	case SubjectTypeTVSeries:
		return "TV_SERIES"
	default:
		return "ALL"
	}
}

// ParseSubjectType maps a free-text type onto a SubjectType.
// Matching is case-insensitive and unknown text falls back to SubjectTypeAll.
func ParseSubjectType(s string) SubjectType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie":
		return SubjectTypeMovies
	case "series", "tv":
		return SubjectTypeTVSeries
	default:
		return SubjectTypeAll
	}
}

// Item is a single catalog entry exactly as the upstream returned it
type Item json.RawMessage

// MarshalJSON returns the raw bytes unchanged
func (it Item) MarshalJSON() ([]byte, error) {
	if len(it) == 0 {
		return []byte("null"), nil
	}
	return it, nil
}

// UnmarshalJSON keeps a copy of the raw bytes
func (it *Item) UnmarshalJSON(data []byte) error {
	*it = append((*it)[:0], data...)
	return nil
}

// ItemRef is the part of an item needed to address its detail page
type ItemRef struct {
	SubjectID  string
	DetailPath string
	Title      string
}

// Ref reads the detail page address out of the item
func (it Item) Ref() (ItemRef, error) {
	var raw struct {
		SubjectID  looseString `json:"subjectId"`
		DetailPath string      `json:"detailPath"`
		Title      string      `json:"title"`
	}
	if len(bytes.TrimSpace(it)) == 0 {
		return ItemRef{}, ErrEmptyItem
	}
	if err := json.Unmarshal(it, &raw); err != nil {
		return ItemRef{}, fmt.Errorf("failed to decode item: %w", err)
	}
	ref := ItemRef{
		SubjectID:  string(raw.SubjectID),
		DetailPath: raw.DetailPath,
		Title:      raw.Title,
	}
	if ref.SubjectID == "" || ref.DetailPath == "" {
		return ItemRef{}, ErrEmptyItem
	}
	return ref, nil
}

// looseString accepts either a JSON string or a JSON number
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = looseString(num.String())
	return nil
}

// Pager carries pagination metadata. Fields the upstream omits stay nil.
type Pager struct {
	HasMore *bool `json:"hasMore"`
}

// Content is the result of a single provider fetch. Only the fields belonging
// to the query's kind are populated.
type Content struct {
	Kind Kind

	// Search and trending
	Items []Item
	Pager *Pager

	// Homepage
	Contents      []Item
	OperatingList []Item

	// Popular searches
	Searches []Item

	// Movie and TV series details; nil when the page embeds no state
	Detail json.RawMessage
}

// HasMore reports whether another page exists, defaulting to false when the
// pager or its flag is missing
func (c *Content) HasMore() bool {
	if c == nil || c.Pager == nil || c.Pager.HasMore == nil {
		return false
	}
	return *c.Pager.HasMore
}

// apiResponse is the envelope every MovieBox JSON endpoint wraps its data in
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// listData covers search and trending payloads
type listData struct {
	Pager       *Pager `json:"pager"`
	Items       []Item `json:"items"`
	SubjectList []Item `json:"subjectList"`
}

func (d listData) items() []Item {
	if len(d.Items) == 0 && len(d.SubjectList) > 0 {
		return d.SubjectList
	}
	return d.Items
}

// homeData covers the homepage payload
type homeData struct {
	Contents      []Item `json:"contents"`
	OperatingList []Item `json:"operatingList"`
}

// popularData covers the popular searches payload
type popularData struct {
	EveryoneSearch []Item `json:"everyoneSearch"`
	Searches       []Item `json:"searches"`
}

func (d popularData) searches() []Item {
	if len(d.Searches) == 0 && len(d.EveryoneSearch) > 0 {
		return d.EveryoneSearch
	}
	return d.Searches
}
