package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// DefaultCollectionID addresses the user's unnamed feed. It is served by a
// different query shape than named projects.
const DefaultCollectionID = "default"

// maxSafeNameLength bounds sanitized names used in file and sheet names
const maxSafeNameLength = 60

// ProjectsResponse is the body of the collection enumeration endpoint
type ProjectsResponse struct {
	Projects []Collection `json:"projects"`
}

// Collection is one paginated feed (a "project" or workspace)
type Collection struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ExpectedCount int    `json:"clip_count"`
}

// IsDefault reports whether the collection is the default feed
func (c Collection) IsDefault() bool {
	return c.ID == DefaultCollectionID
}

// SafeName returns the display name reduced to letters, digits, '_', '-' and
// spaces, trimmed, with spaces turned into underscores. Empty results fall
// back to the first 8 characters of the id.
func (c Collection) SafeName() string {
	var b strings.Builder
	for _, r := range c.Name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == ' ' {
			b.WriteRune(r)
		}
	}

	name := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	if runes := []rune(name); len(runes) > maxSafeNameLength {
		name = string(runes[:maxSafeNameLength])
	}
	if name == "" {
		name = c.ID
		if len(name) > 8 {
			name = name[:8]
		}
	}
	return name
}

// ErrMissingClips reports a feed body without a clips array
var ErrMissingClips = errors.New("feed response has no clips array")

// FeedResponse is the body of one feed page. Clips is nil when the body
// carries no clips array at all, which is different from an empty page.
type FeedResponse struct {
	Clips *[]Item `json:"clips"`
}

// Validate rejects a body without a clips array
func (r *FeedResponse) Validate() error {
	if r.Clips == nil {
		return ErrMissingClips
	}
	return nil
}

// Page returns the clips of the response
func (r *FeedResponse) Page() Page {
	if r.Clips == nil {
		return Page{}
	}
	return Page(*r.Clips)
}

// Item is one clip. Only its identifier is interpreted; the rest of the
// record is kept verbatim in Raw.
type Item struct {
	ID  string
	Raw json.RawMessage
}

// itemKeys holds the identifier candidates, in lookup order
type itemKeys struct {
	ID     interface{} `json:"id"`
	ClipID interface{} `json:"clip_id"`
}

// UnmarshalJSON keeps the raw record and extracts the identifier from "id",
// falling back to "clip_id".
func (i *Item) UnmarshalJSON(data []byte) error {
	var keys itemKeys
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	i.Raw = append(json.RawMessage(nil), data...)
	i.ID = identifier(keys.ID)
	if i.ID == "" {
		i.ID = identifier(keys.ClipID)
	}
	return nil
}

// MarshalJSON writes the raw record back unchanged
func (i Item) MarshalJSON() ([]byte, error) {
	if len(i.Raw) == 0 {
		return []byte("null"), nil
	}
	return i.Raw, nil
}

// Fields decodes the raw record into a generic map, keeping numbers exact
func (i Item) Fields() (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(i.Raw))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// identifier turns a decoded JSON value into an identifier string. Falsy
// values (null, "", 0, false) count as missing.
func identifier(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id == 0 {
			return ""
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

// Page is the ordered list of items returned for one page request
type Page []Item

// IsEmpty reports whether the page holds no items
func (p Page) IsEmpty() bool {
	return len(p) == 0
}

// IsShort reports whether the page is shorter than the requested page size
func (p Page) IsShort(pageSize int) bool {
	return len(p) < pageSize
}

// MergedResult is the deduplicated content of one collection
type MergedResult struct {
	CollectionID string
	Name         string
	Items        []Item
}

// Count returns the number of merged items
func (r *MergedResult) Count() int {
	return len(r.Items)
}

// Artifact is the on-disk form of a merged collection
type Artifact struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	ClipCount int    `json:"clip_count"`
	Items     []Item `json:"items"`
}

// Artifact converts the result to its on-disk form
func (r *MergedResult) Artifact() Artifact {
	items := r.Items
	if items == nil {
		items = []Item{}
	}
	return Artifact{
		ProjectID: r.CollectionID,
		Name:      r.Name,
		ClipCount: len(items),
		Items:     items,
	}
}
