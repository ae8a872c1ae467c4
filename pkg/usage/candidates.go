package usage

import (
	"strconv"
	"strings"

	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress"
)

// Candidates are the strings whose presence in stored content marks an
// attachment as referenced.
type Candidates struct {
	ID       int64
	IDString string

	// Files holds the bare file names of the attachment and its sizes.
	Files []string

	// Texts holds URL, path and file name variants that may appear anywhere.
	Texts []string

	// Markers holds id serialization forms: class names, shortcodes,
	// serialized strings and page builder JSON.
	Markers []string
}

// BuildCandidates derives the reference candidates of att. baseURL is the
// uploads base URL and may be empty.
func BuildCandidates(att wordpress.Attachment, baseURL string) Candidates {
	id := strconv.FormatUint(att.ID, 10)
	c := Candidates{
		ID:       int64(att.ID),
		IDString: id,
	}

	texts := newStringSet()
	files := newStringSet()

	url := att.URL
	texts.add(url)
	texts.add(jsonEscape(url))

	if baseURL != "" && strings.HasPrefix(url, baseURL) {
		texts.add(strings.TrimPrefix(url, baseURL))
	}
	texts.add(att.RelativePath)

	files.add(att.Filename())
	for _, size := range att.Sizes {
		files.add(size)
	}
	for _, f := range files.items {
		texts.add(f)
	}

	markers := newStringSet()
	markers.add("wp-image-" + id)
	markers.add("wp-att-" + id)
	markers.add(`:"` + id + `"`)
	markers.add("s:" + strconv.Itoa(len(id)) + `:"` + id + `"`)
	markers.add(`"id":` + id + `,`)
	markers.add(`"id":` + id + `}`)
	markers.add(`"id":"` + id + `"`)
	if url != "" {
		markers.add(`{"url":"` + url)
		markers.add(`"background-image":"` + url)
	}

	c.Texts = texts.items
	c.Files = files.items
	c.Markers = markers.items
	return c
}

// All returns texts followed by markers.
func (c Candidates) All() []string {
	all := make([]string, 0, len(c.Texts)+len(c.Markers))
	all = append(all, c.Texts...)
	return append(all, c.Markers...)
}

// Patterns renders every candidate as an escaped LIKE "contains" pattern.
func (c Candidates) Patterns() []string {
	return containsPatterns(c.All())
}

// NumberPatterns renders the serialize() forms of the id as an integer or
// float. They are only searched in meta values, where serialized builder
// data has no other marker for a numeric id.
func (c Candidates) NumberPatterns() []string {
	return containsPatterns([]string{"i:" + c.IDString + ";", "d:" + c.IDString + ";"})
}

// TextPatterns renders only the URL, path and file name candidates.
func (c Candidates) TextPatterns() []string {
	return containsPatterns(c.Texts)
}

// MatchText reports the first text candidate contained in s.
func (c Candidates) MatchText(s string) (string, bool) {
	for _, t := range c.Texts {
		if strings.Contains(s, t) {
			return t, true
		}
	}
	return "", false
}

// MatchAny reports the first candidate of any kind contained in s.
func (c Candidates) MatchAny(s string) (string, bool) {
	if t, ok := c.MatchText(s); ok {
		return t, true
	}
	for _, m := range c.Markers {
		if strings.Contains(s, m) {
			return m, true
		}
	}
	return "", false
}

func containsPatterns(values []string) []string {
	patterns := make([]string, 0, len(values))
	for _, v := range values {
		patterns = append(patterns, wordpress.Contains(v))
	}
	return patterns
}

// jsonEscape renders s the way json_encode does without
// JSON_UNESCAPED_SLASHES, which most page builders store.
func jsonEscape(s string) string {
	if !strings.Contains(s, "/") {
		return ""
	}
	return strings.ReplaceAll(s, "/", `\/`)
}

type stringSet struct {
	seen  map[string]bool
	items []string
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]bool)}
}

func (s *stringSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" || s.seen[v] {
		return
	}
	s.seen[v] = true
	s.items = append(s.items, v)
}
