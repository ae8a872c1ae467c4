package usage

import (
	"strconv"
	"strings"

	"github.com/wolfslender/Media-Usage-Checker/pkg/phpserial"
)

// maxNestedDecode bounds how many times a string value is decoded again
// because it holds another serialized or JSON payload.
const maxNestedDecode = 4

// Match is where inside a decoded value a reference was found.
type Match struct {
	Path  string
	Value string
}

// SearchValue walks v depth first looking for the attachment id or a
// candidate. Any integer, integral float or numeric string equal to the id
// matches whatever key holds it, as does a comma separated id list. Strings
// are searched for every candidate and decoded again when they hold a nested
// payload.
func SearchValue(v phpserial.Value, c Candidates) (Match, bool) {
	return searchValue(v, c, nil, 0)
}

func searchValue(v phpserial.Value, c Candidates, prefix []string, depth int) (Match, bool) {
	var found Match
	var ok bool

	v.Walk(func(path []string, value phpserial.Value) bool {
		full := append(append([]string(nil), prefix...), path...)

		switch value.Kind {
		case phpserial.KindInt, phpserial.KindFloat:
			if n, isInt := value.AsInt(); isInt && n == c.ID {
				found, ok = Match{Path: strings.Join(full, "."), Value: value.String()}, true
			}

		case phpserial.KindString:
			found, ok = searchString(value.Str, c, full, depth)
		}
		return !ok
	})
	return found, ok
}

func searchString(s string, c Candidates, path []string, depth int) (Match, bool) {
	at := strings.Join(path, ".")

	if numericEquals(s, c.ID) {
		return Match{Path: at, Value: s}, true
	}
	if strings.Contains(s, ",") {
		for _, part := range strings.Split(s, ",") {
			if numericEquals(part, c.ID) {
				return Match{Path: at, Value: s}, true
			}
		}
	}

	if hit, found := c.MatchAny(s); found {
		return Match{Path: at, Value: hit}, true
	}

	if depth < maxNestedDecode && looksEncoded(s) {
		if nested, decoded := phpserial.Decode(s); decoded {
			return searchValue(nested, c, path, depth+1)
		}
	}
	return Match{}, false
}

// numericEquals compares a numeric string with id the way PHP's loose
// equality does, so "44" and "44.0" both match.
func numericEquals(s string, id int64) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n == id
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f == float64(id)
}

func looksEncoded(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if phpserial.IsSerialized(s) {
		return true
	}
	return s[0] == '{' || s[0] == '['
}
