package wordpress

import (
	"strings"
)

// likeEscape is used instead of a backslash because MySQL and SQLite
// disagree on how a backslash must be written inside the ESCAPE literal.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// EscapeLike escapes LIKE wildcards in s.
func EscapeLike(s string) string {
	return likeReplacer.Replace(s)
}

// Contains builds a pattern matching any value containing s.
func Contains(s string) string {
	return "%" + EscapeLike(s) + "%"
}

// anyLike renders "(col LIKE ? ESCAPE '!' OR ...)" for the given patterns.
func anyLike(column string, patterns []string) (string, []any) {
	conds := make([]string, 0, len(patterns))
	args := make([]any, 0, len(patterns))
	for _, p := range patterns {
		conds = append(conds, column+" LIKE ? ESCAPE '"+likeEscape+"'")
		args = append(args, p)
	}
	return "(" + strings.Join(conds, " OR ") + ")", args
}

// Pattern escapes everything in p except the "%" wildcard, so "theme_mods_%"
// matches a literal underscore.
func Pattern(p string) string {
	parts := strings.Split(p, "%")
	for i, part := range parts {
		parts[i] = EscapeLike(part)
	}
	return strings.Join(parts, "%")
}
