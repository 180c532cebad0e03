package postgres

import (
	"fmt"
	"strings"
)

// sortColumns whitelists the sort keys accepted by list endpoints and maps
// them to qualified columns. Anything else falls back to the default.
var threadSortColumns = map[string]string{
	"created_at":       "t.created_at",
	"updated_at":       "t.updated_at",
	"title":            "t.title",
	"category":         "t.category",
	"total_up_votes":   "t.total_up_votes",
	"total_down_votes": "t.total_down_votes",
	"total_comments":   "t.total_comments",
}

var commentSortColumns = map[string]string{
	"created_at":       "c.created_at",
	"total_up_votes":   "c.total_up_votes",
	"total_down_votes": "c.total_down_votes",
}

const (
	defaultThreadSort  = "-created_at"
	defaultCommentSort = "created_at"
)

// orderBy turns "-total_up_votes" into "t.total_up_votes DESC, <tiebreak>".
func orderBy(sort string, columns map[string]string, fallback, tiebreak string) string {
	key, dir := strings.TrimSpace(sort), "ASC"
	if strings.HasPrefix(key, "-") {
		key, dir = key[1:], "DESC"
	}
	col, ok := columns[key]
	if !ok {
		return orderBy(fallback, columns, fallback, tiebreak)
	}
	return fmt.Sprintf("%s %s, %s", col, dir, tiebreak)
}

// likePattern escapes LIKE wildcards in a user search term.
func likePattern(search string) string {
	if search == "" {
		return ""
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(search) + "%"
}
