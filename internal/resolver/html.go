package resolver

import (
	"regexp"
	"strings"
)

// Structural tags that strongly suggest a blob is HTML rather than text that
// happens to contain angle brackets.
var htmlIndicators = []string{
	"<html>", "<body>", "<div>", "<p>", "<br>", "<table>", "<img", "<a ", "<!doctype",
}

var genericTagPattern = regexp.MustCompile(`<[^>]+>`)

// looksLikeHTML reports whether an undifferentiated blob should be treated as
// HTML. Some upstream parsers hand back a single blob with no declared type;
// the thresholds (2 indicator hits or 5 generic tags) deliberately
// under-classify, preferring a false negative over rendering raw markup as
// plain text.
func looksLikeHTML(content string) bool {
	if content == "" {
		return false
	}

	lower := strings.ToLower(content)

	indicatorHits := 0
	for _, indicator := range htmlIndicators {
		if strings.Contains(lower, indicator) {
			indicatorHits++
		}
	}

	genericTags := len(genericTagPattern.FindAllString(content, -1))

	return indicatorHits >= 2 || genericTags >= 5
}
