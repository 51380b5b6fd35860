package matcher

import (
	"regexp"
	"strings"
)

// FindMenuOption returns the numeric selector of the first vocabulary phrase found
// in text. Lines are scanned top to bottom and, within a line, phrases in priority
// order. Matching is case-insensitive; the digits must sit right before the phrase,
// optionally followed by ".", ")", ":", "-" or spaces ("2. Cash Out" → "2").
// A hit without a digit prefix is ignored and scanning continues.
func FindMenuOption(text string, vocabulary []string) (string, bool) {
	patterns := compile(vocabulary)
	if len(patterns) == 0 {
		return "", false
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, p := range patterns {
			if m := p.FindStringSubmatch(line); m != nil {
				return m[1], true
			}
		}
	}
	return "", false
}

func compile(vocabulary []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(vocabulary))
	for _, phrase := range vocabulary {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`(?i)(\d+)\s*[.):\-]?\s*`+regexp.QuoteMeta(phrase)))
	}
	return patterns
}
