package extract

import (
	"regexp"
	"strings"
)

const (
	// MaxBlockLength caps one evidence block, source prefix included.
	MaxBlockLength = 3000
	// sentenceWindow is how far back from the cap a sentence end may sit and
	// still be used as the cut point.
	sentenceWindow = 500
	minLineLength  = 20
	truncationMark = "... [content truncated]"
)

var boilerplate = []string{
	"Skip to main content",
	"Sign up today to receive premium content!",
	"Sign Up",
	"Become an Insider",
	"Menu",
	"Log in",
	"Search",
	"Twitter",
	"Facebook",
	"LinkedIn",
	"Subscribe",
	"Follow us",
	"Related articles",
	"Recommended for you",
	"Read more",
}

var (
	blankRunRe    = regexp.MustCompile(`\n\s*\n`)
	spaceRunRe    = regexp.MustCompile(`[ \t]+`)
	ellipsisRe    = regexp.MustCompile(`\.{3,}`)
	newlineRunRe  = regexp.MustCompile(`\n{3,}`)
	boilerplateRe = compileBoilerplate(boilerplate)
)

func compileBoilerplate(phrases []string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

// Clean normalises scraped page text into prose lines.
func Clean(text string) string {
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = boilerplateRe.ReplaceAllString(text, "")
	text = ellipsisRe.ReplaceAllString(text, "")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) <= minLineLength {
			continue
		}
		if strings.HasPrefix(line, "©") || strings.HasPrefix(line, "Privacy") || strings.HasPrefix(line, "Terms") {
			continue
		}
		kept = append(kept, line)
	}

	return newlineRunRe.ReplaceAllString(strings.Join(kept, "\n"), "\n\n")
}

// Truncate bounds text to limit runes. When a full stop falls within the last
// sentenceWindow runes of the cut, the text ends on it; otherwise a marker is
// appended to the hard cut.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := runes[:limit]
	last := -1
	for i := len(cut) - 1; i >= 0; i-- {
		if cut[i] == '.' {
			last = i
			break
		}
	}
	if last > limit-sentenceWindow {
		return string(cut[:last+1])
	}
	return string(cut) + truncationMark
}

// Block formats cleaned text as one evidence entry.
func Block(sourceURL, cleaned string) string {
	return Truncate("Source: "+sourceURL+"\n\n"+cleaned, MaxBlockLength)
}
