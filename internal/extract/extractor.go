package extract

import (
	"bytes"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Mode selects the main-content strategy.
type Mode string

const (
	ModeSelectors   Mode = "selectors"
	ModeReadability Mode = "readability"
)

// ParseMode defaults to ModeSelectors for anything unrecognised.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeReadability)) {
		return ModeReadability
	}
	return ModeSelectors
}

const readabilityMinWords = 50

// contentSelectors is ordered by how likely each container holds the article.
var contentSelectors = compileSelectors(
	"article",
	".article-content",
	".post-content",
	".entry-content",
	".story-content",
	"main",
	`[role="main"]`,
	".main-content",
	".content-area",
	"#content",
)

var strippedTags = map[string]bool{
	"script": true, "style": true, "nav": true, "header": true,
	"footer": true, "aside": true, "meta": true, "noscript": true,
}

func compileSelectors(selectors ...string) []cascadia.Selector {
	out := make([]cascadia.Selector, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, cascadia.MustCompile(s))
	}
	return out
}

// Extractor turns page HTML into an evidence block.
type Extractor struct {
	Mode Mode
}

// Extract returns the formatted block for pageURL. ok is false when the page
// yields no text at all.
func (e Extractor) Extract(page, pageURL string) (string, bool) {
	if e.Mode == ModeReadability {
		if text, ok := readableText(page, pageURL); ok {
			return Block(pageURL, Clean(text)), true
		}
	}

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", false
	}
	text := MainText(doc)
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return Block(pageURL, Clean(text)), true
}

// MainText returns the text of the first matching content container, or the
// body with chrome elements removed when no container matches or the match
// holds no text.
func MainText(doc *html.Node) string {
	for _, sel := range contentSelectors {
		if node := sel.MatchFirst(doc); node != nil {
			if text := textContent(node, nil); strings.TrimSpace(text) != "" {
				return text
			}
			break
		}
	}
	body := findElement(doc, "body")
	if body == nil {
		return ""
	}
	return textContent(body, strippedTags)
}

func readableText(page, pageURL string) (string, bool) {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(page), parsedURL)
	if err != nil || article.Node == nil {
		return "", false
	}
	if md, err := htmltomarkdown.ConvertNode(article.Node); err == nil {
		if text := string(md); len(strings.Fields(text)) >= readabilityMinWords {
			return text, true
		}
	}
	var buf bytes.Buffer
	if err := article.RenderText(&buf); err == nil && len(strings.Fields(buf.String())) >= readabilityMinWords {
		return buf.String(), true
	}
	return "", false
}

// textContent concatenates text nodes under n as they appear in the source,
// skipping subtrees whose tag is in skip.
func textContent(n *html.Node, skip map[string]bool) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skip[strings.ToLower(n.Data)] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// wordCount counts words of visible body text; used to spot pages that only
// render with JavaScript.
func wordCount(page string) int {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return 0
	}
	body := findElement(doc, "body")
	if body == nil {
		return 0
	}
	return len(strings.Fields(textContent(body, strippedTags)))
}
