// Package platform holds the tagged variants the classifier resolves a request
// into, and the per-platform drafting conventions.
package platform

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Platform is a social network the agent can post to. The zero value is
// Unresolved.
type Platform int

const (
	Unresolved Platform = iota
	Facebook
	Instagram
	LinkedIn
)

// All lists the resolved platforms in display order.
var All = []Platform{Facebook, Instagram, LinkedIn}

var titleCaser = cases.Title(language.English)

// ParsePlatform maps a case-insensitive name to a Platform. Anything it does
// not recognise, including "unknown", is Unresolved.
func ParsePlatform(s string) Platform {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "facebook":
		return Facebook
	case "instagram":
		return Instagram
	case "linkedin":
		return LinkedIn
	default:
		return Unresolved
	}
}

func (p Platform) Resolved() bool {
	return p != Unresolved
}

// String is the lower-case wire name; also the token column name.
func (p Platform) String() string {
	switch p {
	case Facebook:
		return "facebook"
	case Instagram:
		return "instagram"
	case LinkedIn:
		return "linkedin"
	default:
		return "unknown"
	}
}

// DisplayName is the user-facing name.
func (p Platform) DisplayName() string {
	switch p {
	case LinkedIn:
		return "LinkedIn"
	case Unresolved:
		return "Unknown"
	default:
		return titleCaser.String(p.String())
	}
}

// ContentKind is the shape of the post. The zero value is UnresolvedKind.
type ContentKind int

const (
	UnresolvedKind ContentKind = iota
	Text
	Image
	Video
)

// ParseContentKind maps a case-insensitive name to a ContentKind.
func ParseContentKind(s string) ContentKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return Text
	case "image":
		return Image
	case "video":
		return Video
	default:
		return UnresolvedKind
	}
}

func (k ContentKind) Resolved() bool {
	return k != UnresolvedKind
}

func (k ContentKind) String() string {
	switch k {
	case Text:
		return "text"
	case Image:
		return "image"
	case Video:
		return "video"
	default:
		return "unknown"
	}
}

// HasMedia reports whether the kind needs a generated asset.
func (k ContentKind) HasMedia() bool {
	return k == Image || k == Video
}

// Config is the drafting convention for one platform.
type Config struct {
	MaxLength    int
	HashtagStyle string
	Tone         string
	CallToAction bool
}

var configs = map[Platform]Config{
	Facebook:  {MaxLength: 5000, HashtagStyle: "broad", Tone: "conversational", CallToAction: true},
	Instagram: {MaxLength: 2200, HashtagStyle: "trendy", Tone: "visual_focused", CallToAction: true},
	LinkedIn:  {MaxLength: 3000, HashtagStyle: "professional", Tone: "professional", CallToAction: false},
}

// ConfigFor returns the convention for p; ok is false for Unresolved.
func ConfigFor(p Platform) (Config, bool) {
	cfg, ok := configs[p]
	return cfg, ok
}
