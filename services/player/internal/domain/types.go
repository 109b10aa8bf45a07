package domain

import (
	"fmt"
	"strings"
)

// Category is the viewing variant of an episode.
type Category string

const (
	CategorySub Category = "sub"
	CategoryDub Category = "dub"
	CategoryRaw Category = "raw"
)

// Categories lists every category in fallback priority order.
var Categories = []Category{CategorySub, CategoryDub, CategoryRaw}

// ParseCategory accepts sub, dub or raw in any case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategorySub, CategoryDub, CategoryRaw:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Next returns the category that follows c in fallback order.
func (c Category) Next() (Category, bool) {
	for i, cat := range Categories {
		if cat == c && i+1 < len(Categories) {
			return Categories[i+1], true
		}
	}
	return "", false
}

type Episode struct {
	ID       string
	Number   int
	Title    string
	IsFiller bool
}

type ServerDescriptor struct {
	ID   int
	Name string
}

// ServerCatalog groups an episode's servers by category. A nil list means the
// collaborator did not report that category; a non-nil empty list means it
// reported none.
type ServerCatalog struct {
	Sub []ServerDescriptor
	Dub []ServerDescriptor
	Raw []ServerDescriptor
}

func (c ServerCatalog) For(cat Category) []ServerDescriptor {
	switch cat {
	case CategorySub:
		return c.Sub
	case CategoryDub:
		return c.Dub
	case CategoryRaw:
		return c.Raw
	}
	return nil
}

// KnownEmpty reports whether cat was reported with zero servers.
func (c ServerCatalog) KnownEmpty(cat Category) bool {
	l := c.For(cat)
	return l != nil && len(l) == 0
}

// IndexOf returns the position of the named server within cat, or -1.
func (c ServerCatalog) IndexOf(cat Category, name string) int {
	for i, s := range c.For(cat) {
		if strings.EqualFold(s.Name, name) {
			return i
		}
	}
	return -1
}

type SourceDescriptor struct {
	URL    string
	IsM3U8 bool
	Type   string
}

type Track struct {
	URL  string
	Lang string
}

// Segment marks a time range in seconds, used for intro and outro.
type Segment struct {
	Start float64
	End   float64
}

// SourceSet is the resolver's answer for one (episode, server, category).
type SourceSet struct {
	Sources []SourceDescriptor
	Headers map[string]string
	Tracks  []Track
	Intro   Segment
	Outro   Segment
}

// Referer returns the Referer header the source host expects, if any.
func (s SourceSet) Referer() string {
	for k, v := range s.Headers {
		if strings.EqualFold(k, "Referer") {
			return v
		}
	}
	return ""
}

// AnimeSummary is one search hit.
type AnimeSummary struct {
	ID       string
	Name     string
	JName    string
	Type     string
	Episodes struct {
		Sub int
		Dub int
	}
}
