// Package aggregate holds the post model the agent tools operate on.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusDraft, StatusScheduled, StatusPublished:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q (want draft, scheduled or published)", s)
	}
}

// platformLimits is the maximum content length per platform, in characters.
var platformLimits = map[string]int{
	"twitter":   280,
	"linkedin":  3000,
	"facebook":  63206,
	"instagram": 2200,
	"tiktok":    2200,
}

// Platforms returns the supported platform names, sorted.
func Platforms() []string {
	out := make([]string, 0, len(platformLimits))
	for p := range platformLimits {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// NormalizePlatform lowercases p and maps "x" to "twitter".
func NormalizePlatform(p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "x" {
		p = "twitter"
	}
	if _, ok := platformLimits[p]; !ok {
		return "", fmt.Errorf("unsupported platform %q (supported: %s)", p, strings.Join(Platforms(), ", "))
	}
	return p, nil
}

// ContentLimit returns the character limit of a supported platform.
func ContentLimit(platform string) int {
	return platformLimits[platform]
}

type Post struct {
	ID          uint
	OwnerID     string
	Platform    string
	Content     string
	ImageURL    string
	Hashtags    []string
	Status      Status
	ScheduledAt *time.Time
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the fields every stored post must satisfy.
func (p *Post) Validate() error {
	if p.OwnerID == "" {
		return fmt.Errorf("post owner is required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return fmt.Errorf("post content is required")
	}
	limit := ContentLimit(p.Platform)
	if limit == 0 {
		return fmt.Errorf("unsupported platform %q", p.Platform)
	}
	if n := utf8.RuneCountInString(p.Content); n > limit {
		return fmt.Errorf("content is %d characters, %s allows %d", n, p.Platform, limit)
	}
	return nil
}

// Editable reports whether the post can still be changed.
func (p *Post) Editable() bool {
	return p.Status != StatusPublished
}

// NormalizeHashtags trims, strips leading '#', lowercases and de-duplicates tags.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimLeft(strings.TrimSpace(t), "#"))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Publication records one delivery of a post to a platform.
type Publication struct {
	ID          uint
	PostID      uint
	Platform    string
	ExternalRef string
	PublishedAt time.Time
}

// ListFilter narrows PostRepository.List. Zero values match everything.
type ListFilter struct {
	Status   Status
	Platform string
	Limit    int
}
