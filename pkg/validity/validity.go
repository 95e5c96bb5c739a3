// Package validity decides whether a post qualifies for a campaign at all.
package validity

import "strings"

// DefaultPrimaryTag is the program-wide tag every qualifying post must carry
const DefaultPrimaryTag = "#mindshare"

// NormalizeTag lowercases and trims a tag and enforces a leading '#'
func NormalizeTag(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	if t == "" {
		return ""
	}
	if !strings.HasPrefix(t, "#") {
		t = "#" + t
	}
	return t
}

// HasRequiredTags reports whether text contains both the primary tag and the
// campaign tag, case-insensitively. An empty tag never matches.
func HasRequiredTags(text, primaryTag, campaignTag string) bool {
	primary := NormalizeTag(primaryTag)
	campaign := NormalizeTag(campaignTag)
	if primary == "" || campaign == "" {
		return false
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, primary) && strings.Contains(lower, campaign)
}

// Filter binds a primary tag so callers only supply text and campaign tag
type Filter struct {
	PrimaryTag string
}

// NewFilter returns a Filter for primaryTag, or DefaultPrimaryTag when it is empty
func NewFilter(primaryTag string) Filter {
	if strings.TrimSpace(primaryTag) == "" {
		primaryTag = DefaultPrimaryTag
	}
	return Filter{PrimaryTag: NormalizeTag(primaryTag)}
}

// Accepts is HasRequiredTags with the bound primary tag
func (f Filter) Accepts(text, campaignTag string) bool {
	return HasRequiredTags(text, f.PrimaryTag, campaignTag)
}
