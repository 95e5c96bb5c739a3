package sources

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Parser extracts one CandidatePost from one post block.
// It returns false when the block does not yield a usable post.
type Parser interface {
	Parse(fragment *html.Node) (CandidatePost, bool)
}

// BlockClass is the CSS class marking one post block in a mirror timeline
const BlockClass = "timeline-item"

// ParsePage splits an HTML document into post blocks and parses each one with p.
// Blocks the parser rejects are dropped. At most limit posts are returned when
// limit is positive.
func ParsePage(r io.Reader, p Parser, limit int) ([]CandidatePost, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var posts []CandidatePost
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, BlockClass) {
			if post, ok := p.Parse(n); ok {
				posts = append(posts, post)
				if limit > 0 && len(posts) >= limit {
					return false
				}
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)

	return posts, nil
}

// NitterParser reads the timeline markup served by nitter-style mirrors
type NitterParser struct{}

var statusPath = regexp.MustCompile(`/status/(\d+)`)

var dateLayouts = []string{
	"Jan 2, 2006 · 3:04 PM MST",
	"Jan 2, 2006 · 15:04 MST",
	"2 Jan 2006 · 15:04 MST",
	time.RFC3339,
}

// Parse implements Parser
func (NitterParser) Parse(block *html.Node) (CandidatePost, bool) {
	var post CandidatePost

	if link := findFirst(block, func(n *html.Node) bool { return isElement(n, "a") && hasClass(n, "tweet-link") }); link != nil {
		post.ID = statusID(attr(link, "href"))
	}

	if user := findFirst(block, func(n *html.Node) bool { return isElement(n, "a") && hasClass(n, "username") }); user != nil {
		post.AuthorHandle = strings.TrimPrefix(strings.TrimSpace(textContent(user)), "@")
	}
	if name := findFirst(block, func(n *html.Node) bool { return isElement(n, "a") && hasClass(n, "fullname") }); name != nil {
		post.AuthorName = strings.TrimSpace(textContent(name))
	}
	if img := findFirst(block, func(n *html.Node) bool { return isElement(n, "img") && hasClass(n, "avatar") }); img != nil {
		post.AvatarURL = attr(img, "src")
	}

	if content := findFirst(block, func(n *html.Node) bool { return hasClass(n, "tweet-content") }); content != nil {
		post.Text = strings.TrimSpace(textContent(content))
	}

	if date := findFirst(block, func(n *html.Node) bool { return hasClass(n, "tweet-date") }); date != nil {
		if a := findFirst(date, func(n *html.Node) bool { return isElement(n, "a") }); a != nil {
			post.CreatedAt = parseDate(attr(a, "title"))
			if post.ID == "" {
				post.ID = statusID(attr(a, "href"))
			}
		}
	}

	forEach(block, func(n *html.Node) bool { return hasClass(n, "tweet-stat") }, func(stat *html.Node) {
		count := parseCount(textContent(stat))
		switch {
		case findFirst(stat, func(n *html.Node) bool { return hasClass(n, "icon-comment") }) != nil:
			post.Replies = count
		case findFirst(stat, func(n *html.Node) bool { return hasClass(n, "icon-retweet") }) != nil:
			post.Retweets = count
		case findFirst(stat, func(n *html.Node) bool { return hasClass(n, "icon-quote") }) != nil:
			post.Quotes = count
		case findFirst(stat, func(n *html.Node) bool { return hasClass(n, "icon-heart") }) != nil:
			post.Likes = count
		case findFirst(stat, func(n *html.Node) bool { return hasClass(n, "icon-views") || hasClass(n, "icon-play") }) != nil:
			views := count
			post.Views = &views
		}
	})

	if post.AuthorHandle == "" || post.Text == "" {
		return CandidatePost{}, false
	}
	return post, true
}

func statusID(href string) string {
	if m := statusPath.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// parseCount reads counters such as "1,204", "1.2K" or "3M"; anything else is 0
func parseCount(raw string) int {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1e3, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1e6, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "B"):
		mult, s = 1e9, strings.TrimSuffix(s, "B")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return int(v*mult + 0.5)
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func forEach(n *html.Node, match func(*html.Node) bool, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			fn(c)
			continue
		}
		forEach(c, match, fn)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
