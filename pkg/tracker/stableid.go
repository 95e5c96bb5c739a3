package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/sources"
)

// HashIDPrefix marks identifiers derived from post content
const HashIDPrefix = "h_"

// StableID returns the mirror's status id when present, else HashID of the post
func StableID(p sources.CandidatePost) string {
	if id := strings.TrimSpace(p.ID); id != "" {
		return id
	}
	return HashID(p.AuthorHandle, p.Text, p.CreatedAt)
}

// HashID derives a deterministic identifier from author, text and timestamp.
// The author is part of the digest so identical text from two authors never
// shares an identifier.
func HashID(author, text string, postedAt time.Time) string {
	var ts string
	if !postedAt.IsZero() {
		ts = postedAt.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(UserID(author) + "|" + text + "|" + ts))
	return HashIDPrefix + hex.EncodeToString(sum[:])[:32]
}

// UserID maps a handle to the participant key: lowercased, without '@'
func UserID(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}
