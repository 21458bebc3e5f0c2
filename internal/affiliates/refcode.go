package affiliates

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

const refCodeSuffixLen = 4

const refCodeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// NewRefCode derives a referral code from the partner name: a lowercase slug
// plus a short random suffix to keep codes unique across same-named partners.
func NewRefCode(name string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonSlugRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "partner"
	}
	if len(slug) > 24 {
		slug = slug[:24]
	}

	buf := make([]byte, refCodeSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating ref code: %w", err)
	}
	suffix := make([]byte, refCodeSuffixLen)
	for i, b := range buf {
		suffix[i] = refCodeAlphabet[int(b)%len(refCodeAlphabet)]
	}
	return fmt.Sprintf("%s-%s", slug, suffix), nil
}
