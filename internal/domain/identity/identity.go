// Package identity canonicalizes the keys used to recognise the same person
// across the profile and template pools.
package identity

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

// TemplatePrefix marks candidate ids that refer to template profiles.
const TemplatePrefix = "pre_"

var (
	schemeRe      = regexp.MustCompile(`(?i)^https?://`)
	profilePathRe = regexp.MustCompile(`(?i)^(www\.)?linkedin\.com/in/`)
	hostRe        = regexp.MustCompile(`(?i)^(www\.)?linkedin\.com/`)
	trailingRe    = regexp.MustCompile(`/+$`)
)

// NormalizeSocialID reduces a social profile reference to its lowercase
// handle: "https://www.LinkedIn.com/in/JDoe/" becomes "jdoe".
func NormalizeSocialID(raw string) string {
	s := strings.TrimSpace(raw)
	s = schemeRe.ReplaceAllString(s, "")
	s = profilePathRe.ReplaceAllString(s, "")
	s = hostRe.ReplaceAllString(s, "")
	s = trailingRe.ReplaceAllString(s, "")
	return strings.ToLower(s)
}

// NormalizeNickname trims and lowercases a nickname. ok is false when
// nothing is left.
func NormalizeNickname(raw string) (key string, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	return strings.ToLower(s), true
}

// TemplateCandidateID returns the candidate id for a template.
func TemplateCandidateID(templateID string) string {
	return TemplatePrefix + templateID
}

// TemplateIDFromCandidate extracts the template id from a candidate id.
func TemplateIDFromCandidate(candidateID string) (string, bool) {
	if !strings.HasPrefix(candidateID, TemplatePrefix) {
		return "", false
	}
	return candidateID[len(TemplatePrefix):], true
}

// ImageKeyFromID derives a stable avatar key in 1..10 from an id. It keeps
// the 32-bit string hash (h*31 + UTF-16 code unit, wrapping) so keys match
// the ones already handed out to clients.
func ImageKeyFromID(id string) int {
	if id == "" {
		return 1
	}
	var h int32
	for _, unit := range utf16.Encode([]rune(id)) {
		h = (h << 5) - h + int32(unit)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return int(abs%10) + 1
}

// ResolveImageKey returns stored when it is a valid key, otherwise the
// derived key for id.
func ResolveImageKey(stored int, id string) int {
	if stored > 0 {
		return stored
	}
	return ImageKeyFromID(id)
}
