// Package classify holds the shared phrase and keyword heuristics used by
// routing, diagnosis skipping, early exit, and response assembly. The lists
// live here once so the phases cannot drift apart.
package classify

import (
	"regexp"
	"strings"
)

// informationalPhrases mark queries that ask for information rather than
// action ("how is X doing", "show me Y").
var informationalPhrases = []string{
	"what is", "what are", "what was", "what will",
	"how is", "how are", "how was", "how will",
	"show me", "tell me", "explain", "describe",
	"list", "give me", "provide",
}

// actionPhrases mark queries that ask for changes or troubleshooting. They
// take precedence over informational phrases.
var actionPhrases = []string{
	"optimize", "fix", "improve", "why is", "why are",
	"what's wrong", "what went wrong", "issue", "problem",
	"recommend", "suggest", "should", "need to",
}

// followUpPhrases is a fixed list of affirmations and selections that mark a
// query as a bare follow-up to the previous assistant turn.
//
// TODO: replace this phrase list with real intent classification; it is kept
// exactly as-is for compatibility and must not be extended ad hoc.
var followUpPhrases = []string{
	"yes", "yes i do", "yes please", "yeah", "yep", "sure",
	"ok", "okay", "go ahead", "sounds good", "do it",
	"that one", "the first one", "the second one",
}

// IsInformational reports whether the query is purely informational. Action
// phrasing wins when both kinds are present.
func IsInformational(query string) bool {
	q := strings.ToLower(query)
	for _, phrase := range actionPhrases {
		if strings.Contains(q, phrase) {
			return false
		}
	}
	for _, phrase := range informationalPhrases {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	return false
}

// IsActionOriented reports whether the query contains action phrasing.
func IsActionOriented(query string) bool {
	q := strings.ToLower(query)
	for _, phrase := range actionPhrases {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	return false
}

var punctRe = regexp.MustCompile(`[!?.,;:]+`)

// IsFollowUp reports whether the query is a bare affirmation or selection.
// Single-word phrases must match the whole query; multi-word phrases match
// as substrings of short queries only.
func IsFollowUp(query string) bool {
	q := strings.Join(strings.Fields(strings.ToLower(punctRe.ReplaceAllString(query, " "))), " ")
	if q == "" {
		return false
	}
	words := strings.Count(q, " ") + 1
	for _, phrase := range followUpPhrases {
		if q == phrase {
			return true
		}
		if strings.Contains(phrase, " ") && words <= 5 && strings.Contains(q, phrase) {
			return true
		}
	}
	return false
}

// MatchKeywords reports whether any of the keywords occurs in the query.
func MatchKeywords(query string, keywords []string) bool {
	q := strings.ToLower(query)
	for _, kw := range keywords {
		if strings.Contains(q, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

var (
	quotedNameRe   = regexp.MustCompile(`["']([^"']{2,64})["']`)
	campaignNameRe = regexp.MustCompile(`(?i)\b(?:campaign|advertiser|insertion order|io)\s+([A-Z][\w-]*)`)
)

// ExtractCampaignNames pulls candidate campaign/advertiser names out of a
// query: quoted strings plus capitalized tokens following "campaign",
// "advertiser", "insertion order" or "io".
func ExtractCampaignNames(query string) []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	for _, m := range quotedNameRe.FindAllStringSubmatch(query, -1) {
		add(m[1])
	}
	for _, m := range campaignNameRe.FindAllStringSubmatch(query, -1) {
		add(m[1])
	}
	return names
}
