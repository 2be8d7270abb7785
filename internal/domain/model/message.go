package model

import "time"

// MessageType discriminates inbox documents.
type MessageType string

const (
	MessageFoundMatch   MessageType = "FOUND_MATCH"
	MessageRequestMatch MessageType = "REQUEST_MATCH"
	MessageMatchIntro   MessageType = "MATCH_INTRO"
)

// FoundMatchMessage announces recommendations for a newly created profile.
type FoundMatchMessage struct {
	Type       MessageType          `json:"type"`
	CreatedAt  time.Time            `json:"created_at"`
	Candidates []AnnotatedCandidate `json:"candidates"`
}

// CandidateRef is the short peer description carried by a proposal.
type CandidateRef struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname"`
	ImageKey int    `json:"profile_image_key"`
}

// RequestMatchMessage tells the target that someone wants to connect.
type RequestMatchMessage struct {
	Type      MessageType  `json:"type"`
	CreatedAt time.Time    `json:"created_at"`
	FromUID   string       `json:"fromUid"`
	Candidate CandidateRef `json:"candidate"`
	Reason    string       `json:"reason"`
}

// Peer is the full peer description in a match introduction.
type Peer struct {
	UID          string `json:"uid"`
	Nickname     string `json:"nickname"`
	ImageKey     int    `json:"profile_image_key"`
	SocialLink   string `json:"social_link,omitempty"`
	SocialID     string `json:"linkedin_id"`
	Introduction string `json:"introduction"`
	ProfileText  string `json:"generated_profile_text"`
}

// IntroBody is the body of a MATCH_INTRO message.
type IntroBody struct {
	Peer       Peer     `json:"peer"`
	Topics     []string `json:"topics"`
	IceBreaker string   `json:"ice_breaker"`
}

// IntroMeta marks automatic replies on behalf of template candidates.
type IntroMeta struct {
	SourceType SourceKind `json:"sourceType"`
	AutoSayHi  bool       `json:"autoSayHi"`
	TemplateID string     `json:"templateId"`
}

// MatchIntroMessage introduces two matched people to each other.
type MatchIntroMessage struct {
	Type       MessageType `json:"type"`
	CreatedAt  time.Time   `json:"created_at"`
	IsCopiable bool        `json:"isCopiable"`
	Intro      IntroBody   `json:"intro"`
	Meta       *IntroMeta  `json:"meta,omitempty"`
}

// Match records a confirmed pair.
type Match struct {
	UIDs      []string  `json:"uids"`
	MatchedAt time.Time `json:"matched_at"`
}
