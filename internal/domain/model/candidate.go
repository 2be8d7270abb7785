package model

// SourceKind tells which pool a candidate came from.
type SourceKind string

const (
	SourceProfile SourceKind = "profile"
	// SourceTemplate is serialized as "predata", the value existing clients
	// read from sourceType.
	SourceTemplate SourceKind = "predata"
)

// RankedCandidate is a scored candidate for one ranking request.
type RankedCandidate struct {
	ID           string     `json:"uid"`
	Nickname     string     `json:"nickname"`
	ImageKey     int        `json:"profile_image_key"`
	ProfileText  string     `json:"generated_profile_text"`
	Introduction string     `json:"introduction"`
	Score        float64    `json:"score"`
	Source       SourceKind `json:"sourceType"`
}

// Context returns the candidate's generation context.
func (c RankedCandidate) Context() ProfileContext {
	return ProfileContext{
		Nickname:     c.Nickname,
		ProfileText:  c.ProfileText,
		Introduction: c.Introduction,
	}
}

// AnnotatedCandidate is the caller-facing shape of a recommendation.
type AnnotatedCandidate struct {
	ID           string     `json:"uid"`
	Nickname     string     `json:"nickname"`
	ImageKey     int        `json:"profile_image_key"`
	Score        float64    `json:"score"`
	Reason       string     `json:"reason"`
	Introduction string     `json:"introduction"`
	Source       SourceKind `json:"sourceType"`
}

// Annotate attaches a reason to a ranked candidate.
func Annotate(c RankedCandidate, reason string) AnnotatedCandidate {
	return AnnotatedCandidate{
		ID:           c.ID,
		Nickname:     c.Nickname,
		ImageKey:     c.ImageKey,
		Score:        c.Score,
		Reason:       reason,
		Introduction: c.Introduction,
		Source:       c.Source,
	}
}

// Intro is the generated conversation starter for a confirmed match.
type Intro struct {
	Topics              []string `json:"topics"`
	IceBreakerForTarget string   `json:"ice_breaker_for_target"`
	IceBreakerForPeer   string   `json:"ice_breaker_for_peer"`
}
