// Package model contains domain models passed between layers.
package model

// Profile is a live, self-registered attendee.
type Profile struct {
	ID           string
	Nickname     string
	SocialID     string // free-text professional network identifier
	Introduction string
	ProfileText  string // generated descriptive text
	ImageKey     int
	Embedding    []float64
}

// Usable reports whether the profile can be ranked or rank others.
func (p Profile) Usable() bool {
	return len(p.Embedding) > 0 && p.ProfileText != ""
}

// Context returns the text fields handed to the generation capability.
func (p Profile) Context() ProfileContext {
	return ProfileContext{
		Nickname:     p.Nickname,
		ProfileText:  p.ProfileText,
		Introduction: p.Introduction,
	}
}

// TemplateProfile is a curated fallback candidate.
type TemplateProfile struct {
	ID          string
	Username    string
	SocialID    string
	ProfileText string
	DummyIntro  string
	ImageKey    int
	Embedding   []float64
}

// ProfileContext is the subset of a profile used in prompts and workflow inputs.
type ProfileContext struct {
	Nickname     string `json:"nickname"`
	ProfileText  string `json:"generated_profile_text"`
	Introduction string `json:"introduction"`
}
