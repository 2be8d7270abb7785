package reason

import (
	"fmt"
	"strings"

	"github.com/okian/matchwise/internal/domain/model"
)

func sanitize(s string) string { return strings.TrimSpace(s) }

func orNone(s string) string {
	if s = sanitize(s); s == "" {
		return "(none)"
	}
	return s
}

func formatContext(ctx model.ProfileContext, label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n- nickname: %s\n- generated_profile_text: %s", label, ctx.Nickname, orNone(ctx.ProfileText))
	if intro := sanitize(ctx.Introduction); intro != "" {
		fmt.Fprintf(&b, "\n- introduction: %s", intro)
	}
	return b.String()
}

func reasonPrompt(a, b model.ProfileContext) string {
	return "You are an event assistant. Respond in English only.\n" +
		fmt.Sprintf("Write one or two concise sentences (<= %d characters) explaining why the two people below might be a good match. ", maxReasonChars) +
		"Use their generated profile text and introductions as context. Avoid sensitive claims or contact info.\n\n" +
		formatContext(a, "Target user") + "\n\n" + formatContext(b, "Candidate")
}

func batchPrompt(me model.ProfileContext, cands []model.RankedCandidate) string {
	lines := make([]string, 0, len(cands))
	for i, c := range cands {
		entry := fmt.Sprintf("%d. id=%s, nickname=%s\n   generated_profile_text=%s", i+1, c.ID, c.Nickname, orNone(c.ProfileText))
		if intro := sanitize(c.Introduction); intro != "" {
			entry += "\n   introduction=" + intro
		}
		lines = append(lines, entry)
	}
	return "You are an event assistant. Respond in English only.\n" +
		fmt.Sprintf("For EACH candidate below, write one or two concise sentences (<= %d characters) explaining why the user might be a good match with the candidate.\n", maxReasonChars) +
		`Return ONLY a pure JSON array of objects: [{"id":"<id>","reason":"<text>"}]. No markdown, no extra text.` + "\n\n" +
		formatContext(me, "Target user") + "\n\nCandidates:\n" + strings.Join(lines, "\n")
}

func introPrompt(a, b model.ProfileContext) string {
	return "You are an event assistant. Respond in English only.\n" +
		`Return ONLY JSON with fields "topics" (array of 3 concise items), ` +
		fmt.Sprintf(`"ice_breaker_for_target" (one sentence <=%d chars for %s to message %s), `, maxIceBreakerChars, a.Nickname, b.Nickname) +
		fmt.Sprintf(`"ice_breaker_for_peer" (one sentence <=%d chars for %s to message %s).`, maxIceBreakerChars, b.Nickname, a.Nickname) + "\n" +
		"Focus on friendly, practical openings based on the profiles below.\n\n" +
		formatContext(a, "target_user") + "\n\n" + formatContext(b, "peer_user")
}

// Workflow input shapes.

type workflowProfile struct {
	Nickname     string `json:"nickname"`
	ProfileText  string `json:"generated_profile_text"`
	Introduction string `json:"introduction"`
}

type workflowCandidate struct {
	ID string `json:"id"`
	workflowProfile
}

type reasonStyle struct {
	MaxChars int `json:"max_chars"`
}

type reasonInputs struct {
	TargetUser workflowProfile     `json:"target_user"`
	Candidates []workflowCandidate `json:"candidates"`
	Limit      int                 `json:"limit"`
	Style      reasonStyle         `json:"style"`
}

type introStyle struct {
	Topics             int `json:"topics"`
	IceBreakerMaxChars int `json:"ice_breaker_max_chars"`
}

type introInputs struct {
	TargetUser workflowProfile `json:"target_user"`
	PeerUser   workflowProfile `json:"peer_user"`
	Style      introStyle      `json:"style"`
}

func toWorkflowProfile(ctx model.ProfileContext) workflowProfile {
	return workflowProfile{
		Nickname:     ctx.Nickname,
		ProfileText:  sanitize(ctx.ProfileText),
		Introduction: sanitize(ctx.Introduction),
	}
}
