// Package reason explains and narrates matches through an external
// text-generation capability, falling back from a managed workflow to a
// direct prompt to static text.
package reason

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/pkg/logger"
	"github.com/okian/matchwise/pkg/metrics"
)

// Character budgets and static texts.
const (
	maxReasonChars     = 200
	maxIceBreakerChars = 200
	maxTopics          = 3

	DefaultReason      = "You might have interesting topics to explore together."
	DefaultIceBreaker  = "Hi! I would love to connect with you at the event!"
	FallbackIceBreaker = "Hi! I’d love to connect and talk more about our event goals!"

	pairCandidateID = "peer"
)

// FallbackTopics are used when no intro could be generated.
var FallbackTopics = []string{"AI projects", "Onboarding experiences", "Event goals"}

// Operation labels.
const (
	opReasonsBatch = "reasons_batch"
	opReason       = "reason"
	opIntro        = "intro"
)

// Workflow runs a managed multi-step generation and returns its extracted
// JSON payload.
type Workflow interface {
	Run(ctx context.Context, workflowID string, inputs any) ([]byte, error)
}

// Prompter generates text from a single prompt.
type Prompter interface {
	Prompt(ctx context.Context, text string) (string, error)
}

// Engine is stateless apart from its configuration and safe for concurrent use.
type Engine struct {
	workflow         Workflow
	prompter         Prompter
	direct           bool
	reasonWorkflowID string
	introWorkflowID  string
	workflowTimeout  time.Duration
	promptTimeout    time.Duration
	logger           logger.Logger
}

// NewEngine builds an engine. A nil workflow disables the workflow tier.
func NewEngine(workflow Workflow, prompter Prompter, opts ...Option) *Engine {
	e := &Engine{
		workflow:        workflow,
		prompter:        prompter,
		workflowTimeout: 10 * time.Second,
		promptTimeout:   15 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Named("reason")
	}
	return e
}

func (e *Engine) runWorkflow(ctx context.Context, id string, inputs any) (any, error) {
	if e.direct || e.workflow == nil || id == "" {
		return nil, ErrTierDisabled
	}
	raw, err := e.workflow.Run(ctx, id, inputs)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnusableOutput, err)
	}
	return v, nil
}

func (e *Engine) prompt(ctx context.Context, text string) (string, error) {
	if e.prompter == nil {
		return "", ErrTierDisabled
	}
	out, err := e.prompter.Prompt(ctx, text)
	if err != nil {
		return "", err
	}
	out = sanitize(out)
	if out == "" {
		return "", ErrEmptyOutput
	}
	return out, nil
}

// GenerateReasonsBatch maps candidate ids to short reasons. It makes no
// call for an empty list and never fails; ids may be missing from the
// result, callers default them.
func (e *Engine) GenerateReasonsBatch(ctx context.Context, me model.ProfileContext, cands []model.RankedCandidate) map[string]string {
	if len(cands) == 0 {
		return map[string]string{}
	}
	log := e.logger.With(logger.String("handler", "generateReasonsBatch"), logger.Int("candidateCount", len(cands)))

	requested := make(map[string]struct{}, len(cands))
	inputs := reasonInputs{
		TargetUser: toWorkflowProfile(me),
		Limit:      len(cands),
		Style:      reasonStyle{MaxChars: maxReasonChars},
	}
	for _, c := range cands {
		requested[c.ID] = struct{}{}
		inputs.Candidates = append(inputs.Candidates, workflowCandidate{ID: c.ID, workflowProfile: toWorkflowProfile(c.Context())})
	}

	collect := func(v any) (map[string]string, error) {
		out := make(map[string]string, len(cands))
		for _, item := range reasonEntries(v) {
			m := asMap(item)
			id := text(m["id"])
			if _, ok := requested[id]; !ok {
				continue
			}
			if _, dup := out[id]; dup {
				continue
			}
			if r := sanitize(text(m["reason"])); r != "" {
				out[id] = truncate(r, maxReasonChars)
			}
		}
		if len(out) == 0 {
			return nil, ErrUnusableOutput
		}
		return out, nil
	}

	out, tier, ok := firstSuccess(ctx, log, opReasonsBatch,
		attempt[map[string]string]{tier: tierWorkflow, timeout: e.workflowTimeout, run: func(ctx context.Context) (map[string]string, error) {
			v, err := e.runWorkflow(ctx, e.reasonWorkflowID, inputs)
			if err != nil {
				return nil, err
			}
			return collect(v)
		}},
		attempt[map[string]string]{tier: tierPrompt, timeout: e.promptTimeout, run: func(ctx context.Context) (map[string]string, error) {
			s, err := e.prompt(ctx, batchPrompt(me, cands))
			if err != nil {
				return nil, err
			}
			v, err := decodeLoose([]byte(s))
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrUnusableOutput, err)
			}
			if asSlice(v) == nil {
				return nil, fmt.Errorf("%w: not a json array", ErrUnusableOutput)
			}
			return collect(v)
		}},
	)
	if ok {
		log.Info(ctx, "batch reasons generated", logger.String("source", tier), logger.Int("generated", len(out)))
		return out
	}

	log.Warn(ctx, "batch reasons falling back to per-candidate generation")
	start := time.Now()
	out = make(map[string]string, len(cands))
	for _, c := range cands {
		out[c.ID] = e.GenerateReason(ctx, me, c.Context())
	}
	metrics.RecordGeneration(opReasonsBatch, tierPerCandidate, "success", float64(time.Since(start).Milliseconds()))
	return out
}

// GenerateReason explains a single pair. It never fails; the static default
// is returned when nothing could be generated.
func (e *Engine) GenerateReason(ctx context.Context, a, b model.ProfileContext) string {
	log := e.logger.With(logger.String("handler", "generateReason"), logger.String("target", a.Nickname), logger.String("peer", b.Nickname))

	inputs := reasonInputs{
		TargetUser: toWorkflowProfile(a),
		Candidates: []workflowCandidate{{ID: pairCandidateID, workflowProfile: toWorkflowProfile(b)}},
		Limit:      1,
		Style:      reasonStyle{MaxChars: maxReasonChars},
	}

	out, tier, ok := firstSuccess(ctx, log, opReason,
		attempt[string]{tier: tierWorkflow, timeout: e.workflowTimeout, run: func(ctx context.Context) (string, error) {
			v, err := e.runWorkflow(ctx, e.reasonWorkflowID, inputs)
			if err != nil {
				return "", err
			}
			r := ""
			if entries := reasonEntries(v); len(entries) > 0 {
				r = text(asMap(entries[0])["reason"])
			}
			if sanitize(r) == "" {
				r = text(asMap(v)["reason"])
			}
			if r = sanitize(r); r == "" {
				return "", ErrUnusableOutput
			}
			return r, nil
		}},
		attempt[string]{tier: tierPrompt, timeout: e.promptTimeout, run: func(ctx context.Context) (string, error) {
			return e.prompt(ctx, reasonPrompt(a, b))
		}},
	)
	if !ok {
		log.Warn(ctx, "reason generation exhausted, using default")
		metrics.RecordGeneration(opReason, tierStatic, "fallback", 0)
		return DefaultReason
	}
	out = truncate(out, maxReasonChars)
	log.Info(ctx, "reason generated", logger.String("source", tier), logger.Int("length", len([]rune(out))))
	return out
}

// GenerateIntro produces up to three topics and an ice breaker for each
// side. It never fails; a fixed template is returned on total failure.
func (e *Engine) GenerateIntro(ctx context.Context, a, b model.ProfileContext) model.Intro {
	log := e.logger.With(logger.String("handler", "generateIntro"), logger.String("target", a.Nickname), logger.String("peer", b.Nickname))

	inputs := introInputs{
		TargetUser: toWorkflowProfile(a),
		PeerUser:   toWorkflowProfile(b),
		Style:      introStyle{Topics: maxTopics, IceBreakerMaxChars: maxIceBreakerChars},
	}

	out, tier, ok := firstSuccess(ctx, log, opIntro,
		attempt[model.Intro]{tier: tierWorkflow, timeout: e.workflowTimeout, run: func(ctx context.Context) (model.Intro, error) {
			v, err := e.runWorkflow(ctx, e.introWorkflowID, inputs)
			if err != nil {
				return model.Intro{}, err
			}
			return readIntro(v)
		}},
		attempt[model.Intro]{tier: tierPrompt, timeout: e.promptTimeout, run: func(ctx context.Context) (model.Intro, error) {
			s, err := e.prompt(ctx, introPrompt(a, b))
			if err != nil {
				return model.Intro{}, err
			}
			v, err := decodeLoose([]byte(s))
			if err != nil {
				return model.Intro{}, fmt.Errorf("%w: %w", ErrUnusableOutput, err)
			}
			return readIntro(v)
		}},
	)
	if !ok {
		log.Warn(ctx, "intro generation exhausted, using template")
		metrics.RecordGeneration(opIntro, tierStatic, "fallback", 0)
		return FallbackIntro()
	}
	log.Info(ctx, "intro generated", logger.String("source", tier), logger.Int("topics", len(out.Topics)))
	return out
}

// FallbackIntro returns a fresh copy of the fixed intro template.
func FallbackIntro() model.Intro {
	return model.Intro{
		Topics:              append([]string(nil), FallbackTopics...),
		IceBreakerForTarget: FallbackIceBreaker,
		IceBreakerForPeer:   FallbackIceBreaker,
	}
}

// readIntro accepts an object carrying at least one intro field. Missing ice
// breakers get the default sentence.
func readIntro(v any) (model.Intro, error) {
	m := asMap(v)
	_, hasTopics := m["topics"]
	target, hasTarget := m["ice_breaker_for_target"].(string)
	peer, hasPeer := m["ice_breaker_for_peer"].(string)
	if m == nil || (!hasTopics && !hasTarget && !hasPeer) {
		return model.Intro{}, ErrUnusableOutput
	}

	intro := model.Intro{Topics: []string{}}
	for _, t := range asSlice(m["topics"]) {
		if len(intro.Topics) == maxTopics {
			break
		}
		intro.Topics = append(intro.Topics, text(t))
	}
	if !hasTarget {
		target = DefaultIceBreaker
	}
	if !hasPeer {
		peer = DefaultIceBreaker
	}
	intro.IceBreakerForTarget = truncate(target, maxIceBreakerChars)
	intro.IceBreakerForPeer = truncate(peer, maxIceBreakerChars)
	return intro, nil
}
