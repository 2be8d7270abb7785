package service_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchwise/internal/adapters/repository"
	service "github.com/okian/matchwise/internal/app"
	"github.com/okian/matchwise/internal/domain/candidates"
	"github.com/okian/matchwise/internal/domain/embedding"
	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/internal/domain/reason"
	"github.com/okian/matchwise/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var fixedNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

type fixedEmbedder struct{ vec []float64 }

func (e fixedEmbedder) Embed(context.Context, string) ([]float64, error) {
	return e.vec, nil
}

type fakeReasons struct {
	mu      sync.Mutex
	reasons map[string]string
	batches [][]string
	pairs   []string
}

func (f *fakeReasons) GenerateReasonsBatch(_ context.Context, _ model.ProfileContext, cands []model.RankedCandidate) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(cands))
	out := map[string]string{}
	for _, c := range cands {
		ids = append(ids, c.ID)
		if r, ok := f.reasons[c.ID]; ok {
			out[c.ID] = r
		}
	}
	f.batches = append(f.batches, ids)
	return out
}

func (f *fakeReasons) GenerateReason(_ context.Context, a, b model.ProfileContext) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairs = append(f.pairs, a.Nickname+"->"+b.Nickname)
	return a.Nickname + " and " + b.Nickname + " should talk"
}

func (f *fakeReasons) GenerateIntro(_ context.Context, a, b model.ProfileContext) model.Intro {
	return model.Intro{
		Topics:              []string{"go", "design"},
		IceBreakerForTarget: "hi " + b.Nickname,
		IceBreakerForPeer:   "hi " + a.Nickname,
	}
}

type fixture struct {
	ctx     context.Context
	repo    *repository.Repository
	reasons *fakeReasons
	svc     *service.Service
}

func newFixture(opts ...service.Option) *fixture {
	ctx := context.Background()
	repo := repository.NewRepository(repository.NewMemoryStore())
	prov := embedding.NewProvisioner(fixedEmbedder{vec: []float64{0, 1}}, repo)
	collector := candidates.NewCollector(repo, repo, prov)
	reasons := &fakeReasons{reasons: map[string]string{"p1": "shared interests"}}
	base := []service.Option{service.WithClock(func() time.Time { return fixedNow }), service.WithAutoReplyDelay(0)}
	svc := service.New(repo, collector, reasons, append(base, opts...)...)

	seed := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	seed(repo.PutProfile(ctx, model.Profile{ID: "me", Nickname: "Me", ProfileText: "backend", Embedding: []float64{1, 0}, ImageKey: 2}))
	seed(repo.PutProfile(ctx, model.Profile{ID: "p1", Nickname: "Ana", SocialID: "ana", ProfileText: "designer", Introduction: "hello", Embedding: []float64{0.8, 0.6}, ImageKey: 5}))
	seed(repo.PutProfile(ctx, model.Profile{ID: "draft", Nickname: "Draft"}))
	seed(repo.PutTemplate(ctx, model.TemplateProfile{ID: "t1", Username: " Kai ", SocialID: " kai-in ", ProfileText: "founder", Embedding: []float64{1, 0}}))
	seed(repo.PutTemplate(ctx, model.TemplateProfile{ID: "t2", Username: "Lee", ProfileText: "researcher"}))
	seed(repo.PutTemplate(ctx, model.TemplateProfile{ID: "t3", SocialID: "https://linkedin.com/in/ana", ProfileText: "duplicate of Ana", Embedding: []float64{1, 0}}))
	seed(repo.PutTemplate(ctx, model.TemplateProfile{ID: "t4", DummyIntro: "  hi there  "}))

	return &fixture{ctx: ctx, repo: repo, reasons: reasons, svc: svc}
}

func (f *fixture) inbox(uid string) map[string]repository.Document {
	msgs, err := f.repo.ListMessages(f.ctx, uid)
	if err != nil {
		panic(err)
	}
	return msgs
}

func ids(cs []model.AnnotatedCandidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestGetRecommendations(t *testing.T) {
	Convey("Given seeded profiles and templates", t, func() {
		f := newFixture()

		Convey("When recommendations are requested with the default limit", func() {
			got, err := f.svc.GetRecommendations(f.ctx, "me", 0)

			Convey("Then the best profile comes first and templates fill the rest", func() {
				So(err, ShouldBeNil)
				So(ids(got), ShouldResemble, []string{"p1", "pre_t1", "pre_t2"})
				So(got[0].Source, ShouldEqual, model.SourceProfile)
				So(got[1].Source, ShouldEqual, model.SourceTemplate)
				So(got[1].Nickname, ShouldEqual, " Kai ")
			})

			Convey("Then missing reasons get the default sentence", func() {
				So(got[0].Reason, ShouldEqual, "shared interests")
				So(got[1].Reason, ShouldEqual, reason.DefaultReason)
			})

			Convey("Then the missing template embedding is stored back", func() {
				tmpl, err := f.repo.GetTemplate(f.ctx, "t2")
				So(err, ShouldBeNil)
				So(tmpl.Embedding, ShouldResemble, []float64{0, 1})
			})
		})

		Convey("When the limit is out of range", func() {
			one, err := f.svc.GetRecommendations(f.ctx, "me", -4)
			So(err, ShouldBeNil)
			many, err := f.svc.GetRecommendations(f.ctx, "me", 50)
			So(err, ShouldBeNil)

			Convey("Then it is clamped", func() {
				So(ids(one), ShouldResemble, []string{"p1"})
				So(len(many), ShouldBeLessThanOrEqualTo, 10)
				So(many, ShouldHaveLength, 3)
			})
		})

		Convey("When the requester is not ready", func() {
			_, errDraft := f.svc.GetRecommendations(f.ctx, "draft", 3)
			_, errMissing := f.svc.GetRecommendations(f.ctx, "ghost", 3)
			_, errEmpty := f.svc.GetRecommendations(f.ctx, " ", 3)

			Convey("Then named failures are returned", func() {
				So(errors.Is(errDraft, service.ErrProfileNotReady), ShouldBeTrue)
				So(errors.Is(errMissing, service.ErrProfileNotReady), ShouldBeTrue)
				So(errors.Is(errEmpty, service.ErrInvalidArgument), ShouldBeTrue)
			})
		})
	})
}

func TestHandleProfileCreated(t *testing.T) {
	Convey("Given seeded profiles and templates", t, func() {
		f := newFixture(service.WithMaxCandidates(2))

		Convey("When a ready profile is created", func() {
			err := f.svc.HandleProfileCreated(f.ctx, model.ProfileCreated{EventID: "e1", UID: "me"})
			inbox := f.inbox("me")

			Convey("Then one FOUND_MATCH message lists the top candidates", func() {
				So(err, ShouldBeNil)
				So(inbox, ShouldHaveLength, 1)
				for _, msg := range inbox {
					So(msg["type"], ShouldEqual, "FOUND_MATCH")
					cands := msg["candidates"].([]any)
					So(cands, ShouldHaveLength, 2)
					So(cands[0].(map[string]any)["uid"], ShouldEqual, "p1")
					So(cands[0].(map[string]any)["reason"], ShouldEqual, "shared interests")
					So(cands[1].(map[string]any)["sourceType"], ShouldEqual, "predata")
				}
			})
		})

		Convey("When the created profile is not ready", func() {
			err := f.svc.HandleProfileCreated(f.ctx, model.ProfileCreated{EventID: "e2", UID: "draft"})

			Convey("Then it is skipped without error", func() {
				So(err, ShouldBeNil)
				So(f.inbox("draft"), ShouldBeEmpty)
				So(f.reasons.batches, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a profile with nobody else to match", t, func() {
		ctx := context.Background()
		repo := repository.NewRepository(repository.NewMemoryStore())
		prov := embedding.NewProvisioner(fixedEmbedder{vec: []float64{1}}, repo)
		svc := service.New(repo, candidates.NewCollector(repo, repo, prov), &fakeReasons{})
		So(repo.PutProfile(ctx, model.Profile{ID: "solo", Nickname: "Solo", ProfileText: "x", Embedding: []float64{1}}), ShouldBeNil)

		So(svc.HandleProfileCreated(ctx, model.ProfileCreated{UID: "solo"}), ShouldBeNil)
		msgs, err := repo.ListMessages(ctx, "solo")
		So(err, ShouldBeNil)
		So(msgs, ShouldBeEmpty)
	})
}

func TestProposeConnection(t *testing.T) {
	Convey("Given seeded profiles and templates", t, func() {
		f := newFixture()

		Convey("When proposing to a live attendee", func() {
			id, err := f.svc.ProposeConnection(f.ctx, "me", "p1")
			inbox := f.inbox("p1")

			Convey("Then the target receives a REQUEST_MATCH", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, service.ProposalAccepted)
				So(inbox, ShouldHaveLength, 1)
				for _, msg := range inbox {
					So(msg["type"], ShouldEqual, "REQUEST_MATCH")
					So(msg["fromUid"], ShouldEqual, "me")
					So(msg["reason"], ShouldEqual, "Me and Ana should talk")
					So(msg["candidate"], ShouldResemble, map[string]any{"uid": "me", "nickname": "Me", "profile_image_key": float64(2)})
				}
				So(f.inbox("me"), ShouldBeEmpty)
			})
		})

		Convey("When proposing to a template", func() {
			id, err := f.svc.ProposeConnection(f.ctx, "me", "pre_t1")
			inbox := f.inbox("me")

			Convey("Then the proposer immediately gets an automatic introduction", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, "auto_t1")
				msg, ok := inbox["predata_auto_"+strconv.FormatInt(fixedNow.UnixMilli(), 10)]
				So(ok, ShouldBeTrue)
				So(msg["type"], ShouldEqual, "MATCH_INTRO")
				So(msg["isCopiable"], ShouldEqual, false)
				intro := msg["intro"].(map[string]any)
				peer := intro["peer"].(map[string]any)
				So(peer["uid"], ShouldEqual, "pre_t1")
				So(peer["nickname"], ShouldEqual, "Kai")
				So(peer["linkedin_id"], ShouldEqual, "kai-in")
				So(peer["social_link"], ShouldEqual, "kai-in")
				So(peer["introduction"], ShouldEqual, "founder")
				So(peer["profile_image_key"], ShouldBeBetweenOrEqual, float64(1), float64(10))
				So(intro["ice_breaker"], ShouldEqual, "Hi Kai! Looking forward to connecting at the event.")
				So(intro["topics"], ShouldResemble, []any{})
				So(msg["meta"], ShouldResemble, map[string]any{"sourceType": "predata", "autoSayHi": true, "templateId": "t1"})
			})
		})

		Convey("When a template has neither name nor text", func() {
			_, err := f.svc.ProposeConnection(f.ctx, "me", "pre_t4")
			So(err, ShouldBeNil)

			for _, msg := range f.inbox("me") {
				peer := msg["intro"].(map[string]any)["peer"].(map[string]any)
				So(peer["nickname"], ShouldEqual, "Guest")
				So(peer["introduction"], ShouldEqual, "hi there")
			}
		})

		Convey("When either side is missing", func() {
			_, errTarget := f.svc.ProposeConnection(f.ctx, "me", "ghost")
			_, errTemplate := f.svc.ProposeConnection(f.ctx, "me", "pre_ghost")
			_, errProposer := f.svc.ProposeConnection(f.ctx, "ghost", "pre_t1")
			_, errEmpty := f.svc.ProposeConnection(f.ctx, "me", "")

			Convey("Then the failures are named", func() {
				So(errors.Is(errTarget, service.ErrProfileNotFound), ShouldBeTrue)
				So(errors.Is(errTemplate, service.ErrCandidateUnavailable), ShouldBeTrue)
				So(errors.Is(errProposer, service.ErrProfileNotFound), ShouldBeTrue)
				So(errors.Is(errEmpty, service.ErrInvalidArgument), ShouldBeTrue)
			})
		})

		Convey("When the caller gives up during the auto-reply delay", func() {
			slow := newFixture(service.WithAutoReplyDelay(time.Hour))
			ctx, cancel := context.WithTimeout(slow.ctx, 10*time.Millisecond)
			defer cancel()
			_, err := slow.svc.ProposeConnection(ctx, "me", "pre_t1")

			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(slow.inbox("me"), ShouldBeEmpty)
		})
	})
}

func TestRespondConnection(t *testing.T) {
	Convey("Given a pending proposal from me to p1", t, func() {
		f := newFixture()

		Convey("When p1 declines", func() {
			res, err := f.svc.RespondConnection(f.ctx, "p1", "me", false)

			So(err, ShouldBeNil)
			So(res, ShouldResemble, service.ConnectionResult{Matched: false})
			So(f.inbox("me"), ShouldBeEmpty)
		})

		Convey("When p1 accepts", func() {
			res, err := f.svc.RespondConnection(f.ctx, "p1", "me", true)

			Convey("Then the match is recorded under the sorted pair", func() {
				So(err, ShouldBeNil)
				So(res, ShouldResemble, service.ConnectionResult{Matched: true, MatchID: "me_p1"})
				doc, err := f.repo.Store().Get(f.ctx, repository.CollectionMatches, "me_p1")
				So(err, ShouldBeNil)
				So(doc["uids"], ShouldResemble, []any{"me", "p1"})
			})

			Convey("Then each side is introduced to the other", func() {
				mine := f.inbox("me")["intro_me_p1"]
				theirs := f.inbox("p1")["intro_me_p1"]
				So(mine, ShouldNotBeNil)
				So(theirs, ShouldNotBeNil)

				myIntro := mine["intro"].(map[string]any)
				So(myIntro["peer"].(map[string]any)["uid"], ShouldEqual, "p1")
				So(myIntro["peer"].(map[string]any)["linkedin_id"], ShouldEqual, "ana")
				So(myIntro["ice_breaker"], ShouldEqual, "hi Ana")
				So(mine["isCopiable"], ShouldEqual, true)

				theirIntro := theirs["intro"].(map[string]any)
				So(theirIntro["peer"].(map[string]any)["uid"], ShouldEqual, "me")
				So(theirIntro["ice_breaker"], ShouldEqual, "hi Me")
				So(theirIntro["topics"], ShouldResemble, []any{"go", "design"})
			})

			Convey("Then accepting again keeps a single match", func() {
				again, err := f.svc.RespondConnection(f.ctx, "p1", "me", true)
				So(err, ShouldBeNil)
				So(again.MatchID, ShouldEqual, "me_p1")
				So(f.inbox("me"), ShouldHaveLength, 1)
			})
		})

		Convey("When the proposer no longer exists", func() {
			_, err := f.svc.RespondConnection(f.ctx, "p1", "ghost", true)

			So(errors.Is(err, service.ErrProfileNotFound), ShouldBeTrue)
		})
	})
}

func TestEnqueue(t *testing.T) {
	Convey("Given a service", t, func() {
		f := newFixture(service.WithWorkerCount(2), service.WithQueueSize(8))

		Convey("When it is not started", func() {
			_, err := f.svc.Enqueue(f.ctx, "me", "")

			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When it is started", func() {
			So(f.svc.Start(f.ctx), ShouldBeNil)
			dup1, err1 := f.svc.Enqueue(f.ctx, "me", "evt-1")
			dup2, err2 := f.svc.Enqueue(f.ctx, "me", "evt-2")
			_, errEmpty := f.svc.Enqueue(f.ctx, "", "")
			f.svc.Stop(f.ctx)

			Convey("Then the trigger is handled once and repeats are dropped", func() {
				So(err1, ShouldBeNil)
				So(dup1, ShouldBeFalse)
				So(err2, ShouldBeNil)
				So(dup2, ShouldBeTrue)
				So(errors.Is(errEmpty, service.ErrInvalidArgument), ShouldBeTrue)
				So(f.inbox("me"), ShouldHaveLength, 1)
			})

			Convey("Then stats describe the pipeline", func() {
				stats := f.svc.GetStats()
				So(stats["started"], ShouldEqual, false)
				So(stats["workerCount"], ShouldEqual, 2)
				So(stats["queueCapacity"], ShouldEqual, 8)
			})
		})
	})
}

// flakyRepository fails the first AddMessage calls.
type flakyRepository struct {
	*repository.Repository
	mu    sync.Mutex
	fails int
}

func (r *flakyRepository) AddMessage(ctx context.Context, uid string, kind model.MessageType, msg any) (string, error) {
	r.mu.Lock()
	if r.fails > 0 {
		r.fails--
		r.mu.Unlock()
		return "", errors.New("inbox write rejected")
	}
	r.mu.Unlock()
	return r.Repository.AddMessage(ctx, uid, kind, msg)
}

func (r *flakyRepository) remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fails
}

func TestEnqueueRedeliveryAfterFailure(t *testing.T) {
	Convey("Given a notification whose first inbox write fails", t, func() {
		f := newFixture()
		flaky := &flakyRepository{Repository: f.repo, fails: 1}
		prov := embedding.NewProvisioner(fixedEmbedder{vec: []float64{0, 1}}, f.repo)
		svc := service.New(flaky, candidates.NewCollector(f.repo, f.repo, prov), f.reasons, service.WithWorkerCount(1))
		So(svc.Start(f.ctx), ShouldBeNil)

		dup, err := svc.Enqueue(f.ctx, "me", "evt-1")
		So(err, ShouldBeNil)
		So(dup, ShouldBeFalse)

		Convey("When the trigger is redelivered after the failure", func() {
			var redelivered bool
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				if flaky.remaining() == 0 {
					dup, err := svc.Enqueue(f.ctx, "me", "evt-2")
					So(err, ShouldBeNil)
					if !dup {
						redelivered = true
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
			}
			svc.Stop(f.ctx)

			Convey("Then it is accepted and exactly one notification arrives", func() {
				So(redelivered, ShouldBeTrue)
				So(f.inbox("me"), ShouldHaveLength, 1)
			})
		})
	})
}
