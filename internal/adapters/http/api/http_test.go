package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchwise/internal/adapters/http/api"
	service "github.com/okian/matchwise/internal/app"
	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type call struct {
	op     string
	uid    string
	other  string
	limit  int
	accept bool
}

type mockDependencies struct {
	calls     []call
	cands     []model.AnnotatedCandidate
	proposal  string
	result    service.ConnectionResult
	duplicate bool
	err       error
}

func (m *mockDependencies) GetRecommendations(_ context.Context, uid string, limit int) ([]model.AnnotatedCandidate, error) {
	m.calls = append(m.calls, call{op: "recommend", uid: uid, limit: limit})
	return m.cands, m.err
}

func (m *mockDependencies) ProposeConnection(_ context.Context, from, to string) (string, error) {
	m.calls = append(m.calls, call{op: "propose", uid: from, other: to})
	return m.proposal, m.err
}

func (m *mockDependencies) RespondConnection(_ context.Context, responder, from string, accept bool) (service.ConnectionResult, error) {
	m.calls = append(m.calls, call{op: "respond", uid: responder, other: from, accept: accept})
	return m.result, m.err
}

func (m *mockDependencies) Enqueue(_ context.Context, uid, eventID string) (bool, error) {
	m.calls = append(m.calls, call{op: "enqueue", uid: uid, other: eventID})
	return m.duplicate, m.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, uid, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if uid != "" {
		req.Header.Set(api.HeaderAttendeeID, uid)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		panic(fmt.Sprintf("decode %q: %v", w.Body.String(), err))
	}
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("The health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("The stats endpoint serves service stats", func() {
			w := do(mux, http.MethodGet, "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Unknown paths and wrong methods are not found", func() {
			So(do(mux, http.MethodGet, "/unknown", "", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/recommendations", "u1", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/stats", "", "").Code, ShouldEqual, http.StatusNotFound)
			So(deps.calls, ShouldBeEmpty)
		})
	})
}

func TestRecommendations(t *testing.T) {
	Convey("Given recommendations are available", t, func() {
		deps := &mockDependencies{cands: []model.AnnotatedCandidate{
			{ID: "p1", Nickname: "Ana", ImageKey: 3, Score: 0.9, Reason: "both build tools", Source: model.SourceProfile},
		}}
		mux := newMux(deps)

		Convey("When the requester asks with a limit", func() {
			w := do(mux, http.MethodPost, "/recommendations", "me", `{"limit":2}`)

			Convey("Then the candidates are returned for the header identity", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				So(deps.calls, ShouldResemble, []call{{op: "recommend", uid: "me", limit: 2}})
				cands := decode(w)["candidates"].([]any)
				So(cands, ShouldHaveLength, 1)
				first := cands[0].(map[string]any)
				So(first["uid"], ShouldEqual, "p1")
				So(first["reason"], ShouldEqual, "both build tools")
				So(first["sourceType"], ShouldEqual, "profile")
			})
		})

		Convey("When the body is empty", func() {
			w := do(mux, http.MethodPost, "/recommendations", "me", "")

			Convey("Then the default limit is requested", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.calls[0].limit, ShouldEqual, 0)
			})
		})

		Convey("When nothing matches", func() {
			deps.cands = nil
			w := do(mux, http.MethodPost, "/recommendations", "me", "{}")

			Convey("Then an empty list is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["candidates"], ShouldResemble, []any{})
			})
		})

		Convey("When the identity header is missing", func() {
			w := do(mux, http.MethodPost, "/recommendations", "", "{}")

			Convey("Then the request is unauthenticated", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(decode(w)["code"], ShouldEqual, "unauthenticated")
				So(deps.calls, ShouldBeEmpty)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/recommendations", "me", "{not json")

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.calls, ShouldBeEmpty)
		})
	})
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrProfileNotReady, http.StatusPreconditionFailed, "failed_precondition"},
		{fmt.Errorf("x: %w", service.ErrProfileNotFound), http.StatusNotFound, "not_found"},
		{service.ErrCandidateUnavailable, http.StatusNotFound, "not_found"},
		{service.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{service.ErrQueueFull, http.StatusTooManyRequests, "backpressure"},
		{service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded"},
		{fmt.Errorf("recommend: %w", context.Canceled), 499, "canceled"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}

	Convey("Given service failures", t, func() {
		for _, tc := range cases {
			Convey(fmt.Sprintf("%v maps to %d", tc.err, tc.status), func() {
				mux := newMux(&mockDependencies{err: tc.err})
				w := do(mux, http.MethodPost, "/recommendations", "me", "{}")

				So(w.Code, ShouldEqual, tc.status)
				body := decode(w)
				So(body["code"], ShouldEqual, tc.code)
				if tc.status >= http.StatusInternalServerError {
					So(body["message"], ShouldNotContainSubstring, "disk")
				}
			})
		}
	})
}

func TestConnections(t *testing.T) {
	Convey("Given a connections API", t, func() {
		deps := &mockDependencies{proposal: "auto_t1", result: service.ConnectionResult{Matched: true, MatchID: "a_b"}}
		mux := newMux(deps)

		Convey("Propose forwards the requester and target", func() {
			w := do(mux, http.MethodPost, "/connections/propose", "a", `{"toUid":"pre_t1"}`)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w), ShouldResemble, map[string]any{"proposalId": "auto_t1"})
			So(deps.calls, ShouldResemble, []call{{op: "propose", uid: "a", other: "pre_t1"}})
		})

		Convey("Propose without a target is rejected", func() {
			w := do(mux, http.MethodPost, "/connections/propose", "a", `{"toUid":"  "}`)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.calls, ShouldBeEmpty)
		})

		Convey("Respond forwards the answer", func() {
			w := do(mux, http.MethodPost, "/connections/respond", "b", `{"fromUid":"a","accept":true}`)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w), ShouldResemble, map[string]any{"matched": true, "matchId": "a_b"})
			So(deps.calls, ShouldResemble, []call{{op: "respond", uid: "b", other: "a", accept: true}})
		})

		Convey("A declined respond omits the match id", func() {
			deps.result = service.ConnectionResult{}
			w := do(mux, http.MethodPost, "/connections/respond", "b", `{"fromUid":"a"}`)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w), ShouldResemble, map[string]any{"matched": false})
		})

		Convey("Respond without a proposer is rejected", func() {
			w := do(mux, http.MethodPost, "/connections/respond", "b", `{"accept":true}`)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestProfileCreatedEvents(t *testing.T) {
	Convey("Given a trigger endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("A new trigger is accepted", func() {
			w := do(mux, http.MethodPost, "/events/profile-created", "", `{"uid":"u1","event_id":"e1"}`)

			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(decode(w), ShouldResemble, map[string]any{"status": "accepted", "duplicate": false})
			So(deps.calls, ShouldResemble, []call{{op: "enqueue", uid: "u1", other: "e1"}})
		})

		Convey("A repeated trigger is acknowledged as duplicate", func() {
			deps.duplicate = true
			w := do(mux, http.MethodPost, "/events/profile-created", "", `{"uid":"u1"}`)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w), ShouldResemble, map[string]any{"status": "duplicate", "duplicate": true})
		})

		Convey("A full queue answers with backpressure", func() {
			deps.err = fmt.Errorf("%w: queue is full", service.ErrQueueFull)
			w := do(mux, http.MethodPost, "/events/profile-created", "", `{"uid":"u1"}`)

			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("A trigger without uid is rejected", func() {
			w := do(mux, http.MethodPost, "/events/profile-created", "", `{"event_id":"e1"}`)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.calls, ShouldBeEmpty)
		})
	})
}
