package ranking_test

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/internal/domain/ranking"
)

func cand(id string, src model.SourceKind, score float64) model.RankedCandidate {
	return model.RankedCandidate{ID: id, Source: src, Score: score}
}

func ids(cs []model.RankedCandidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestEnforceProfileFirst(t *testing.T) {
	Convey("Given a sorted mixed candidate list", t, func() {
		sorted := []model.RankedCandidate{
			cand("t1", model.SourceTemplate, 0.9),
			cand("p1", model.SourceProfile, 0.8),
			cand("t2", model.SourceTemplate, 0.7),
			cand("p2", model.SourceProfile, 0.6),
		}

		Convey("When limit is 3", func() {
			got := ranking.EnforceProfileFirst(sorted, 3)

			Convey("Then the best profile is forced first and the rest follow by score", func() {
				So(ids(got), ShouldResemble, []string{"p1", "t1", "t2"})
			})
		})

		Convey("When limit exceeds the input", func() {
			got := ranking.EnforceProfileFirst(sorted, 10)

			Convey("Then every candidate appears exactly once", func() {
				So(ids(got), ShouldResemble, []string{"p1", "t1", "t2", "p2"})
			})
		})

		Convey("When limit is 1", func() {
			So(ids(ranking.EnforceProfileFirst(sorted, 1)), ShouldResemble, []string{"p1"})
		})

		Convey("When limit is zero or negative", func() {
			So(ranking.EnforceProfileFirst(sorted, 0), ShouldBeEmpty)
			So(ranking.EnforceProfileFirst(sorted, -2), ShouldBeEmpty)
		})

		Convey("When the input is empty", func() {
			So(ranking.EnforceProfileFirst(nil, 3), ShouldBeEmpty)
		})

		Convey("When the input is not modified by the call", func() {
			ranking.EnforceProfileFirst(sorted, 2)
			So(ids(sorted), ShouldResemble, []string{"t1", "p1", "t2", "p2"})
		})
	})

	Convey("Given only template candidates", t, func() {
		sorted := []model.RankedCandidate{
			cand("t1", model.SourceTemplate, 0.9),
			cand("t2", model.SourceTemplate, 0.5),
			cand("t3", model.SourceTemplate, 0.1),
		}

		Convey("Then the first limit are returned as is", func() {
			So(ids(ranking.EnforceProfileFirst(sorted, 2)), ShouldResemble, []string{"t1", "t2"})
			So(ranking.HasProfile(sorted), ShouldBeFalse)
		})
	})

	Convey("Given a list with a repeated id", t, func() {
		sorted := []model.RankedCandidate{
			cand("t1", model.SourceTemplate, 0.9),
			cand("t1", model.SourceTemplate, 0.9),
			cand("p1", model.SourceProfile, 0.2),
		}

		Convey("Then the id appears once", func() {
			So(ids(ranking.EnforceProfileFirst(sorted, 3)), ShouldResemble, []string{"p1", "t1"})
		})
	})

	Convey("Given arbitrary lists", t, func() {
		Convey("Then length never exceeds limit and the head is a profile when one exists", func() {
			for n := 0; n < 8; n++ {
				var sorted []model.RankedCandidate
				for i := 0; i < n; i++ {
					src := model.SourceTemplate
					if i%3 == 2 {
						src = model.SourceProfile
					}
					sorted = append(sorted, cand(fmt.Sprintf("c%d", i), src, float64(n-i)))
				}
				for limit := 1; limit <= 5; limit++ {
					got := ranking.EnforceProfileFirst(sorted, limit)
					So(len(got), ShouldEqual, min(limit, n))
					if ranking.HasProfile(sorted) {
						So(got[0].Source, ShouldEqual, model.SourceProfile)
					}
				}
			}
		})
	})
}
