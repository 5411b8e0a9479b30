package scoring_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/flairward/flairward/internal/adapters/store"
	debounce "github.com/flairward/flairward/internal/domain/debounce"
	flair "github.com/flairward/flairward/internal/domain/flair"
	model "github.com/flairward/flairward/internal/domain/model"
	scoring "github.com/flairward/flairward/internal/domain/scoring"
	"github.com/flairward/flairward/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

const community = "gophers"

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeHistorian struct {
	history *model.History
	queries int
}

func (f *fakeHistorian) Query(ctx context.Context, username string, force bool) (*model.History, error) {
	f.queries++
	return f.history, nil
}

type fakeFlairPlatform struct {
	remoteText     string
	remoteCategory string
	fetches        int
	setCalls       int
	lastText       string
}

func (f *fakeFlairPlatform) FetchFlair(ctx context.Context, username string) (string, string, error) {
	f.fetches++
	return f.remoteText, f.remoteCategory, nil
}

func (f *fakeFlairPlatform) SetFlair(ctx context.Context, username, text, category string) error {
	f.setCalls++
	f.lastText = text
	return nil
}

func (f *fakeFlairPlatform) FlairUpdate(ctx context.Context, username, oldText, oldCategory, newText, newCategory string) error {
	return nil
}

type fakeAuditor struct {
	dataPoints []store.DataPoint
}

func (f *fakeAuditor) DataPoint(ctx context.Context, p store.DataPoint) error {
	f.dataPoints = append(f.dataPoints, p)
	return nil
}

// oldComments builds n community comments older than the too-new window,
// splitting total score as evenly as integer division allows.
func oldComments(n, totalScore int) *model.History {
	h := model.NewHistory()
	for i := 0; i < n; i++ {
		score := totalScore / n
		if i == 0 {
			score += totalScore % n
		}
		h.Upsert(model.Contribution{
			FullID:    fmt.Sprintf("t1_%d", i),
			Community: community,
			Score:     score,
			CreatedAt: now.Add(-time.Duration(10+i) * 24 * time.Hour),
			Kind:      model.KindComment,
		})
	}
	return h
}

func newEngine(h *model.History, platform *fakeFlairPlatform, auditor *fakeAuditor, opts ...scoring.Option) (*scoring.Engine, *fakeHistorian, *debounce.Registry) {
	historian := &fakeHistorian{history: h}
	factory := flair.NewFactory(platform, platform, platform)
	registry := debounce.NewRegistry()
	base := []scoring.Option{scoring.WithNow(func() time.Time { return now })}
	engine := scoring.NewEngine(historian, factory, auditor, registry, community, append(base, opts...)...)
	return engine, historian, registry
}

func TestClassificationTiers(t *testing.T) {
	Convey("Given the ordered classification tiers", t, func() {
		ctx := context.Background()

		Convey("When a user has exactly 10 community contributions scoring 200", func() {
			engine, _, _ := newEngine(oldComments(10, 200), &fakeFlairPlatform{}, &fakeAuditor{})
			res, err := engine.Reflair(ctx, "alice", nil, nil)

			Convey("Then the user is established", func() {
				So(err, ShouldBeNil)
				So(res.CommunityAnalyzed, ShouldEqual, 10)
				So(res.CommunityScore, ShouldEqual, 200)
				So(res.IsNewcomer, ShouldBeFalse)
			})
		})

		Convey("When a user has 9 contributions scoring 200", func() {
			engine, _, _ := newEngine(oldComments(9, 200), &fakeFlairPlatform{}, &fakeAuditor{})
			res, err := engine.Reflair(ctx, "alice", nil, nil)

			Convey("Then no tier is satisfied", func() {
				So(err, ShouldBeNil)
				So(res.IsNewcomer, ShouldBeTrue)
			})
		})

		Convey("When a user has 20 contributions scoring 150", func() {
			engine, _, _ := newEngine(oldComments(20, 150), &fakeFlairPlatform{}, &fakeAuditor{})
			res, err := engine.Reflair(ctx, "alice", nil, nil)

			Convey("Then the second tier flips the verdict", func() {
				So(err, ShouldBeNil)
				So(res.IsNewcomer, ShouldBeFalse)
			})
		})

		Convey("When a user has 5 contributions scoring 80", func() {
			engine, _, _ := newEngine(oldComments(5, 80), &fakeFlairPlatform{}, &fakeAuditor{})
			res, err := engine.Reflair(ctx, "alice", nil, nil)

			Convey("Then the user is a newcomer", func() {
				So(err, ShouldBeNil)
				So(res.IsNewcomer, ShouldBeTrue)
			})
		})
	})
}

func TestScoringExclusions(t *testing.T) {
	Convey("Given histories with excluded contributions", t, func() {
		ctx := context.Background()

		Convey("When 12 old comments score 210 and one day-old comment scores 50", func() {
			h := oldComments(12, 210)
			h.Upsert(model.Contribution{
				FullID:    "t1_fresh",
				Community: community,
				Score:     50,
				CreatedAt: now.Add(-24 * time.Hour),
				Kind:      model.KindComment,
			})
			engine, _, _ := newEngine(h, &fakeFlairPlatform{}, &fakeAuditor{})
			res, err := engine.Reflair(ctx, "alice", nil, nil)

			Convey("Then the fresh comment lands in the too-new bucket", func() {
				So(err, ShouldBeNil)
				So(res.CommunityScore, ShouldEqual, 210)
				So(res.TooNewScore, ShouldEqual, 50)
				So(res.TooNewCount, ShouldEqual, 1)
				So(res.IsNewcomer, ShouldBeFalse)
			})
		})

		Convey("When moderator-removed contributions carry most of the score", func() {
			h := oldComments(9, 100)
			h.Upsert(model.Contribution{
				FullID:    "t1_removed",
				Community: community,
				Score:     500,
				Removed:   true,
				CreatedAt: now.Add(-20 * 24 * time.Hour),
				Kind:      model.KindComment,
			})
			engine, _, _ := newEngine(h, &fakeFlairPlatform{}, &fakeAuditor{})
			res, err := engine.Reflair(ctx, "alice", nil, nil)

			Convey("Then removed score is tracked but excluded from the decision", func() {
				So(err, ShouldBeNil)
				So(res.RemovedScore, ShouldEqual, 500)
				So(res.RemovedCount, ShouldEqual, 1)
				So(res.CommunityScore, ShouldEqual, 100)
				So(res.IsNewcomer, ShouldBeTrue)
			})
		})

		Convey("When off-community contributions are present", func() {
			h := oldComments(10, 200)
			h.Upsert(model.Contribution{
				FullID:    "t1_elsewhere",
				Community: "othersub",
				Score:     9000,
				CreatedAt: now.Add(-15 * 24 * time.Hour),
				Kind:      model.KindComment,
			})
			engine, _, _ := newEngine(h, &fakeFlairPlatform{}, &fakeAuditor{})
			res, err := engine.Reflair(ctx, "alice", nil, nil)

			Convey("Then they count toward total but not community", func() {
				So(err, ShouldBeNil)
				So(res.TotalAnalyzed, ShouldEqual, 11)
				So(res.CommunityAnalyzed, ShouldEqual, 10)
				So(res.CommunityScore, ShouldEqual, 200)
			})
		})

		Convey("When the history reaches past the lookback horizon", func() {
			h := oldComments(10, 200)
			h.Upsert(model.Contribution{
				FullID:    "t1_ancient",
				Community: community,
				Score:     77,
				CreatedAt: now.Add(-3 * 365 * 24 * time.Hour),
				Kind:      model.KindComment,
			})
			engine, _, _ := newEngine(h, &fakeFlairPlatform{}, &fakeAuditor{})
			res, err := engine.Reflair(ctx, "alice", nil, nil)

			Convey("Then the walk bails after touching the ancient item", func() {
				So(err, ShouldBeNil)
				// The ancient item itself is still counted before the bail.
				So(res.CommunityScore, ShouldEqual, 277)
				So(res.TotalAnalyzed, ShouldEqual, 11)
			})
		})
	})
}

func TestFlairPasses(t *testing.T) {
	Convey("Given the two-pass flair update", t, func() {
		ctx := context.Background()

		Convey("When the trial pass shows no semantic change", func() {
			platform := &fakeFlairPlatform{}
			engine, _, _ := newEngine(oldComments(10, 200), platform, &fakeAuditor{})
			// Established user whose known flair carries no marker: no change.
			known := "Veteran"
			category := ""
			res, err := engine.Reflair(ctx, "alice", &known, &category)

			Convey("Then no remote fetch or commit happens", func() {
				So(err, ShouldBeNil)
				So(res.FlairChanged, ShouldBeFalse)
				So(platform.fetches, ShouldEqual, 0)
				So(platform.setCalls, ShouldEqual, 0)
			})
		})

		Convey("When the trial pass indicates a change", func() {
			platform := &fakeFlairPlatform{remoteText: ""}
			engine, _, _ := newEngine(oldComments(2, 10), platform, &fakeAuditor{})
			known := ""
			category := ""
			res, err := engine.Reflair(ctx, "alice", &known, &category)

			Convey("Then the authoritative state is fetched and committed", func() {
				So(err, ShouldBeNil)
				So(res.IsNewcomer, ShouldBeTrue)
				So(res.FlairChanged, ShouldBeTrue)
				So(platform.fetches, ShouldEqual, 1)
				So(platform.setCalls, ShouldEqual, 1)
				So(platform.lastText, ShouldEqual, flair.Marker)
			})
		})

		Convey("When no trial data is supplied", func() {
			platform := &fakeFlairPlatform{remoteText: flair.Marker}
			engine, _, _ := newEngine(oldComments(10, 200), platform, &fakeAuditor{})
			res, err := engine.Reflair(ctx, "alice", nil, nil)

			Convey("Then the authoritative pass always runs", func() {
				So(err, ShouldBeNil)
				So(platform.fetches, ShouldEqual, 1)
				// Established user sheds the marker.
				So(res.FlairChanged, ShouldBeTrue)
				So(platform.lastText, ShouldEqual, "")
			})
		})

		Convey("When the flair category is ignore-listed", func() {
			platform := &fakeFlairPlatform{remoteText: "", remoteCategory: "moderator"}
			engine, _, _ := newEngine(oldComments(1, 1), platform, &fakeAuditor{},
				scoring.WithCategoryIgnoreList([]string{"moderator"}))
			res, err := engine.Reflair(ctx, "alice", nil, nil)

			Convey("Then the newcomer tag is forced off despite the verdict", func() {
				So(err, ShouldBeNil)
				So(res.IsNewcomer, ShouldBeTrue)
				So(res.FlairChanged, ShouldBeFalse)
				So(platform.setCalls, ShouldEqual, 0)
			})
		})
	})
}

func TestHandleContent(t *testing.T) {
	Convey("Given an engine handling queued events", t, func() {
		ctx := context.Background()

		Convey("When two live events for one user arrive within the window", func() {
			platform := &fakeFlairPlatform{}
			auditor := &fakeAuditor{}
			engine, historian, _ := newEngine(oldComments(10, 200), platform, auditor)

			ev := model.ContentEvent{FullID: "t1_x", Author: "alice", Body: "hi"}
			So(engine.HandleContent(ctx, ev), ShouldBeNil)
			So(engine.HandleContent(ctx, ev), ShouldBeNil)

			Convey("Then exactly one full evaluation runs", func() {
				So(historian.queries, ShouldEqual, 1)
				So(len(auditor.dataPoints), ShouldEqual, 1)
			})
		})

		Convey("When a catch-up event follows a live evaluation in the same epoch", func() {
			auditor := &fakeAuditor{}
			engine, historian, _ := newEngine(oldComments(10, 200), &fakeFlairPlatform{}, auditor)

			So(engine.HandleContent(ctx, model.ContentEvent{FullID: "t1_x", Author: "alice"}), ShouldBeNil)
			So(engine.HandleContent(ctx, model.ContentEvent{FullID: "t1_y", Author: "alice", CatchUp: true}), ShouldBeNil)

			Convey("Then the catch-up never triggers evaluation", func() {
				So(historian.queries, ShouldEqual, 1)
			})
		})

		Convey("When the epoch advances between events", func() {
			auditor := &fakeAuditor{}
			engine, historian, registry := newEngine(oldComments(10, 200), &fakeFlairPlatform{}, auditor)

			So(engine.HandleContent(ctx, model.ContentEvent{FullID: "t1_x", Author: "alice"}), ShouldBeNil)
			registry.AdvanceEpoch()
			So(engine.HandleContent(ctx, model.ContentEvent{FullID: "t1_y", Author: "alice", CatchUp: true}), ShouldBeNil)

			Convey("Then the epoch mismatch re-admits the user", func() {
				So(historian.queries, ShouldEqual, 2)
			})
		})

		Convey("When the author is deleted or ignore-listed", func() {
			auditor := &fakeAuditor{}
			engine, historian, _ := newEngine(oldComments(10, 200), &fakeFlairPlatform{}, auditor,
				scoring.WithUserIgnoreList([]string{"AutoModerator"}))

			So(engine.HandleContent(ctx, model.ContentEvent{Author: "[deleted]"}), ShouldBeNil)
			So(engine.HandleContent(ctx, model.ContentEvent{Author: "AutoModerator"}), ShouldBeNil)

			Convey("Then no evaluation happens", func() {
				So(historian.queries, ShouldEqual, 0)
				So(len(auditor.dataPoints), ShouldEqual, 0)
			})
		})

		Convey("When a catch-up event is evaluated", func() {
			auditor := &fakeAuditor{}
			engine, _, _ := newEngine(oldComments(10, 200), &fakeFlairPlatform{}, auditor)

			So(engine.HandleContent(ctx, model.ContentEvent{FullID: "t1_x", Author: "alice", CatchUp: true}), ShouldBeNil)

			Convey("Then the data point is tagged as catch-up", func() {
				So(len(auditor.dataPoints), ShouldEqual, 1)
				So(auditor.dataPoints[0].IsCatchUp, ShouldBeTrue)
				So(auditor.dataPoints[0].FullID, ShouldEqual, "[catch-up]")
			})
		})
	})
}
