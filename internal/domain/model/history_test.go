package model_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	model "github.com/flairward/flairward/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHistoryMerge(t *testing.T) {
	Convey("Given an empty history", t, func() {
		h := model.NewHistory()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		Convey("When upserting a new contribution", func() {
			added := h.Upsert(model.Contribution{
				FullID:    "t1_a",
				Community: "gophers",
				Score:     5,
				CreatedAt: base,
				Kind:      model.KindComment,
			})

			Convey("Then it counts as added", func() {
				So(added, ShouldBeTrue)
				So(h.Len(), ShouldEqual, 1)
			})
		})

		Convey("When upserting the same full id twice", func() {
			h.Upsert(model.Contribution{FullID: "t1_a", Community: "gophers", Score: 5, CreatedAt: base, Kind: model.KindComment})
			added := h.Upsert(model.Contribution{FullID: "t1_a", Community: "gophers", Score: 11, Removed: true, CreatedAt: base, Kind: model.KindComment})

			Convey("Then the key is never duplicated and the latest fetch wins", func() {
				So(added, ShouldBeFalse)
				So(h.Len(), ShouldEqual, 1)
				got := h.Sorted()[0]
				So(got.Score, ShouldEqual, 11)
				So(got.Removed, ShouldBeTrue)
			})
		})

		Convey("When merging two overlapping refresh windows", func() {
			for _, c := range []model.Contribution{
				{FullID: "t1_a", Community: "gophers", Score: 1, CreatedAt: base, Kind: model.KindComment},
				{FullID: "t1_b", Community: "gophers", Score: 2, CreatedAt: base.Add(time.Hour), Kind: model.KindComment},
			} {
				h.Upsert(c)
			}
			for _, c := range []model.Contribution{
				{FullID: "t1_b", Community: "gophers", Score: 7, CreatedAt: base.Add(time.Hour), Kind: model.KindComment},
				{FullID: "t3_c", Community: "gophers", Score: 3, CreatedAt: base.Add(2 * time.Hour), Kind: model.KindPost},
			} {
				h.Upsert(c)
			}

			Convey("Then no key is lost or duplicated", func() {
				So(h.Len(), ShouldEqual, 3)
				So(h.CommunityCount("gophers"), ShouldEqual, 3)
			})

			Convey("Then Sorted returns newest first", func() {
				sorted := h.Sorted()
				So(sorted[0].FullID, ShouldEqual, "t3_c")
				So(sorted[2].FullID, ShouldEqual, "t1_a")
				So(h.NewestCreatedAt(), ShouldEqual, base.Add(2*time.Hour))
			})
		})
	})
}

func TestHistorySerialization(t *testing.T) {
	Convey("Given a history with comments and posts", t, func() {
		h := model.NewHistory()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		h.Upsert(model.Contribution{FullID: "t1_a", Community: "gophers", Score: 4, CreatedAt: base, Kind: model.KindComment, Body: "hi"})
		h.Upsert(model.Contribution{FullID: "t3_b", Community: "gophers", Score: 9, CreatedAt: base.Add(time.Hour), Kind: model.KindPost, Title: "post"})
		h.MarkRefreshed(base.Add(2 * time.Hour))

		Convey("When round-tripping through JSON", func() {
			raw, err := json.Marshal(h)
			So(err, ShouldBeNil)

			restored := model.NewHistory()
			So(json.Unmarshal(raw, restored), ShouldBeNil)

			Convey("Then entries and kinds survive", func() {
				So(restored.Len(), ShouldEqual, 2)
				sorted := restored.Sorted()
				So(sorted[0].Kind, ShouldEqual, model.KindPost)
				So(sorted[1].Kind, ShouldEqual, model.KindComment)
				So(restored.LastRefreshedAt(), ShouldEqual, base.Add(2*time.Hour))
			})
		})

		Convey("When deserializing a corrupt payload", func() {
			restored := model.NewHistory()

			Convey("Then invalid JSON errors", func() {
				So(json.Unmarshal([]byte("{nope"), restored), ShouldNotBeNil)
			})

			Convey("Then an entry without a creation time errors", func() {
				So(json.Unmarshal([]byte(`{"comments":[{"full_id":"t1_x","community":"gophers"}]}`), restored), ShouldNotBeNil)
			})
		})
	})
}

func TestContentEvent(t *testing.T) {
	Convey("Given content events", t, func() {
		Convey("Then deleted authors are detected", func() {
			So(model.ContentEvent{Author: "[deleted]"}.DeletedAuthor(), ShouldBeTrue)
			So(model.ContentEvent{Author: "alice"}.DeletedAuthor(), ShouldBeFalse)
		})

		Convey("Then ShortText prefers the title and truncates", func() {
			So(model.ContentEvent{Title: "a title", Body: "a body"}.ShortText(), ShouldEqual, "a title")
			So(model.ContentEvent{Body: "a body"}.ShortText(), ShouldEqual, "a body")
			long := model.ContentEvent{Body: "0123456789012345678901234567890123456789plus"}
			So(long.ShortText(), ShouldEqual, "0123456789012345678901234567890123456789…")
		})

		Convey("Then multibyte text truncates on rune boundaries", func() {
			emoji := model.ContentEvent{Body: strings.Repeat("🍅", 41)}
			excerpt := emoji.ShortText()
			So(utf8.ValidString(excerpt), ShouldBeTrue)
			So(excerpt, ShouldEqual, strings.Repeat("🍅", 40)+"…")
		})
	})
}
