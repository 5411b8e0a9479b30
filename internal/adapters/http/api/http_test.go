package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flairward/flairward/internal/adapters/http/api"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDeps struct {
	result     api.Result
	reflairErr error
	reflaired  []string
	usernames  []string
	usersErr   error
}

func (m *mockDeps) Reflair(_ context.Context, username string) (api.Result, error) {
	m.reflaired = append(m.reflaired, username)
	if m.reflairErr != nil {
		return api.Result{}, m.reflairErr
	}
	return m.result, nil
}

func (m *mockDeps) KnownUsernames(context.Context) ([]string, error) {
	if m.usersErr != nil {
		return nil, m.usersErr
	}
	return m.usernames, nil
}

type mockStats struct{}

func (mockStats) GetStats() api.Stats {
	return api.Stats{Started: true, Community: "gophers", DebouncedUsers: 2}
}

func newTestServer(deps *mockDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}).Register(mux)
	return httptest.NewServer(mux)
}

func TestAPI(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDeps{
			result:    api.Result{IsNewcomer: true, FlairChanged: true, CommunityScore: 40, Summary: "alice IsNewcomer: true"},
			usernames: []string{"alice", "bob"},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When POST /reflair/alice is called", func() {
			resp, err := http.Post(srv.URL+"/reflair/alice", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the evaluation result is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var result api.Result
				So(json.NewDecoder(resp.Body).Decode(&result), ShouldBeNil)
				So(result.IsNewcomer, ShouldBeTrue)
				So(result.CommunityScore, ShouldEqual, 40)
				So(deps.reflaired, ShouldResemble, []string{"alice"})
			})
		})

		Convey("When the reflair username is missing or nested", func() {
			for _, path := range []string{"/reflair/", "/reflair/a/b"} {
				resp, err := http.Post(srv.URL+path, "application/json", nil)
				So(err, ShouldBeNil)
				resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			}
			So(deps.reflaired, ShouldBeEmpty)
		})

		Convey("When reflair is requested with GET", func() {
			resp, err := http.Get(srv.URL + "/reflair/alice")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the evaluation fails", func() {
			deps.reflairErr = errors.New("history source unavailable")
			resp, err := http.Post(srv.URL+"/reflair/alice", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When GET /users is called", func() {
			resp, err := http.Get(srv.URL + "/users")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var body struct {
				Count     int      `json:"count"`
				Usernames []string `json:"usernames"`
			}
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body.Count, ShouldEqual, 2)
			So(body.Usernames, ShouldResemble, []string{"alice", "bob"})
		})

		Convey("When GET /stats is called", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var stats api.Stats
			So(json.NewDecoder(resp.Body).Decode(&stats), ShouldBeNil)
			So(stats.Started, ShouldBeTrue)
			So(stats.Community, ShouldEqual, "gophers")
			So(stats.DebouncedUsers, ShouldEqual, 2)
		})

		Convey("When GET /healthz is called", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(strings.Contains(resp.Header.Get("Content-Type"), "text"), ShouldBeTrue)
		})
	})
}
