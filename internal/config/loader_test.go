package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flairward/flairward/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(key, "FLAIRWARD_") {
			t.Setenv(key, "")
			os.Unsetenv(key) //nolint:errcheck
		}
	}
}

func TestConfigLoader(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars(t)
		t.Setenv("FLAIRWARD_COMMUNITY", "gardening")

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Community, convey.ShouldEqual, "gardening")
				convey.So(cfg.DBPath, convey.ShouldEqual, "flairward.db")
				convey.So(cfg.DebounceMinutes, convey.ShouldEqual, 5)
				convey.So(cfg.RescanMinutes, convey.ShouldEqual, 5)
				convey.So(cfg.HistoryStaleHours, convey.ShouldEqual, 24)
				convey.So(cfg.HistoryOverlapDays, convey.ShouldEqual, 7)
				convey.So(cfg.TooNewDays, convey.ShouldEqual, 3)
				convey.So(cfg.LookbackDays, convey.ShouldEqual, 730)
				convey.So(cfg.DryRun, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When environment variables are set", func() {
			t.Setenv("FLAIRWARD_ADDR", ":8080")
			t.Setenv("FLAIRWARD_DEBOUNCE_MINUTES", "10")
			t.Setenv("FLAIRWARD_DRY_RUN", "true")
			t.Setenv("FLAIRWARD_DB_PATH", "/tmp/bot.db")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env values override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DebounceMinutes, convey.ShouldEqual, 10)
				convey.So(cfg.DryRun, convey.ShouldBeTrue)
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/bot.db")
			})
		})

		convey.Convey("When a YAML file is provided", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			yaml := "addr: \":7070\"\ncommunity: cooking\nuser_ignore_list:\n  - automoderator\n  - helper-bot\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			t.Setenv("FLAIRWARD_CONFIG", path)
			t.Setenv("FLAIRWARD_ADDR", ":8080")
			os.Unsetenv("FLAIRWARD_COMMUNITY") //nolint:errcheck

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values load and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Community, convey.ShouldEqual, "cooking")
				convey.So(cfg.UserIgnoreList, convey.ShouldResemble, []string{"automoderator", "helper-bot"})
			})
		})

		convey.Convey("When the community is missing", func() {
			os.Unsetenv("FLAIRWARD_COMMUNITY") //nolint:errcheck

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects the config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric field is invalid", func() {
			t.Setenv("FLAIRWARD_RESCAN_MINUTES", "0")

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
