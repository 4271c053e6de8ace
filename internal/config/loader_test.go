package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/cfduel/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given no file or env overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the defaults load", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.MaxActiveDuels, ShouldEqual, 20)
			So(cfg.MaxRecent, ShouldEqual, 20)
			So(cfg.ArchiveDriver, ShouldEqual, "file")
			So(cfg.JudgeMinIntervalMS, ShouldEqual, 2000)
			So(cfg.JudgeRetries, ShouldEqual, 2)
			So(cfg.SweepIntervalS, ShouldEqual, 5)
			So(cfg.AutoCheckIntervalS, ShouldEqual, 0)
			So(cfg.DefaultTimeLimitMin, ShouldEqual, 30)
		})
	})
}

func TestEnvOverrides(t *testing.T) {
	Convey("Given env overrides", t, func() {
		t.Setenv("CFDUEL_ADDR", ":7001")
		t.Setenv("CFDUEL_MAX_ACTIVE_DUELS", "5")
		t.Setenv("CFDUEL_LOG_LEVEL", "debug")

		cfg, err := config.Load(context.Background())

		Convey("Then env beats defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7001")
			So(cfg.MaxActiveDuels, ShouldEqual, 5)
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.MaxRecent, ShouldEqual, 20)
		})
	})
}

func TestFileThenEnvPrecedence(t *testing.T) {
	Convey("Given a YAML file and an env override of the same key", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := "addr: \":7002\"\nmax_recent: 7\n"
		So(os.WriteFile(path, []byte(body), 0o644), ShouldBeNil)

		t.Setenv("CFDUEL_CONFIG", path)
		t.Setenv("CFDUEL_ADDR", ":7003")

		cfg, err := config.Load(context.Background())

		Convey("Then env wins over file, file over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7003")
			So(cfg.MaxRecent, ShouldEqual, 7)
		})
	})
}

func TestValidation(t *testing.T) {
	Convey("Given invalid settings", t, func() {
		Convey("When max_active_duels is zero", func() {
			t.Setenv("CFDUEL_MAX_ACTIVE_DUELS", "0")
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("When the archive driver is unknown", func() {
			t.Setenv("CFDUEL_ARCHIVE_DRIVER", "redis")
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("When postgres is selected without a DSN", func() {
			t.Setenv("CFDUEL_ARCHIVE_DRIVER", "postgres")
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("When the config file is missing", func() {
			t.Setenv("CFDUEL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrLoadConfig)
		})
	})
}
