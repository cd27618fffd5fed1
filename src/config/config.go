// Package config builds the immutable run configuration. Values come from
// defaults, an optional config file, and INCUS_AUTOBACKUP_* environment
// variables, in ascending precedence. Command-line flags override on top.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. INCUS_AUTOBACKUP_COMPRESSION=zstd.
const EnvPrefix = "INCUS_AUTOBACKUP"

// Compression algorithms accepted for published images. The archive file
// extension is derived from this choice, so it must be fixed per deployment.
var compressionExt = map[string]string{
	"gzip": ".tar.gz",
	"xz":   ".tar.xz",
	"zstd": ".tar.zst",
	"none": ".tar",
}

// Retention holds the two fixed rotation parameters.
type Retention struct {
	// DailyMaxAge is the age past which daily archives are expired.
	DailyMaxAge time.Duration
	// WeeklyKeep is the number of weekly archives kept per instance.
	WeeklyKeep int
}

// Timeouts bounds each pipeline stage. A stage exceeding its timeout is
// treated as failed; the next scheduled run is the retry mechanism.
type Timeouts struct {
	Snapshot time.Duration
	Publish  time.Duration
	Export   time.Duration
}

// Config is the process-wide configuration, constructed once at startup and
// passed by value to every component. No ambient global state.
type Config struct {
	// Root is the absolute path of the backup target directory.
	Root string
	// Compression is the image compression algorithm (gzip|xz|zstd|none).
	Compression string
	// MinFreeGiB is the free-space floor below which the run aborts.
	MinFreeGiB uint64
	// PromoteWeekday is the day on which daily archives are copied to
	// the weekly tier.
	PromoteWeekday time.Weekday
	// RequireRoot aborts the run when not running as root. The export
	// tree is typically root-owned, so this defaults to true.
	RequireRoot bool

	Timeouts  Timeouts
	Retention Retention
}

func defaults(v *viper.Viper) {
	v.SetDefault("compression", "gzip")
	v.SetDefault("min_free_gib", 50)
	v.SetDefault("promote_weekday", "Sunday")
	v.SetDefault("require_root", true)
	v.SetDefault("timeout.snapshot", "300s")
	v.SetDefault("timeout.publish", "7200s")
	v.SetDefault("timeout.export", "3600s")
	v.SetDefault("retention.daily_max_age_days", 7)
	v.SetDefault("retention.weekly_keep", 4)
}

// Load builds a Config for the given backup root from defaults, the optional
// config file at cfgFile, and environment overrides.
func Load(root, cfgFile string) (Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return fromViper(v, root)
}

func fromViper(v *viper.Viper, root string) (Config, error) {
	cfg := Config{
		Root:        root,
		Compression: strings.ToLower(v.GetString("compression")),
		MinFreeGiB:  uint64(v.GetInt64("min_free_gib")),
		RequireRoot: v.GetBool("require_root"),
		Timeouts: Timeouts{
			Snapshot: v.GetDuration("timeout.snapshot"),
			Publish:  v.GetDuration("timeout.publish"),
			Export:   v.GetDuration("timeout.export"),
		},
		Retention: Retention{
			DailyMaxAge: time.Duration(v.GetInt("retention.daily_max_age_days")) * 24 * time.Hour,
			WeeklyKeep:  v.GetInt("retention.weekly_keep"),
		},
	}
	if _, ok := compressionExt[cfg.Compression]; !ok {
		return Config{}, fmt.Errorf("unsupported compression algorithm %q (want gzip, xz, zstd or none)", cfg.Compression)
	}
	wd, err := parseWeekday(v.GetString("promote_weekday"))
	if err != nil {
		return Config{}, err
	}
	cfg.PromoteWeekday = wd
	if cfg.Retention.WeeklyKeep <= 0 {
		return Config{}, fmt.Errorf("retention.weekly_keep must be > 0, got %d", cfg.Retention.WeeklyKeep)
	}
	if cfg.Retention.DailyMaxAge <= 0 {
		return Config{}, fmt.Errorf("retention.daily_max_age_days must be > 0")
	}
	for name, d := range map[string]time.Duration{
		"timeout.snapshot": cfg.Timeouts.Snapshot,
		"timeout.publish":  cfg.Timeouts.Publish,
		"timeout.export":   cfg.Timeouts.Export,
	} {
		if d <= 0 {
			return Config{}, fmt.Errorf("%s must be > 0", name)
		}
	}
	return cfg, nil
}

// ArchiveExt returns the archive filename extension implied by the configured
// compression algorithm. Deterministic so repeated runs compute the same
// expected archive path.
func (c Config) ArchiveExt() string {
	return compressionExt[c.Compression]
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid promote_weekday %q", s)
}
