// Package config loads engine configuration via spf13/viper, the
// stack jmylchreest/tvarr uses for its daemon config (the teacher has
// no config package of its own).
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config mirrors the recognized options table in spec.md §6.
type Config struct {
	DownloadBasePath       string
	TempPath               string
	ParallelDownloads      int
	SegmentConcurrency     int
	DefaultQuality         string
	DefaultLanguages       []string
	ExtractorBaseURL       string
	ResolverTimeoutSeconds int
	RetryMaxAttempts       int
	RetryBaseDelayMs       int
	RetryMaxDelayMs        int
}

// RetryBaseDelay and RetryMaxDelay as time.Duration convenience
// accessors for the segment fetcher.
func (c Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

func (c Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

// Load reads configuration from the given viper instance, falling
// back to spec.md §6's documented defaults. Passing nil uses a fresh
// viper.Viper with only environment variables considered.
func Load(v *viper.Viper) Config {
	if v == nil {
		v = viper.New()
		v.AutomaticEnv()
	}

	v.SetDefault("parallelDownloads", 3)
	v.SetDefault("segmentConcurrency", 5)
	v.SetDefault("defaultQuality", "best")
	v.SetDefault("defaultLanguages", "en")
	// retryMaxAttempts is "effectively unbounded" by default per
	// spec.md §9, but MUST be a finite configurable ceiling; we pick a
	// generous but finite default rather than a language max-int
	// sentinel (the spec calls that a design smell).
	v.SetDefault("retryMaxAttempts", 1000)
	v.SetDefault("retryBaseDelayMs", 500)
	v.SetDefault("retryMaxDelayMs", 30000)

	languages := v.GetString("defaultLanguages")
	var langs []string
	for _, l := range strings.Split(languages, ",") {
		l = strings.TrimSpace(l)
		if l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}

	return Config{
		DownloadBasePath:       v.GetString("downloadBasePath"),
		TempPath:               v.GetString("tempPath"),
		ParallelDownloads:      v.GetInt("parallelDownloads"),
		SegmentConcurrency:     v.GetInt("segmentConcurrency"),
		DefaultQuality:         v.GetString("defaultQuality"),
		DefaultLanguages:       langs,
		ExtractorBaseURL:       v.GetString("extractorBaseUrl"),
		ResolverTimeoutSeconds: v.GetInt("resolverTimeoutSeconds"),
		RetryMaxAttempts:       v.GetInt("retryMaxAttempts"),
		RetryBaseDelayMs:       v.GetInt("retryBaseDelayMs"),
		RetryMaxDelayMs:        v.GetInt("retryMaxDelayMs"),
	}
}
