package feedme

import (
	"github.com/imdario/mergo"

	"github.com/auriora/feedme-client/pkg/logging"
)

// Options configures a Client. See SPEC_FULL.md section A for how a YAML
// file is merged into these defaults.
//
// The numeric/bool fields are pointers so mergeWithDefaults can tell "the
// caller didn't set this" (nil) apart from "the caller explicitly chose the
// zero value" (a non-nil pointer to 0/false) — several of these fields have
// a meaningful zero (0 disables a timer, R=0 means never reopen,
// Reconnect=false disables reconnect), so a plain value-typed field would
// make that explicit choice indistinguishable from "unset" once merged
// against DefaultOptions(), which is non-zero almost everywhere.
type Options struct {
	// ConnectTimeoutMs bounds a single connect+handshake attempt. 0 disables the timer.
	ConnectTimeoutMs *int `yaml:"connectTimeoutMs"`

	// ConnectRetryMs is the base delay between reconnect attempts. Negative disables retries.
	ConnectRetryMs *int `yaml:"connectRetryMs"`

	// ConnectRetryBackoffMs is the incremental delay added per retry attempt.
	ConnectRetryBackoffMs *int `yaml:"connectRetryBackoffMs"`

	// ConnectRetryMaxMs caps the computed retry delay.
	ConnectRetryMaxMs *int `yaml:"connectRetryMaxMs"`

	// ConnectRetryMaxAttempts stops retrying after this many attempts. 0 means unlimited.
	ConnectRetryMaxAttempts *int `yaml:"connectRetryMaxAttempts"`

	// ActionTimeoutMs bounds an in-flight action. 0 disables per-action timeout.
	ActionTimeoutMs *int `yaml:"actionTimeoutMs"`

	// FeedTimeoutMs bounds an in-flight FeedOpen. 0 disables feed-open timeout.
	FeedTimeoutMs *int `yaml:"feedTimeoutMs"`

	// Reconnect controls whether a post-connected drop triggers a reconnect attempt.
	Reconnect *bool `yaml:"reconnect"`

	// ReopenMaxAttempts (R) and ReopenTrailingMs (T) govern reopen throttling (spec §4.5).
	ReopenMaxAttempts *int `yaml:"reopenMaxAttempts"`
	ReopenTrailingMs  *int `yaml:"reopenTrailingMs"`

	// LogLevel is the ambient logging verbosity, same shape as the teacher's Config.LogLevel.
	// An empty string unambiguously means "unset" so it stays a plain string.
	LogLevel string `yaml:"log"`

	// Transport is the caller-supplied capability the Session drives. It is
	// required and is never populated from a YAML file.
	Transport Transport `yaml:"-"`
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

// DefaultOptions returns the protocol's documented defaults.
func DefaultOptions() Options {
	return Options{
		ConnectTimeoutMs:        intPtr(10_000),
		ConnectRetryMs:          intPtr(500),
		ConnectRetryBackoffMs:   intPtr(1_000),
		ConnectRetryMaxMs:       intPtr(30_000),
		ConnectRetryMaxAttempts: intPtr(0),
		ActionTimeoutMs:         intPtr(10_000),
		FeedTimeoutMs:           intPtr(10_000),
		Reconnect:               boolPtr(true),
		ReopenMaxAttempts:       intPtr(-1),
		ReopenTrailingMs:        intPtr(0),
		LogLevel:                "debug",
	}
}

// mergeWithDefaults fills any unset (nil) field of opts from defaults, the
// same mergo.Merge pattern the teacher's cmd/common.mergeWithDefaults uses.
// mergo.WithoutDereference is required here: without it mergo recurses into
// a non-nil pointer and merges its pointee too, which would treat an
// explicit 0/false the same as "unset" all over again. WithoutDereference
// keeps each pointer an atomic unit — nil gets filled in, non-nil is the
// caller's explicit choice and is left alone.
func mergeWithDefaults(opts *Options, defaults Options) error {
	return mergo.Merge(opts, defaults, mergo.WithoutDereference)
}

// validateOptions clamps out-of-range values and logs a warning per value,
// mirroring the teacher's cmd/common.validateConfig. By the time this runs,
// mergeWithDefaults has already filled every pointer field from
// DefaultOptions(), so none of them are nil here.
func validateOptions(opts *Options) {
	if *opts.ConnectTimeoutMs < 0 {
		logging.Warn().Int("connectTimeoutMs", *opts.ConnectTimeoutMs).Msg("connectTimeoutMs must be non-negative, using default")
		opts.ConnectTimeoutMs = DefaultOptions().ConnectTimeoutMs
	}
	if *opts.ConnectRetryBackoffMs < 0 {
		logging.Warn().Int("connectRetryBackoffMs", *opts.ConnectRetryBackoffMs).Msg("connectRetryBackoffMs must be non-negative, using default")
		opts.ConnectRetryBackoffMs = DefaultOptions().ConnectRetryBackoffMs
	}
	if *opts.ConnectRetryMaxMs < 0 {
		logging.Warn().Int("connectRetryMaxMs", *opts.ConnectRetryMaxMs).Msg("connectRetryMaxMs must be non-negative, using default")
		opts.ConnectRetryMaxMs = DefaultOptions().ConnectRetryMaxMs
	}
	if *opts.ConnectRetryMaxAttempts < 0 {
		logging.Warn().Int("connectRetryMaxAttempts", *opts.ConnectRetryMaxAttempts).Msg("connectRetryMaxAttempts must be non-negative, using default")
		opts.ConnectRetryMaxAttempts = DefaultOptions().ConnectRetryMaxAttempts
	}
	if *opts.ReopenTrailingMs < 0 {
		logging.Warn().Int("reopenTrailingMs", *opts.ReopenTrailingMs).Msg("reopenTrailingMs must be non-negative, using default")
		opts.ReopenTrailingMs = DefaultOptions().ReopenTrailingMs
	}
	if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
		logging.Warn().Str("logLevel", opts.LogLevel).Msg("invalid log level, using default")
		opts.LogLevel = DefaultOptions().LogLevel
	}
}

// NewOptions merges partial into DefaultOptions() and validates the result.
// It never errors: any out-of-range field is clamped and logged, following
// the teacher's LoadConfig philosophy of "never fail, fall back to safe
// defaults."
func NewOptions(partial Options) Options {
	opts := partial
	_ = mergeWithDefaults(&opts, DefaultOptions())
	validateOptions(&opts)
	return opts
}
