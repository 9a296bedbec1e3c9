package restream

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError aggregates field-level problems so API callers get a
// single, precise rejection instead of failing fast on the first issue.
type ValidationError struct {
	Problems map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.Problems) == 0 {
		return "no validation errors"
	}
	keys := make([]string, 0, len(v.Problems))
	for k := range v.Problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s; ", k, v.Problems[k])
	}
	return fmt.Sprintf("validation failed (%d problem(s)); %s", len(v.Problems), strings.TrimSuffix(b.String(), "; "))
}

func (v *ValidationError) add(field, msg string) {
	if v.Problems == nil {
		v.Problems = make(map[string]string)
	}
	v.Problems[field] = msg
}

func (v *ValidationError) empty() bool { return v == nil || len(v.Problems) == 0 }

// asError returns nil if v has no problems, else v.
func (v *ValidationError) asError() error {
	if v.empty() {
		return nil
	}
	return v
}

// ValidateOutputURL enforces the dst/preview URL scheme whitelist for
// Outputs: rtmp, rtmps, icecast, file.
func ValidateOutputURL(raw string) error {
	return validateScheme(raw, "rtmp", "rtmps", "icecast", "file")
}

// ValidateMixinURL enforces the src URL scheme whitelist for Mixins:
// ts (voice chat) or http(s) (static assets).
func ValidateMixinURL(raw string) error {
	return validateScheme(raw, "ts", "http", "https")
}

// ValidatePullURL enforces the source URL scheme whitelist for Pull Inputs:
// rtmp/rtmps (server push-pull) or http/https (HLS pull).
func ValidatePullURL(raw string) error {
	return validateScheme(raw, "rtmp", "rtmps", "http", "https")
}

func validateScheme(raw string, allowed ...string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	idx := strings.Index(raw, "://")
	if idx <= 0 {
		return fmt.Errorf("must include a scheme (one of %s)", strings.Join(allowed, ", "))
	}
	scheme := raw[:idx]
	for _, a := range allowed {
		if scheme == a {
			return nil
		}
	}
	return fmt.Errorf("scheme %q not allowed (must be one of %s)", scheme, strings.Join(allowed, ", "))
}

// ValidateVolume enforces the [0, MaxVolumeLevel] bound on a Volume level.
func ValidateVolume(level int) error {
	if level < 0 || level > MaxVolumeLevel {
		return fmt.Errorf("volume level must be between 0 and %d", MaxVolumeLevel)
	}
	return nil
}

// ValidateDelayMillis enforces the [0, MaxMixinDelay] bound expressed in
// milliseconds, the unit used at the API boundary.
func ValidateDelayMillis(ms int) error {
	if ms < 0 || int64(ms) > MaxMixinDelay.Milliseconds() {
		return fmt.Errorf("delay must be between 0 and %d ms", MaxMixinDelay.Milliseconds())
	}
	return nil
}
