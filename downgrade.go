package inferguard

import "github.com/ineyio/inferguard/audit"

// DowngradeDetector compares the requested model against the model the
// upstream actually served.
type DowngradeDetector struct {
	audit *audit.Logger
}

// NewDowngradeDetector creates a detector emitting to the given audit
// logger. A nil logger disables emission but not detection.
func NewDowngradeDetector(log *audit.Logger) *DowngradeDetector {
	return &DowngradeDetector{audit: log}
}

// Detect reports whether a downgrade happened. On mismatch it emits
// exactly one warning-severity audit event carrying both values. Pure
// comparison otherwise; no failure path.
func (d *DowngradeDetector) Detect(requested, actual string) bool {
	if requested == actual {
		return false
	}
	if d.audit != nil {
		d.audit.Log(map[string]any{
			"type":            "model_downgrade",
			"severity":        "warning",
			"requested_model": requested,
			"actual_model":    actual,
		})
	}
	return true
}
