// Package budget holds the fixed token-mode budget table (§3 of the
// spec). It imports no other package, so every
// pack builder can depend on it without risking an import cycle back into
// the engine.
package budget

// TokenMode selects one of the three static BudgetProfile records.
type TokenMode string

const (
	TokenModeLow    TokenMode = "low"
	TokenModeNormal TokenMode = "normal"
	TokenModeDebug  TokenMode = "debug"
)

// Profile is a fixed set of byte/count ceilings applied to a pack and its
// sub-components.
type Profile struct {
	MaxPackBytes           int
	MaxContextFiles        int
	MaxContextSummaryBytes int
	MaxFileReadBytes       int
}

// profiles is the fixed table from spec §3. Values are never computed —
// they are exactly the numbers the spec states.
var profiles = map[TokenMode]Profile{
	TokenModeLow: {
		MaxPackBytes:           14000,
		MaxContextFiles:        4,
		MaxContextSummaryBytes: 9000,
		MaxFileReadBytes:       90000,
	},
	TokenModeNormal: {
		MaxPackBytes:           24000,
		MaxContextFiles:        8,
		MaxContextSummaryBytes: 16000,
		MaxFileReadBytes:       180000,
	},
	TokenModeDebug: {
		MaxPackBytes:           42000,
		MaxContextFiles:        12,
		MaxContextSummaryBytes: 24000,
		MaxFileReadBytes:       300000,
	},
}

// Resolve returns the Profile for mode, substituting TokenModeNormal for
// any unrecognized value (§7: "Configuration inconsistency ... substitute
// documented default").
func Resolve(mode TokenMode) Profile {
	if p, ok := profiles[mode]; ok {
		return p
	}
	return profiles[TokenModeNormal]
}

// Normalize returns mode if it is one of the three recognized values,
// else TokenModeNormal.
func Normalize(mode string) TokenMode {
	switch TokenMode(mode) {
	case TokenModeLow, TokenModeDebug:
		return TokenMode(mode)
	default:
		return TokenModeNormal
	}
}
