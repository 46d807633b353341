// Package policy holds the load-shedding rules applied to feed
// fan-out: pagination depth maps to a degradation level, each level
// caps the number of authors consulted, and a kill switch forces the
// tightest cap regardless of depth.
package policy

import "sync/atomic"

// Level is a degradation band derived from pagination depth.
type Level int

const (
	// LevelFull consults every followed author.
	LevelFull Level = 0
	// LevelPartial keeps full fan-out but marks the response as
	// degraded so callers can dim secondary features.
	LevelPartial Level = 1
	// LevelHigh truncates the candidate author set.
	LevelHigh Level = 2
)

// Defaults match the shipped behavior: full fidelity through page 3,
// partial through page 6, then capped fan-out.
const (
	DefaultFullDepth    = 3
	DefaultPartialDepth = 6
	DefaultHighFanout   = 50
	DefaultKillFanout   = 10
)

// Policy is the injectable degradation configuration. The zero value
// is not usable; construct with Default or Load.
//
// KillSwitch may be flipped at runtime from another goroutine; all
// other fields are fixed after construction.
type Policy struct {
	FullDepth    int // deepest page served at LevelFull
	PartialDepth int // deepest page served at LevelPartial
	HighFanout   int // author cap at LevelHigh
	KillFanout   int // author cap while the kill switch is on

	kill atomic.Bool
}

// Default returns a policy with the shipped constants.
func Default() *Policy {
	return &Policy{
		FullDepth:    DefaultFullDepth,
		PartialDepth: DefaultPartialDepth,
		HighFanout:   DefaultHighFanout,
		KillFanout:   DefaultKillFanout,
	}
}

// Level maps pagination depth (1-based page number) to a band.
// Monotonically non-decreasing with depth.
func (p *Policy) Level(depth int) Level {
	switch {
	case depth <= p.FullDepth:
		return LevelFull
	case depth <= p.PartialDepth:
		return LevelPartial
	default:
		return LevelHigh
	}
}

// SetKillSwitch flips the global kill switch.
func (p *Policy) SetKillSwitch(on bool) {
	p.kill.Store(on)
}

// KillSwitchActive reports the current kill-switch state.
func (p *Policy) KillSwitchActive() bool {
	return p.kill.Load()
}

// Narrow truncates the followed-author list for the given level,
// preserving its order. The kill switch overrides every band.
func (p *Policy) Narrow(authorIDs []string, level Level) []string {
	if p.KillSwitchActive() {
		return truncate(authorIDs, p.KillFanout)
	}
	if level >= LevelHigh {
		return truncate(authorIDs, p.HighFanout)
	}
	return authorIDs
}

func truncate(ids []string, n int) []string {
	if len(ids) <= n {
		return ids
	}
	return ids[:n]
}
