package policy

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// policySchema constrains operator-supplied policy files. Every field
// is optional; omitted fields keep the shipped defaults. The closed
// definition rejects unknown fields with their file position.
const policySchema = `
#Policy: {
	full_depth?:    int & >0
	partial_depth?: int & >0
	high_fanout?:   int & >0
	kill_fanout?:   int & >0
	kill_switch?:   bool
}
`

// Load reads a CUE policy file and returns the resulting policy.
// The file is unified with the schema, so unknown fields and
// out-of-range values are rejected with their file position.
func Load(path string) (*Policy, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	cctx := cuecontext.New()
	schema := cctx.CompileString(policySchema).LookupPath(cue.ParsePath("#Policy"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("load policy: compile schema: %w", err)
	}

	val := cctx.CompileBytes(src, cue.Filename(path))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(); err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	p := Default()
	if err := decodeInt(unified, "full_depth", &p.FullDepth); err != nil {
		return nil, err
	}
	if err := decodeInt(unified, "partial_depth", &p.PartialDepth); err != nil {
		return nil, err
	}
	if err := decodeInt(unified, "high_fanout", &p.HighFanout); err != nil {
		return nil, err
	}
	if err := decodeInt(unified, "kill_fanout", &p.KillFanout); err != nil {
		return nil, err
	}
	if p.PartialDepth < p.FullDepth {
		return nil, fmt.Errorf("load policy: partial_depth (%d) below full_depth (%d)", p.PartialDepth, p.FullDepth)
	}

	ks := unified.LookupPath(cuePath("kill_switch"))
	if ks.Exists() {
		on, err := ks.Bool()
		if err != nil {
			return nil, fmt.Errorf("load policy: kill_switch: %w", err)
		}
		p.SetKillSwitch(on)
	}
	return p, nil
}
