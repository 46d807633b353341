package policy

import (
	"fmt"

	"cuelang.org/go/cue"
)

func cuePath(field string) cue.Path {
	return cue.ParsePath(field)
}

func decodeInt(v cue.Value, field string, dst *int) error {
	fv := v.LookupPath(cuePath(field))
	if !fv.Exists() {
		return nil
	}
	n, err := fv.Int64()
	if err != nil {
		return fmt.Errorf("load policy: %s: %w", field, err)
	}
	*dst = int(n)
	return nil
}
