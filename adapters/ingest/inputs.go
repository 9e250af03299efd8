package ingest

import (
	"fmt"
	"path/filepath"
	"sort"

	"dynaconn/internal/errors"
)

// ResolveInputs produces the ordered list of subject files. An explicit
// list wins as given; otherwise dir is globbed with pattern and sorted
// lexically so subject indices are stable across runs.
func ResolveInputs(dir, pattern string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return append([]string(nil), explicit...), nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, errors.Configuration(fmt.Sprintf("bad input pattern %q: %v", pattern, err))
	}
	if len(matches) == 0 {
		return nil, errors.Configuration(fmt.Sprintf("no input files match %s", filepath.Join(dir, pattern)))
	}

	sort.Strings(matches)
	return matches, nil
}
