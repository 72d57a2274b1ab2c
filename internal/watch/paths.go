package watch

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// ExpandPaths turns command-line arguments into a watch set. Arguments
// holding glob meta characters are expanded against fsys, which covers
// quoted patterns and shells that do not expand globs. A pattern without
// matches is kept as-is, the way a POSIX shell passes it on, so the
// missing-file policy decides its fate. Duplicates are dropped and the
// first occurrence wins.
func ExpandPaths(fsys afero.Fs, args []string) ([]string, error) {
	var (
		paths []string
		seen  = make(map[string]struct{}, len(args))
	)

	for _, arg := range args {
		matches := []string{arg}

		if strings.ContainsAny(arg, "*?[") {
			m, err := afero.Glob(fsys, arg)
			if err != nil {
				return nil, fmt.Errorf("expanding %q: %w", arg, err)
			}

			if len(m) > 0 {
				matches = m
			}
		}

		for _, p := range matches {
			if _, dup := seen[p]; dup {
				continue
			}

			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}

	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	return paths, nil
}
