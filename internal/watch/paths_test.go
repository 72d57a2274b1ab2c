package watch

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPaths(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for _, p := range []string{"/docs/index.rst", "/docs/intro.rst", "/docs/conf.py"} {
		setMtime(t, fsys, p, at(1))
	}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "plain paths kept in order",
			args: []string{"/docs/intro.rst", "/docs/conf.py"},
			want: []string{"/docs/intro.rst", "/docs/conf.py"},
		},
		{
			name: "glob expanded sorted",
			args: []string{"/docs/*.rst"},
			want: []string{"/docs/index.rst", "/docs/intro.rst"},
		},
		{
			name: "duplicates dropped",
			args: []string{"/docs/intro.rst", "/docs/*.rst", "/docs/intro.rst"},
			want: []string{"/docs/intro.rst", "/docs/index.rst"},
		},
		{
			name: "unmatched glob kept literally",
			args: []string{"/docs/*.md"},
			want: []string{"/docs/*.md"},
		},
		{
			name: "missing plain path kept",
			args: []string{"/docs/missing.rst"},
			want: []string{"/docs/missing.rst"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPaths(fsys, tt.args)
			require.NoError(t, err)
			assert.Equal(t, toSlash(tt.want), toSlash(got))
		})
	}
}

func TestExpandPaths_Empty(t *testing.T) {
	_, err := ExpandPaths(afero.NewMemMapFs(), nil)
	require.ErrorIs(t, err, ErrNoPaths)
}

func TestExpandPaths_BadPattern(t *testing.T) {
	fsys := afero.NewMemMapFs()
	setMtime(t, fsys, "/docs/index.rst", at(1))

	_, err := ExpandPaths(fsys, []string{"/docs/[.rst"})
	require.ErrorIs(t, err, filepath.ErrBadPattern)
}

func toSlash(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.ToSlash(p)
	}

	return out
}
