package smoketypes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePkgManagerSpec(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		Raw           string
		Expected      PkgManagerSpec
		ExpectedError error
	}{
		"name only": {
			Raw:      "npm",
			Expected: PkgManagerSpec{Name: "npm", Requested: "latest"},
		},
		"major": {
			Raw:      "npm@8",
			Expected: PkgManagerSpec{Name: "npm", Requested: "8"},
		},
		"caret range": {
			Raw:      "yarn@^1.22",
			Expected: PkgManagerSpec{Name: "yarn", Requested: "^1.22"},
		},
		"tag": {
			Raw:      "pnpm@next",
			Expected: PkgManagerSpec{Name: "pnpm", Requested: "next"},
		},
		"uppercase and whitespace": {
			Raw:      "  NPM@7 ",
			Expected: PkgManagerSpec{Name: "npm", Requested: "7"},
		},
		"empty": {
			Raw:           "",
			ExpectedError: ErrInvalidPkgManagerSpec,
		},
		"no name": {
			Raw:           "@8",
			ExpectedError: ErrInvalidPkgManagerSpec,
		},
		"bad range": {
			Raw:           "npm@>=abc",
			ExpectedError: ErrInvalidPkgManagerSpec,
		},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			spec, err := ParsePkgManagerSpec(tc.Raw)
			if tc.ExpectedError != nil {
				require.True(t, errors.Is(err, tc.ExpectedError), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, spec)
		})
	}
}

func TestPkgManagerSpec_Satisfies(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		Requested string
		Version   string
		Expected  bool
	}{
		"major match":      {Requested: "8", Version: "8.19.4", Expected: true},
		"major mismatch":   {Requested: "8", Version: "9.1.0", Expected: false},
		"caret":            {Requested: "^1.22", Version: "1.22.19", Expected: true},
		"tag accepts any":  {Requested: "latest", Version: "10.2.0", Expected: true},
		"invalid version":  {Requested: "8", Version: "not-a-version", Expected: false},
		"v prefixed range": {Requested: "v8", Version: "8.0.0", Expected: true},
	} {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			spec := PkgManagerSpec{Name: "npm", Requested: tc.Requested}
			assert.Equal(t, tc.Expected, spec.Satisfies(tc.Version))
		})
	}
}

func TestPkgManagerSpec_KeyAndString(t *testing.T) {
	t.Parallel()

	spec := PkgManagerSpec{Name: "npm", Requested: "8"}
	assert.Equal(t, "npm@8", spec.Key())

	resolved := spec.Resolved("8.19.4", true)
	assert.Equal(t, "npm@8.19.4", resolved.Key())
	assert.Equal(t, "npm@8.19.4 (system)", resolved.String())
	assert.Equal(t, int64(8), resolved.Major())
	assert.Equal(t, int64(-1), spec.Major())
}
