package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treepilot/family"
	"treepilot/family/familytest"
)

func intp(v int) *int { return &v }

func TestRecordValidator_CleanTree(t *testing.T) {
	findings := NewRecordValidator().Validate(familytest.JaneDoe())
	assert.Empty(t, findings)
}

func TestRecordValidator_Findings(t *testing.T) {
	tests := []struct {
		name     string
		record   *family.Record
		strict   bool
		wantErr  bool
		contains string
	}{
		{
			name:     "nil record",
			record:   nil,
			wantErr:  true,
			contains: "no record",
		},
		{
			name: "missing id",
			record: &family.Record{ID: "@I1@", Descendants: []*family.Record{
				{FullName: "Nobody"},
			}},
			wantErr:  true,
			contains: "without identifier",
		},
		{
			name: "pedigree collapse is a warning",
			record: &family.Record{ID: "@I1@", Ancestors: []*family.Record{
				{ID: "@I2@", Children: []*family.Record{{ID: "@I9@"}}},
				{ID: "@I3@", Children: []*family.Record{{ID: "@I9@"}}},
			}},
			wantErr:  false,
			contains: "appears more than once",
		},
		{
			name: "duplicate is an error in strict mode",
			record: &family.Record{ID: "@I1@", Children: []*family.Record{
				{ID: "@I1@"},
			}},
			strict:   true,
			wantErr:  true,
			contains: "appears more than once",
		},
		{
			name:     "death before birth",
			record:   &family.Record{ID: "@I1@", BirthYear: intp(1900), DeathYear: intp(1890)},
			wantErr:  false,
			contains: "death year 1890 before birth year 1900",
		},
		{
			name: "parent younger than child",
			record: &family.Record{ID: "@I1@", BirthYear: intp(1900), Ancestors: []*family.Record{
				{ID: "@I2@", BirthYear: intp(1920)},
			}},
			wantErr:  false,
			contains: "after child",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewRecordValidator()
			v.SetStrictMode(tt.strict)
			findings := v.Validate(tt.record)
			require.NotEmpty(t, findings)
			assert.Equal(t, tt.wantErr, HasErrors(findings))

			found := false
			for _, f := range findings {
				if strings.Contains(f.Error(), tt.contains) {
					found = true
				}
			}
			assert.True(t, found, "no finding mentions %q: %v", tt.contains, findings)
		})
	}
}

func TestCheckAncestry(t *testing.T) {
	ok := map[string][]string{
		"@I1@": {"@I2@", "@I3@"},
		"@I2@": {"@I4@"},
		"@I3@": {"@I4@"},
	}
	assert.NoError(t, CheckAncestry(ok))

	loop := map[string][]string{
		"@I1@": {"@I2@"},
		"@I2@": {"@I3@"},
		"@I3@": {"@I1@"},
	}
	err := CheckAncestry(loop)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
}
