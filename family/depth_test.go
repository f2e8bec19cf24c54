package family_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treepilot/core"
	"treepilot/family"
	"treepilot/family/familytest"
)

func TestMaxDepth(t *testing.T) {
	assert.Equal(t, 0, family.MaxDepth(nil))
	assert.Equal(t, 0, family.MaxDepth(&family.PersonNode{ID: "x"}))
	assert.Equal(t, 5, family.MaxDepth(family.FromRecord(familytest.Chain(5), core.DirectionNone, 99)))
	assert.Equal(t, 1, family.MaxDepth(family.FromRecord(familytest.Wide(4), core.DirectionNone, 99)))
}

func TestMeasure(t *testing.T) {
	ext := family.Measure(familytest.JaneDoe())
	assert.Equal(t, family.Extent{Ancestors: 2, Descendants: 3}, ext)

	assert.Equal(t, family.Extent{}, family.Measure(familytest.Lonely()))
	assert.Equal(t, family.Extent{Children: 3}, family.Measure(familytest.Chain(3)))
	assert.Equal(t, family.Extent{}, family.Measure(nil))
}

func TestDepthControl(t *testing.T) {
	tests := []struct {
		name      string
		ctl       family.DepthControl
		wantMax   int
		enabled   bool
		requested int
		clamped   int
	}{
		{"no data", family.DepthControl{Available: 0, FetchLimit: 5}, 0, false, 3, 0},
		{"complete data", family.DepthControl{Available: 3, FetchLimit: 0}, 3, true, 9, 3},
		{"below fetch limit", family.DepthControl{Available: 2, FetchLimit: 5}, 2, true, 4, 2},
		{"cut at fetch limit", family.DepthControl{Available: 5, FetchLimit: 5}, 6, true, 6, 6},
		{"negative request", family.DepthControl{Available: 3}, 3, true, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMax, tt.ctl.Max())
			assert.Equal(t, tt.enabled, tt.ctl.Enabled())
			assert.Equal(t, tt.clamped, tt.ctl.Clamp(tt.requested))
		})
	}

	assert.True(t, family.DepthControl{Available: 5, FetchLimit: 5}.NeedsFetch(6))
	assert.False(t, family.DepthControl{Available: 5, FetchLimit: 0}.NeedsFetch(6))
}

func TestLifespanAndDetailLines(t *testing.T) {
	b, d := 1850, 1921
	assert.Equal(t, "(1850-1921)", family.Lifespan(&b, &d))
	assert.Equal(t, "(b. 1850)", family.Lifespan(&b, nil))
	assert.Equal(t, "", family.Lifespan(nil, nil))

	det := &family.Detail{
		FullName:    "Jane Doe",
		Gender:      "F",
		BirthYear:   &b,
		BirthPlace:  "Boston",
		Occupation:  "Teacher",
		Notes:       []string{"Moved west in 1880"},
		CustomFacts: map[string][]string{"RELI": {"Quaker"}, "EDUC": {"Normal school"}},
	}
	assert.Equal(t, []string{
		"Jane Doe",
		"Gender: female",
		"Born: 1850, Boston",
		"Occupation: Teacher",
		"- Moved west in 1880",
		"EDUC: Normal school",
		"RELI: Quaker",
	}, det.Lines())
}

func TestParseLifespan(t *testing.T) {
	tests := []struct {
		in           string
		birth, death int
		ok           bool
	}{
		{"(1850-1921)", 1850, 1921, true},
		{"(b. 1850)", 1850, 0, true},
		{"(d. 1921)", 0, 1921, true},
		{"1850-1921", 0, 0, false},
		{"(about 1850)", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			b, d, ok := family.ParseLifespan(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.birth != 0 {
				require.NotNil(t, b)
				assert.Equal(t, tt.birth, *b)
			} else {
				assert.Nil(t, b)
			}
			if tt.death != 0 {
				require.NotNil(t, d)
				assert.Equal(t, tt.death, *d)
			} else {
				assert.Nil(t, d)
			}
			if ok {
				assert.Equal(t, tt.in, family.Lifespan(b, d))
			}
		})
	}
}
