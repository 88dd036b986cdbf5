package reconciler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	assert.Equal(t, 5*time.Minute, rules.WindowTolerance)
	assert.Equal(t, 2*time.Minute, rules.DurationTolerance)
	assert.Equal(t, 10, rules.NotesMinLen)
	assert.Equal(t, 500, rules.NotesMaxLen)
	assert.False(t, rules.UnmatchedVisitIsFailure)
	require.NoError(t, rules.Validate())
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(`
window_tolerance: 10m
duration_tolerance: 1m
notes_min_len: 5
unmatched_visit_is_failure: true
`))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, rules.WindowTolerance)
	assert.Equal(t, time.Minute, rules.DurationTolerance)
	assert.Equal(t, 5, rules.NotesMinLen)
	assert.Equal(t, 500, rules.NotesMaxLen, "unset keys keep defaults")
	assert.True(t, rules.UnmatchedVisitIsFailure)
}

func TestParseRulesInvalid(t *testing.T) {
	_, err := ParseRules([]byte(`window_tolerance: "soon"`))
	assert.Error(t, err)

	_, err = ParseRules([]byte("notes_min_len: 200\nnotes_max_len: 100\n"))
	assert.Error(t, err)

	_, err = ParseRules([]byte(`{not yaml`))
	assert.Error(t, err)
}
