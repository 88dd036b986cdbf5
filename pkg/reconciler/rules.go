package reconciler

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/careops/visitsync/pkg/errors"
)

// Rules holds the comparison tolerances the matcher and validator apply.
// Tolerances are configuration, not constants: operators tune them per
// deployment through a YAML rules file.
type Rules struct {
	// WindowTolerance widens each visit window when the matcher looks for
	// overlapping calls.
	WindowTolerance time.Duration

	// DurationTolerance is the allowed absolute difference between call
	// duration and scheduled visit duration before a mismatch is flagged.
	DurationTolerance time.Duration

	// NotesMinLen and NotesMaxLen bound acceptable call summary length.
	NotesMinLen int
	NotesMaxLen int

	// UnmatchedVisitIsFailure turns scheduled visits with no call into
	// validation failures instead of pass-summary entries.
	UnmatchedVisitIsFailure bool
}

// DefaultRules returns the stock tolerances.
func DefaultRules() Rules {
	return Rules{
		WindowTolerance:   5 * time.Minute,
		DurationTolerance: 2 * time.Minute,
		NotesMinLen:       10,
		NotesMaxLen:       500,
	}
}

// rulesFile is the YAML shape. Durations are Go duration strings.
type rulesFile struct {
	WindowTolerance         string `yaml:"window_tolerance"`
	DurationTolerance       string `yaml:"duration_tolerance"`
	NotesMinLen             *int   `yaml:"notes_min_len"`
	NotesMaxLen             *int   `yaml:"notes_max_len"`
	UnmatchedVisitIsFailure bool   `yaml:"unmatched_visit_is_failure"`
}

// LoadRules reads a YAML rules file, filling unset keys from defaults.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, errors.WrapIO("read", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes YAML rules, filling unset keys from defaults.
func ParseRules(data []byte) (Rules, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Rules{}, errors.WrapParse("yaml", "rules", err)
	}

	rules := DefaultRules()
	if file.WindowTolerance != "" {
		d, err := time.ParseDuration(file.WindowTolerance)
		if err != nil {
			return Rules{}, errors.NewValidationError("window_tolerance", file.WindowTolerance, "invalid duration")
		}
		rules.WindowTolerance = d
	}
	if file.DurationTolerance != "" {
		d, err := time.ParseDuration(file.DurationTolerance)
		if err != nil {
			return Rules{}, errors.NewValidationError("duration_tolerance", file.DurationTolerance, "invalid duration")
		}
		rules.DurationTolerance = d
	}
	if file.NotesMinLen != nil {
		rules.NotesMinLen = *file.NotesMinLen
	}
	if file.NotesMaxLen != nil {
		rules.NotesMaxLen = *file.NotesMaxLen
	}
	rules.UnmatchedVisitIsFailure = file.UnmatchedVisitIsFailure

	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate checks the rules for internal consistency.
func (r Rules) Validate() error {
	if r.WindowTolerance < 0 {
		return errors.NewValidationError("window_tolerance", r.WindowTolerance.String(), "must not be negative")
	}
	if r.DurationTolerance < 0 {
		return errors.NewValidationError("duration_tolerance", r.DurationTolerance.String(), "must not be negative")
	}
	if r.NotesMinLen < 0 || r.NotesMaxLen < r.NotesMinLen {
		return errors.NewValidationError("notes_max_len", r.NotesMaxLen, "length bounds are inverted")
	}
	return nil
}
