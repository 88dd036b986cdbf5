package failurelog

import (
	"fmt"
	"strings"
	"time"

	"github.com/careops/visitsync/pkg/records"
)

// EmptyLogMessage is returned when the log holds no failures.
const EmptyLogMessage = "No validation failures logged."

// RenderText renders failures as the plain-text log the admin UI shows,
// one line per failure in append order.
func RenderText(failures []records.ValidationFailure) string {
	if len(failures) == 0 {
		return EmptyLogMessage
	}

	var b strings.Builder
	for _, f := range failures {
		b.WriteString(renderLine(f))
		b.WriteByte('\n')
	}
	return b.String()
}

func renderLine(f records.ValidationFailure) string {
	ts := f.DetectedAt.UTC().Format(time.RFC3339)

	if f.NoMatch() {
		return fmt.Sprintf("[PHONE NOT FOUND] %s - Subject: %s, Call: %s, Reason: %s [%s]",
			ts, f.SubjectID(), f.CallID(), f.Unmatched.Reason, f.Status)
	}

	return fmt.Sprintf("[VALIDATION FAILURE] %s - Subject: %s, Field: %s, Expected: %s, Actual: %s [%s]",
		ts, f.SubjectID(), f.Field, f.Expected, f.Actual, f.Status)
}
