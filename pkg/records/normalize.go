package records

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/careops/visitsync/pkg/errors"
)

// Per-system key mapping onto the canonical SourceRecord shape. Keys not
// listed here are preserved as extension fields.
var (
	openPhoneKeys = mapping{
		externalID: []string{"callId", "id"},
		subject:    []string{"caregiverId"},
		phone:      []string{"from", "phoneNumber"},
		start:      []string{"startedAt", "createdAt"},
		end:        []string{"completedAt", "endedAt"},
		notes:      []string{"summary"},
		duration:   []string{"duration"},
	}

	axisCareKeys = mapping{
		externalID: []string{"visitId", "id"},
		subject:    []string{"caregiverId", "caregiver_id"},
		phone:      []string{"phone", "phoneNumber"},
		start:      []string{"visit_start", "scheduledStart"},
		end:        []string{"visit_end", "scheduledEnd"},
		notes:      []string{"notes"},
		duration:   []string{"duration", "durationMinutes"},
	}
)

type mapping struct {
	externalID []string
	subject    []string
	phone      []string
	start      []string
	end        []string
	notes      []string
	duration   []string
}

func (m mapping) known() map[string]bool {
	out := make(map[string]bool)
	for _, group := range [][]string{m.externalID, m.subject, m.phone, m.start, m.end, m.notes, m.duration} {
		for _, k := range group {
			out[k] = true
		}
	}
	return out
}

// Normalize decodes a raw source payload into the canonical SourceRecord
// for the given system. Unknown scalar fields are preserved in Fields.
// Returns a MalformedRecordError when the record lacks an identity the
// pipeline needs: an external ID, a subject, or both timestamps.
func Normalize(raw json.RawMessage, system SystemID) (SourceRecord, error) {
	if !system.IsValid() {
		return SourceRecord{}, errors.NewValidationError("system", string(system), "unknown source system")
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return SourceRecord{}, errors.WrapParse("json", string(system), err)
	}

	keys := openPhoneKeys
	if system == SystemAxisCare {
		keys = axisCareKeys
	}

	rec := SourceRecord{
		System: system,
		Fields: make(map[string]string),
		Raw:    raw,
	}

	rec.ExternalID = firstString(payload, keys.externalID)
	rec.SubjectID = firstString(payload, keys.subject)
	rec.Start = firstTime(payload, keys.start)
	rec.End = firstTime(payload, keys.end)

	if phone := firstString(payload, keys.phone); phone != "" {
		rec.Fields[FieldPhone] = FormatPhone(phone)
		// OpenPhone calls carry no caregiver ID. The formatted caller
		// number is the subject key instead.
		if rec.SubjectID == "" && system == SystemOpenPhone {
			rec.SubjectID = rec.Fields[FieldPhone]
		}
	}
	if notes := firstString(payload, keys.notes); notes != "" {
		rec.Fields[FieldNotes] = notes
	}
	if dur, ok := firstNumber(payload, keys.duration); ok {
		rec.Fields[FieldDuration] = strconv.Itoa(dur)
	} else if !rec.Start.IsZero() && !rec.End.IsZero() {
		rec.Fields[FieldDuration] = strconv.Itoa(int(rec.End.Sub(rec.Start).Round(time.Minute) / time.Minute))
	}
	rec.Fields[FieldSubject] = rec.SubjectID

	known := keys.known()
	for k, v := range payload {
		if known[k] {
			continue
		}
		switch val := v.(type) {
		case string:
			rec.Fields[k] = val
		case float64:
			rec.Fields[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			rec.Fields[k] = strconv.FormatBool(val)
		}
	}

	var missing []string
	if rec.ExternalID == "" {
		missing = append(missing, "external_id")
	}
	if rec.SubjectID == "" {
		missing = append(missing, "subject_id")
	}
	if rec.Start.IsZero() && rec.End.IsZero() {
		missing = append(missing, "timestamps")
	}
	if len(missing) > 0 {
		return SourceRecord{}, errors.NewMalformedRecordError(string(system), rec.ExternalID, missing...)
	}

	return rec, nil
}

// NormalizeAll normalizes a batch, splitting the results into usable
// records and per-record ingestion failures. A bad record never aborts
// the batch.
func NormalizeAll(raws []json.RawMessage, system SystemID, now time.Time) ([]SourceRecord, []IngestionFailure) {
	var (
		recs     []SourceRecord
		failures []IngestionFailure
	)
	for _, raw := range raws {
		rec, err := Normalize(raw, system)
		if err != nil {
			failures = append(failures, IngestionFailure{
				System:     system,
				ExternalID: externalIDHint(raw, system),
				Reason:     err.Error(),
				DetectedAt: now,
			})
			continue
		}
		recs = append(recs, rec)
	}
	return recs, failures
}

// externalIDHint best-effort extracts an ID from a payload that failed
// normalization, so the ingestion failure is traceable.
func externalIDHint(raw json.RawMessage, system SystemID) string {
	var payload map[string]any
	if json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	keys := openPhoneKeys.externalID
	if system == SystemAxisCare {
		keys = axisCareKeys.externalID
	}
	return firstString(payload, keys)
}

func firstString(payload map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := payload[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstNumber(payload map[string]any, keys []string) (int, bool) {
	for _, k := range keys {
		switch v := payload[k].(type) {
		case float64:
			return int(v), true
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func firstTime(payload map[string]any, keys []string) time.Time {
	for _, k := range keys {
		s, ok := payload[k].(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
