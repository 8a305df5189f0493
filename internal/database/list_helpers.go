package database

// IS NULL OR helpers — convert empty Go values to nil so PostgreSQL
// sees NULL and the ($1::type IS NULL OR ...) pattern skips the filter.
// Used by ListEventsByLocalDateFiltered's optional activity-type/location
// narrowing; there's no int-array-filtered column in this schema (the
// teacher's pqIntArray filtered system/unit/talkgroup ids, which have no
// analog here), so it was dropped rather than kept unwired.

func pqStringArray(s []string) any {
	if len(s) == 0 {
		return nil
	}
	return s
}

func pqString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
