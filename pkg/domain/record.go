package domain

import "time"

// Record is one row of the dataset. Values are aligned with Columns.
type Record struct {
	Columns []string
	Values  []string
}

// Get returns the value stored under column, or false if the column is unknown.
func (r Record) Get(column string) (string, bool) {
	for i, c := range r.Columns {
		if c == column {
			if i < len(r.Values) {
				return r.Values[i], true
			}
			return "", true
		}
	}
	return "", false
}

// Map returns the record keyed by column name. Missing values are empty strings.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.Columns))
	for i, c := range r.Columns {
		if i < len(r.Values) {
			m[c] = r.Values[i]
		} else {
			m[c] = ""
		}
	}
	return m
}

// Snapshot is one immutable capture of the dataset.
// All records share the Columns slice of the snapshot.
type Snapshot struct {
	Columns  []string
	Records  []Record
	Source   string
	LoadedAt time.Time
}

// Len returns the number of records, tolerating a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}
