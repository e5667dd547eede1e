// Package search matches and formats dataset records.
package search

import (
	"strings"

	"github.com/aretw0/fieldbot/pkg/domain"
)

// Search returns every record holding term, case-insensitively, as a substring of
// any of its values. Hidden columns are searched too. Results keep snapshot order.
// An empty term matches every record.
func Search(snap *domain.Snapshot, term string) []domain.Record {
	if snap == nil {
		return nil
	}

	needle := strings.ToLower(term)
	var out []domain.Record
	for _, rec := range snap.Records {
		if matches(rec, needle) {
			out = append(out, rec)
		}
	}
	return out
}

func matches(rec domain.Record, needle string) bool {
	for _, v := range rec.Values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}
