// Package dedup collapses one fetch run's records to a single record per id.
package dedup

import "certsync/internal/product/models"

// Resolve keeps, for each id, the record with the most recent certification
// date. Ties keep the first arrival, and an unparseable date loses to any
// valid one. The result lists ids in order of first arrival, so resolving an
// already-resolved batch returns it unchanged.
func Resolve(records []models.Product) []models.Product {
	if len(records) == 0 {
		return nil
	}

	index := make(map[string]int, len(records))
	out := make([]models.Product, 0, len(records))
	for _, rec := range records {
		i, seen := index[rec.ID]
		if !seen {
			index[rec.ID] = len(out)
			out = append(out, rec)
			continue
		}
		if rec.CertifiedOn.NewerThan(out[i].CertifiedOn) {
			out[i] = rec
		}
	}
	return out
}
