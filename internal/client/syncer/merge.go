package syncer

import (
	"slices"

	"github.com/dmitrijs2005/companion/internal/client/models"
)

// unionAdditive appends incoming records whose id is missing locally.
// Local records are never replaced or removed. It returns the merged list
// and the number of records added.
func unionAdditive[T models.Identified](local, incoming []T) ([]T, int) {
	seen := make(map[string]struct{}, len(local)+len(incoming))
	for _, l := range local {
		seen[l.GetID()] = struct{}{}
	}

	out := slices.Clone(local)
	added := 0
	for _, r := range incoming {
		if _, ok := seen[r.GetID()]; ok {
			continue
		}
		seen[r.GetID()] = struct{}{}
		out = append(out, r)
		added++
	}
	return out, added
}

// mergeNewer is a union by id where a record present on both sides is
// replaced only when the incoming copy is strictly newer. Ties keep local.
func mergeNewer[T models.Versioned](local, incoming []T) ([]T, bool) {
	idx := make(map[string]int, len(local))
	for i, l := range local {
		idx[l.GetID()] = i
	}

	out := slices.Clone(local)
	changed := false
	for _, r := range incoming {
		if i, ok := idx[r.GetID()]; ok {
			if r.GetUpdatedAt().After(out[i].GetUpdatedAt()) {
				out[i] = r
				changed = true
			}
			continue
		}
		idx[r.GetID()] = len(out)
		out = append(out, r)
		changed = true
	}
	return out, changed
}

// mergeMessages unions by message id and re-sorts chronologically.
func mergeMessages(local, incoming []models.Message) []models.Message {
	merged, _ := unionAdditive(local, incoming)
	sortMessages(merged)
	return merged
}

func sortMessages(msgs []models.Message) {
	slices.SortStableFunc(msgs, func(a, b models.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

// upsertByID replaces the record with item's id or appends item.
func upsertByID[T models.Identified](list []T, item T) []T {
	for i := range list {
		if list[i].GetID() == item.GetID() {
			out := slices.Clone(list)
			out[i] = item
			return out
		}
	}
	return append(slices.Clone(list), item)
}

func ids[T models.Identified](list []T) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, item.GetID())
	}
	return out
}
