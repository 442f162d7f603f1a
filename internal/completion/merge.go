package completion

import "github.com/sandeepkv93/salahd/internal/model"

type Merger interface {
	Merge(local, remote model.CompletionIndex) model.CompletionIndex
}

// MostCompletedMerger keeps, per date, the record with more completed
// prayers. Ties keep the remote record.
type MostCompletedMerger struct{}

func (MostCompletedMerger) Merge(local, remote model.CompletionIndex) model.CompletionIndex {
	out := make(model.CompletionIndex, len(remote)+len(local))
	for k, v := range remote {
		out[k] = v.Clone()
	}
	for k, v := range local {
		r, ok := out[k]
		if !ok || v.CompletedCount() > r.CompletedCount() {
			out[k] = v.Clone()
		}
	}
	return out
}
