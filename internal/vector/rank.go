package vector

import "sort"

// Candidate is a stored vector considered for ranking. Seq orders
// candidates that score equally; lower Seq ranks first.
type Candidate struct {
	Seq    int64
	Vector []float32
}

// Scored is a ranked candidate.
type Scored struct {
	Index int
	Seq   int64
	Score float64
}

// TopK scores every candidate against query by cosine similarity and
// returns at most k of them, best first, ties broken by ascending Seq.
// Index refers to the candidate's position in the input slice.
func TopK(query []float32, candidates []Candidate, k int) []Scored {
	if k <= 0 || len(candidates) == 0 {
		return []Scored{}
	}
	scores := make([]Scored, len(candidates))
	for i, c := range candidates {
		scores[i] = Scored{Index: i, Seq: c.Seq, Score: Cosine(query, c.Vector)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Seq < scores[j].Seq
	})
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k]
}
