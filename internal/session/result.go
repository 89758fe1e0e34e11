package session

import "time"

// Result summarizes a finished match for persistence. Hosts assemble
// one after the finished flag flips; the controller itself never
// persists anything.
type Result struct {
	ID       string // assigned by the store when empty
	Variant  string
	Names    []string
	Scores   []int
	Winners  []int // player indices holding the top score
	Duration time.Duration
	PlayedAt time.Time
}

// ResultSaver persists finished match results. Implemented by the
// sqlite store; hosts treat persistence as optional and keep playing
// when no saver is configured.
type ResultSaver interface {
	SaveResult(res Result) error
}

// NewResult builds a Result from a finished view.
func NewResult(v View, variantID string, duration time.Duration) Result {
	res := Result{
		Variant:  variantID,
		Names:    append([]string(nil), v.Names...),
		Scores:   make([]int, len(v.Names)),
		Duration: duration,
		PlayedAt: time.Now(),
	}

	best := 0
	for i := range res.Scores {
		res.Scores[i] = v.Scores[i]
		if res.Scores[i] > best {
			best = res.Scores[i]
		}
	}
	for i, score := range res.Scores {
		if score == best {
			res.Winners = append(res.Winners, i)
		}
	}
	return res
}
