package correlate

import (
	"sort"

	"github.com/pmezard/go-difflib/difflib"
)

// Options selects how payloads are expanded before comparison
type Options struct {
	// FixedWidth keeps leading zero bits (4 bits per hex digit)
	FixedWidth bool
}

func (o Options) bits(payload string) (BitSequence, error) {
	if o.FixedWidth {
		return ToBitsFixedWidth(payload)
	}
	return ToBits(payload)
}

// Similarity scores two hex payloads in [0,1] using the default
// leading-zero-stripped expansion.
func Similarity(a, b string) (float64, error) {
	return Options{}.Similarity(a, b)
}

// Similarity scores two hex payloads in [0,1]; 1.0 means identical bit
// streams.
func (o Options) Similarity(a, b string) (float64, error) {
	ba, err := o.bits(a)
	if err != nil {
		return 0, err
	}
	bb, err := o.bits(b)
	if err != nil {
		return 0, err
	}
	return Ratio(ba, bb), nil
}

// Ratio returns the SequenceMatcher ratio 2*M/T of two bit sequences,
// where M is the number of matched bits and T the combined length. The
// matcher's block search depends on argument order, so both orders are
// scored and the larger is returned.
func Ratio(a, b BitSequence) float64 {
	if a.Len() == 0 && b.Len() == 0 {
		return 1.0
	}
	sa, sb := split(a), split(b)
	r1 := difflib.NewMatcherWithJunk(sa, sb, false, nil).Ratio()
	r2 := difflib.NewMatcherWithJunk(sb, sa, false, nil).Ratio()
	if r2 > r1 {
		return r2
	}
	return r1
}

func split(b BitSequence) []string {
	out := make([]string, len(b))
	for i := 0; i < len(b); i++ {
		out[i] = string(b[i])
	}
	return out
}

// Match is one ranked candidate
type Match struct {
	Payload string
	Score   float64
}

// Rank scores every candidate against captured and returns them highest
// first. The order among equal scores is not part of the contract.
// Candidates that are not valid hex are skipped.
func (o Options) Rank(captured string, candidates []string) ([]Match, error) {
	if _, err := o.bits(captured); err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score, err := o.Similarity(captured, c)
		if err != nil {
			continue
		}
		matches = append(matches, Match{Payload: c, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

// Best returns a highest-scoring candidate. ok is false when no candidate
// could be scored.
func (o Options) Best(captured string, candidates []string) (Match, bool, error) {
	ranked, err := o.Rank(captured, candidates)
	if err != nil || len(ranked) == 0 {
		return Match{}, false, err
	}
	return ranked[0], true, nil
}
