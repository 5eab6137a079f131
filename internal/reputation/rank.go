package reputation

import "math"

type Rank string

const (
	Beginner      Rank = "Beginner"
	Verified      Rank = "Verified"
	Trusted       Rank = "Trusted"
	Reliable      Rank = "Reliable"
	Respected     Rank = "Respected"
	Endorsed      Rank = "Endorsed"
	Elite         Rank = "Elite"
	Distinguished Rank = "Distinguished"
	Veteran       Rank = "Veteran"
	Ambassador    Rank = "Ambassador"
	Legendary     Rank = "Legendary"
	Fraudulent    Rank = "Fraudulent"
	Banned        Rank = "Banned"
)

// Ranks lists every rank in declaration order.
var Ranks = []Rank{
	Beginner, Verified, Trusted, Reliable, Respected, Endorsed, Elite,
	Distinguished, Veteran, Ambassador, Legendary, Fraudulent, Banned,
}

// Level is the position of r in Ranks, or -1 for an unknown value.
func (r Rank) Level() int {
	for i, v := range Ranks {
		if v == r {
			return i
		}
	}
	return -1
}

func (r Rank) Valid() bool { return r.Level() >= 0 }

// NegativeThreshold is the rating below which a review counts as negative.
const NegativeThreshold = 3.0

// Stats is the aggregate of every review a user has received. Average is
// rounded for display; ranking uses the unrounded Mean.
type Stats struct {
	Count    int     `json:"count"`
	Negative int     `json:"negative"`
	Average  float64 `json:"average"`
	Mean     float64 `json:"-"`
}

// RoundAverage rounds to one decimal place, halves away from zero.
func RoundAverage(v float64) float64 {
	return math.Round(v*10) / 10
}

func Aggregate(ratings []float64) Stats {
	s := Stats{Count: len(ratings)}
	if s.Count == 0 {
		return s
	}

	var sum float64
	for _, r := range ratings {
		sum += r
		if r < NegativeThreshold {
			s.Negative++
		}
	}
	s.Mean = sum / float64(s.Count)
	s.Average = RoundAverage(s.Mean)
	return s
}

type rule struct {
	match func(s Stats, verified bool) bool
	rank  Rank
}

func atLeast(count int, average float64) func(Stats, bool) bool {
	return func(s Stats, _ bool) bool { return s.Count >= count && s.Mean >= average }
}

// cascade is evaluated top to bottom and the first match wins. The ban and
// fraud rules run before the verification gate, so unverified users can
// still be banned.
var cascade = []rule{
	{func(s Stats, _ bool) bool { return s.Count >= 20 && s.Mean <= 1.0 }, Banned},
	{func(s Stats, _ bool) bool { return s.Count >= 10 && s.Mean < 2.0 }, Fraudulent},
	{func(_ Stats, verified bool) bool { return !verified }, Beginner},
	{atLeast(1000, 4.8), Legendary},
	{atLeast(700, 4.7), Ambassador},
	{atLeast(400, 4.6), Veteran},
	{atLeast(200, 4.5), Distinguished},
	{atLeast(100, 4.4), Elite},
	{atLeast(50, 4.2), Endorsed},
	{atLeast(25, 4.0), Respected},
	{atLeast(10, 3.5), Reliable},
	{atLeast(3, 3.0), Trusted},
}

func RankFor(s Stats, verified bool) Rank {
	for _, r := range cascade {
		if r.match(s, verified) {
			return r.rank
		}
	}
	return Verified
}
