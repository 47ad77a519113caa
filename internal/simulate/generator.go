package simulate

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"github.com/okian/aptrank/internal/domain/model"
)

// Listing is a synthetic item with the utility the judge sees.
type Listing struct {
	Item    model.Item
	Utility float64
}

// generate creates n listings with utilities drawn uniformly from [0, 1).
func generate(n int, rng *rand.Rand) []Listing {
	out := make([]Listing, n)
	for i := range out {
		link := fmt.Sprintf("https://sim.aptrank.local/listing/%d", i+1)
		u := rng.Float64()
		out[i] = Listing{
			Item: model.Item{
				Key:     model.KeyFor(link),
				Link:    link,
				Address: fmt.Sprintf("%d Synthetic Ave", i+1),
				Fields: []model.Field{
					{Name: "Link", Value: link},
					{Name: "Utility", Value: strconv.FormatFloat(u, 'f', 4, 64)},
				},
			},
			Utility: u,
		}
	}
	return out
}

// Judge picks a winner with probability logistic((ua-ub)/noise).
type Judge struct {
	noise float64
	rng   *rand.Rand
}

// NewJudge creates a Judge.
func NewJudge(noise float64, rng *rand.Rand) *Judge {
	return &Judge{noise: noise, rng: rng}
}

// PreferA returns the probability that a listing with utility ua is preferred
// over one with utility ub.
func (j *Judge) PreferA(ua, ub float64) float64 {
	return 1 / (1 + math.Exp(-(ua-ub)/j.noise))
}

// ChooseA reports whether the judge prefers A.
func (j *Judge) ChooseA(ua, ub float64) bool {
	return j.rng.Float64() < j.PreferA(ua, ub)
}
