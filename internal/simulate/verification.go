package simulate

import (
	"cmp"
	"math"
	"slices"
)

// Coverage summarizes how evenly comparisons were spread over the items.
type Coverage struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Unseen int     `json:"unseen"`
}

// spearman returns the rank correlation of x and y. Ties get averaged ranks.
func spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	return pearson(ranks(x), ranks(y))
}

func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(v[a], v[b]) })

	out := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		r := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = r
		}
		i = j + 1
	}
	return out
}

func pearson(x, y []float64) float64 {
	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n

	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

func coverage(counts []int) Coverage {
	if len(counts) == 0 {
		return Coverage{}
	}
	c := Coverage{Min: counts[0], Max: counts[0]}
	var sum float64
	for _, n := range counts {
		c.Min = min(c.Min, n)
		c.Max = max(c.Max, n)
		sum += float64(n)
		if n == 0 {
			c.Unseen++
		}
	}
	c.Mean = sum / float64(len(counts))
	var ss float64
	for _, n := range counts {
		d := float64(n) - c.Mean
		ss += d * d
	}
	c.StdDev = math.Sqrt(ss / float64(len(counts)))
	return c
}
