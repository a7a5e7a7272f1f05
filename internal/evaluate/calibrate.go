package evaluate

import "math"

// searchWidth is the interval width at which the calibration search stops.
const searchWidth = 0.005

// Table maps each tried threshold value to its metric bundle on the
// hyperparameter subset. Entries are memoized: a threshold value is never
// scored twice within one calibration run.
type Table map[float64]Bundle

// searchThreshold narrows the voicing threshold toward a high-F1 value by
// greedy comparison: at each step the bound with the lower F1 moves to the
// interval center. This is not interval-halving binary search and is not
// guaranteed to find the global maximum when F1 over thresholds is not
// unimodal; the exact narrowing is kept for compatibility with previously
// published results. The returned threshold is the argmax of F1 over every
// entry in the table, not the final interval bound.
func searchThreshold(score func(thresholdValue float64) (Bundle, error)) (float64, Table, error) {
	table := Table{}
	evaluate := func(t float64) (Bundle, error) {
		if bundle, ok := table[t]; ok {
			return bundle, nil
		}
		bundle, err := score(t)
		if err != nil {
			return Bundle{}, err
		}
		table[t] = bundle
		return bundle, nil
	}

	left, right := 0.0, 1.0
	for right-left > searchWidth {
		leftBundle, err := evaluate(left)
		if err != nil {
			return 0, nil, err
		}
		rightBundle, err := evaluate(right)
		if err != nil {
			return 0, nil, err
		}
		center := (left + right) / 2
		if rightBundle.F1 > leftBundle.F1 {
			left = center
		} else {
			right = center
		}
	}

	// Ties resolve to the lowest threshold so results are deterministic.
	best := 0.0
	bestF1 := math.Inf(-1)
	for t, bundle := range table {
		if bundle.F1 > bestF1 || (bundle.F1 == bestF1 && t < best) {
			best = t
			bestF1 = bundle.F1
		}
	}
	return best, table, nil
}
