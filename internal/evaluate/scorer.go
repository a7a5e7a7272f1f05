package evaluate

import (
	"github.com/CameronChurchwell/penn/internal/metrics"
	"github.com/CameronChurchwell/penn/internal/threshold"
)

// scorer bundles the four accumulators behind one update/compute/reset
// surface, all evaluated at a single voicing threshold.
type scorer struct {
	f1    *metrics.F1
	wrmse *metrics.WRMSE
	rpa   *metrics.RPA
	rca   *metrics.RCA
}

func newScorer(thresholdValue float64) *scorer {
	at := threshold.At(thresholdValue)
	return &scorer{
		f1:    metrics.NewF1(at),
		wrmse: metrics.NewWRMSE(at),
		rpa:   metrics.NewRPA(),
		rca:   metrics.NewRCA(),
	}
}

// update folds one stem's aligned sequences into all four accumulators.
func (s *scorer) update(pitch, reference, periodicity []float64) {
	s.f1.Update(periodicity, reference, nil)
	s.wrmse.Update(pitch, reference, periodicity, nil)
	s.rpa.Update(pitch, reference, nil)
	s.rca.Update(pitch, reference, nil)
}

// bundle computes the current metric values from accumulated state.
func (s *scorer) bundle() Bundle {
	detection := s.f1.Compute()
	return Bundle{
		Precision: detection.Precision,
		Recall:    detection.Recall,
		F1:        detection.F1,
		WRMSE:     s.wrmse.Compute(),
		RPA:       s.rpa.Compute(),
		RCA:       s.rca.Compute(),
	}
}

func (s *scorer) reset() {
	s.f1.Reset()
	s.wrmse.Reset()
	s.rpa.Reset()
	s.rca.Reset()
}
