package evaluate

// Bundle is the JSON-serializable set of metric values produced by one
// scoring pass.
type Bundle struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	WRMSE     float64 `json:"wrmse"`
	RPA       float64 `json:"rpa"`
	RCA       float64 `json:"rca"`
}

// Result is the aggregate record for one (dataset, model, threshold)
// evaluation run.
type Result struct {
	Bundle

	// Throughput counters accumulated during the prediction phase. All zero
	// when predictions were reused from the cache.
	Seconds float64 `json:"seconds"`
	Frames  int     `json:"frames"`
	Infers  int     `json:"infers"`

	// Threshold is the calibrated voicing threshold the scores were taken at.
	Threshold float64 `json:"threshold"`

	// RunID uniquely identifies this evaluation run.
	RunID string `json:"run_id"`
}
