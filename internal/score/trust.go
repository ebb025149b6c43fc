package score

import "math"

// SpamPenalty returns the volume-based suppression for a user with
// totalReports reports on file, using the default allowance and ramp.
func SpamPenalty(totalReports int) float64 {
	w := DefaultWeights()
	return w.spamPenalty(totalReports)
}

// spamPenalty is 0 up to the allowance, then ramps linearly to 1.0.
// Volume alone drives it: category and past scores are not considered.
func (w Weights) spamPenalty(totalReports int) float64 {
	if totalReports <= w.SpamAllowance {
		return 0
	}
	ramp := w.SpamRamp
	if ramp <= 0 {
		return 1.0
	}
	return math.Min(1.0, float64(totalReports-w.SpamAllowance)/ramp)
}
