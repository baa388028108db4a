// Package irt implements the 3-parameter-logistic item response model used
// by the adaptive assessment: response probability, item information,
// standard error and Newton-Raphson ability estimation. All functions are
// pure and total; degenerate inputs produce sentinel values, never errors.
package irt

import (
	"math"

	"adaptive-assessment-service/internal/domain"
)

const (
	// ThetaMin and ThetaMax bound the ability scale. Estimates are clamped
	// every iteration so divergent response patterns cannot escape the scale.
	ThetaMin = -3.0
	ThetaMax = 3.0

	// SentinelSE stands in for infinite uncertainty when no information has
	// accumulated yet (session start, empty response history).
	SentinelSE = 999.0

	// DefaultMaxIterations and DefaultConvergence tune the Newton-Raphson
	// search. Twenty iterations is far more than the bounded response
	// histories ever need.
	DefaultMaxIterations = 20
	DefaultConvergence   = 0.001
)

// ProbabilityCorrect evaluates the 3PL model:
// p = c + (1-c) / (1 + exp(-a(theta-b))), clamped to [0,1].
func ProbabilityCorrect(theta float64, p domain.ItemParams) float64 {
	prob := p.C + (1-p.C)/(1+math.Exp(-p.A*(theta-p.B)))
	if prob < 0 {
		return 0
	}
	if prob > 1 {
		return 1
	}
	return prob
}

// ItemInformation is the Fisher information the item contributes at theta:
// I = a^2 (p-c)^2 (1-p) / ((1-c)^2 p). Returns 0 when p is at or below the
// guessing floor or at certainty, where the formula degenerates.
func ItemInformation(theta float64, p domain.ItemParams) float64 {
	prob := ProbabilityCorrect(theta, p)
	if prob <= p.C || prob >= 1 {
		return 0
	}
	num := p.A * p.A * (prob - p.C) * (prob - p.C) * (1 - prob)
	den := (1 - p.C) * (1 - p.C) * prob
	return num / den
}

// StandardError is 1/sqrt of the total information at theta over the given
// items. With zero total information it returns SentinelSE.
func StandardError(theta float64, items []domain.ItemParams) float64 {
	total := 0.0
	for _, item := range items {
		total += ItemInformation(theta, item)
	}
	if total <= 0 {
		return SentinelSE
	}
	return 1 / math.Sqrt(total)
}

// EstimateAbility runs a full maximum-likelihood re-estimation over the
// entire response history using default iteration settings. Incremental
// Bayesian updating is deliberately not implemented; the history is bounded
// by maxQuestions, so O(n) per response is fine.
func EstimateAbility(responses []domain.ResponseRecord, initialTheta float64) domain.AbilityEstimate {
	return EstimateAbilityWith(responses, initialTheta, DefaultMaxIterations, DefaultConvergence)
}

// EstimateAbilityWith is EstimateAbility with explicit iteration controls.
// With zero responses it returns (initialTheta, SentinelSE) without
// iterating. Theta is clamped to [ThetaMin, ThetaMax] every iteration and
// the search stops once |delta| < convergence.
func EstimateAbilityWith(responses []domain.ResponseRecord, initialTheta float64, maxIter int, convergence float64) domain.AbilityEstimate {
	if len(responses) == 0 {
		return domain.AbilityEstimate{Theta: clampTheta(initialTheta), StandardError: SentinelSE}
	}

	theta := clampTheta(initialTheta)
	for iter := 0; iter < maxIter; iter++ {
		firstDeriv := 0.0
		information := 0.0
		for _, r := range responses {
			prob := ProbabilityCorrect(theta, r.Params)
			if prob <= r.Params.C || prob >= 1 {
				continue
			}
			score := 0.0
			if r.Correct {
				score = 1.0
			}
			// First derivative of the 3PL log-likelihood for one response;
			// the negated second derivative is the Fisher information.
			firstDeriv += r.Params.A * (score - prob) * (prob - r.Params.C) / (prob * (1 - r.Params.C))
			information += ItemInformation(theta, r.Params)
		}
		if information <= 0 {
			break
		}

		delta := firstDeriv / information
		theta = clampTheta(theta + delta)
		if math.Abs(delta) < convergence {
			break
		}
	}

	params := make([]domain.ItemParams, len(responses))
	for i, r := range responses {
		params[i] = r.Params
	}
	return domain.AbilityEstimate{Theta: theta, StandardError: StandardError(theta, params)}
}

// CalibrationResponse is one historical response to the item being
// calibrated, tagged with the respondent's ability at answer time.
type CalibrationResponse struct {
	Theta   float64
	Correct bool
}

// MinCalibrationResponses is the threshold below which CalibrateItem falls
// back to the uncalibrated defaults.
const MinCalibrationResponses = 10

// CalibrateItem derives a crude (a, b) estimate from prior responses:
// discrimination as the ability gap between correct and incorrect groups,
// difficulty as the mean respondent ability, guessing fixed at 0.25.
// This is a point-biserial-style placeholder, not full marginal maximum
// likelihood; it needs psychometric review before production calibration.
func CalibrateItem(responses []CalibrationResponse) domain.ItemParams {
	if len(responses) < MinCalibrationResponses {
		return domain.ItemParams{A: 1.0, B: 0.0, C: 0.25}
	}

	var sumAll, sumCorrect, sumIncorrect float64
	var nCorrect, nIncorrect int
	for _, r := range responses {
		sumAll += r.Theta
		if r.Correct {
			sumCorrect += r.Theta
			nCorrect++
		} else {
			sumIncorrect += r.Theta
			nIncorrect++
		}
	}

	b := sumAll / float64(len(responses))
	if b < -4 {
		b = -4
	}
	if b > 4 {
		b = 4
	}

	a := 1.0
	if nCorrect > 0 && nIncorrect > 0 {
		a = sumCorrect/float64(nCorrect) - sumIncorrect/float64(nIncorrect)
		if a < 0.1 {
			a = 0.1
		}
		if a > 3.0 {
			a = 3.0
		}
	}

	return domain.ItemParams{A: a, B: b, C: 0.25}
}

// ValidateParams rejects triples outside the calibrated ranges.
func ValidateParams(p domain.ItemParams) error {
	if !p.Valid() {
		return domain.ErrInvalidItemParams
	}
	return nil
}

func clampTheta(theta float64) float64 {
	if theta < ThetaMin {
		return ThetaMin
	}
	if theta > ThetaMax {
		return ThetaMax
	}
	return theta
}
