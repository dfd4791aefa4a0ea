package deseq

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/IrinAnnPaul/Differential-Expression-Analysis/internal/stats"
)

const (
	dispMin       = 1e-8
	trendMinDisp  = 1e-7 // genes below this are uninformative for the trend
	trendMaxIter  = 10
	trendTol      = 1e-6
	dispOutlierSD = 2.0
	priorVarFloor = 0.25
)

// dispMaxFor bounds dispersion estimates; large sample counts allow
// larger dispersions.
func dispMaxFor(nSamples int) float64 {
	if nSamples > 10 {
		return float64(nSamples)
	}
	return 10
}

// Dispersions holds per-gene dispersion estimates across the fitting
// stages, aligned with the dataset's kept genes.
type Dispersions struct {
	GeneWise []float64
	Trend    []float64
	Final    []float64
	Outlier  []bool

	TrendCoef TrendCoefficients
	PriorVar  float64
}

// TrendCoefficients parameterize the fitted mean-dispersion trend
// a(q) = AsymptDisp + ExtraPois/q.
type TrendCoefficients struct {
	AsymptDisp float64
	ExtraPois  float64
	Flat       bool // median fallback when the parametric fit degenerates
}

// At evaluates the trend at base mean q.
func (tc TrendCoefficients) At(q float64) float64 {
	if q <= 0 {
		return tc.AsymptDisp
	}
	return tc.AsymptDisp + tc.ExtraPois/q
}

// estimateGenewiseDispersion estimates one gene's dispersion: a
// method-of-moments value on the normalized counts seeds a GLM fit for
// the means, then the Cox-Reid adjusted profile likelihood is maximized
// over log dispersion. The fitted means are returned for reuse by the
// shrinkage stage.
func estimateGenewiseDispersion(y, sizeFactors []float64, x *mat.Dense) (float64, []float64, error) {
	n := len(y)
	q := make([]float64, n)
	for i := range y {
		q[i] = y[i] / sizeFactors[i]
	}
	mean, variance := stat.MeanVariance(q, nil)

	seed := dispMin
	if mean > 0 && variance > mean {
		seed = (variance - mean) / (mean * mean)
	}
	maxDisp := dispMaxFor(n)
	if seed > maxDisp {
		seed = maxDisp
	}

	fit, err := fitGLM(y, sizeFactors, x, seed)
	if err != nil {
		return 0, nil, err
	}
	mu := fit.mu

	logAlpha := goldenMax(func(la float64) float64 {
		return nbLogLikCR(y, mu, x, math.Exp(la))
	}, math.Log(dispMin), math.Log(maxDisp))

	return math.Exp(logAlpha), mu, nil
}

// nbLogLikCR is the negative binomial log-likelihood of counts y at
// means mu with dispersion alpha, with the Cox-Reid adjustment
// -0.5*logdet(XᵀWX) correcting for the fitted mean parameters.
func nbLogLikCR(y, mu []float64, x *mat.Dense, alpha float64) float64 {
	invAlpha := 1 / alpha
	ll := 0.0
	for i := range y {
		am := alpha * mu[i]
		lgYA, _ := math.Lgamma(y[i] + invAlpha)
		lgA, _ := math.Lgamma(invAlpha)
		lgY1, _ := math.Lgamma(y[i] + 1)
		ll += lgYA - lgA - lgY1 - invAlpha*math.Log1p(am)
		if y[i] > 0 {
			ll += y[i] * (math.Log(am) - math.Log1p(am))
		}
	}

	w := make([]float64, len(mu))
	for i := range mu {
		w[i] = mu[i] / (1 + alpha*mu[i])
	}
	chol, err := factorizeRidged(xtwx(x, w))
	if err != nil {
		return math.Inf(-1)
	}
	return ll - 0.5*chol.LogDet()
}

// fitDispersionTrend fits the parametric trend a(q) = a0 + a1/q over
// genes with informative gene-wise estimates by iterated
// gamma-weighted least squares, excluding genes whose estimate is far
// off the current trend. Falls back to a flat median trend when the
// parametric fit degenerates.
func fitDispersionTrend(baseMeans, genewise []float64) TrendCoefficients {
	var invMean, disp []float64
	for i := range genewise {
		if !math.IsNaN(genewise[i]) && genewise[i] > trendMinDisp && baseMeans[i] > 0 {
			invMean = append(invMean, 1/baseMeans[i])
			disp = append(disp, genewise[i])
		}
	}
	if len(disp) < 3 {
		return flatTrend(genewise)
	}

	a0, a1 := 0.1, 1.0
	for iter := 0; iter < trendMaxIter; iter++ {
		var s00, s01, s11, t0, t1 float64
		for i := range disp {
			pred := a0 + a1*invMean[i]
			if pred < dispMin {
				pred = dispMin
			}
			ratio := disp[i] / pred
			if ratio < 1e-4 || ratio > 15 {
				continue // dispersion outlier for this round
			}
			w := 1 / (pred * pred)
			s00 += w
			s01 += w * invMean[i]
			s11 += w * invMean[i] * invMean[i]
			t0 += w * disp[i]
			t1 += w * invMean[i] * disp[i]
		}

		det := s00*s11 - s01*s01
		if det <= 0 || s00 == 0 {
			return flatTrend(genewise)
		}
		next0 := (s11*t0 - s01*t1) / det
		next1 := (s00*t1 - s01*t0) / det
		if next0 <= 0 || math.IsNaN(next0) || math.IsNaN(next1) {
			return flatTrend(genewise)
		}
		if next1 < 0 {
			next1 = 0
		}

		if math.Abs(next0-a0) < trendTol*(a0+trendTol) &&
			math.Abs(next1-a1) < trendTol*(a1+trendTol) {
			a0, a1 = next0, next1
			break
		}
		a0, a1 = next0, next1
	}
	return TrendCoefficients{AsymptDisp: a0, ExtraPois: a1}
}

// flatTrend is the fallback trend: the median informative gene-wise
// dispersion with no mean dependence.
func flatTrend(genewise []float64) TrendCoefficients {
	var informative []float64
	for _, a := range genewise {
		if !math.IsNaN(a) && a > trendMinDisp {
			informative = append(informative, a)
		}
	}
	med := 0.1
	if len(informative) > 0 {
		med = stats.Median(informative)
	}
	return TrendCoefficients{AsymptDisp: med, Flat: true}
}

// dispersionPriorVariance estimates the log-normal prior width from the
// spread of log residuals around the trend. The MAD-based residual
// variance is reduced by the expected sampling variance of a log
// dispersion estimate and floored so the prior never collapses. The raw
// residual standard deviation is also returned for the outlier rule.
func dispersionPriorVariance(logResiduals []float64, nSamples, nCoef int) (priorVar, residSD float64) {
	if len(logResiduals) == 0 {
		return priorVarFloor, math.Sqrt(priorVarFloor)
	}
	med := stats.Median(logResiduals)
	absDev := make([]float64, len(logResiduals))
	for i, r := range logResiduals {
		absDev[i] = math.Abs(r - med)
	}
	residSD = 1.4826 * stats.Median(absDev)

	sampling := trigamma(float64(nSamples-nCoef) / 2)
	priorVar = residSD*residSD - sampling
	if priorVar < priorVarFloor {
		priorVar = priorVarFloor
	}
	return priorVar, residSD
}

// shrinkDispersionMAP shrinks one gene's dispersion toward the trend
// with a log-normal prior, maximizing the penalized profile likelihood.
// Gene-wise estimates more than dispOutlierSD residual standard
// deviations above the trend are kept as is.
func shrinkDispersionMAP(y, mu []float64, x *mat.Dense, genewise, trend, priorVar, residSD float64, nSamples int) (float64, bool) {
	if genewise > dispMin &&
		math.Log(genewise) > math.Log(trend)+dispOutlierSD*residSD {
		return genewise, true
	}

	logTrend := math.Log(trend)
	logAlpha := goldenMax(func(la float64) float64 {
		dev := la - logTrend
		return nbLogLikCR(y, mu, x, math.Exp(la)) - dev*dev/(2*priorVar)
	}, math.Log(dispMin), math.Log(dispMaxFor(nSamples)))

	return math.Exp(logAlpha), false
}

// goldenMax maximizes a unimodal function on [lo, hi] by golden-section
// search and returns the maximizing argument.
func goldenMax(f func(float64) float64, lo, hi float64) float64 {
	const invPhi = 0.6180339887498949

	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)
	for i := 0; i < 100 && b-a > 1e-10; i++ {
		if fc > fd {
			b = d
			d, fd = c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a = c
			c, fc = d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}
	return (a + b) / 2
}

// trigamma computes the derivative of the digamma function with the
// recurrence trigamma(x) = trigamma(x+1) + 1/x² and an asymptotic
// series for large arguments.
func trigamma(x float64) float64 {
	if x <= 0 {
		return math.NaN()
	}
	v := 0.0
	for x < 6 {
		v += 1 / (x * x)
		x++
	}
	inv := 1 / x
	inv2 := inv * inv
	v += inv * (1 + inv/2 + inv2*(1.0/6-inv2*(1.0/30-inv2/42)))
	return v
}
