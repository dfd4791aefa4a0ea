package deseq

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	glmMaxIter = 100
	glmTol     = 1e-6
	glmRidge   = 1e-6
	maxRidge   = 1e-2

	// Linear predictors are capped so exp never overflows; fitted
	// means get a small floor to keep the weights finite.
	maxLinearPredictor = 50.0
	minFittedMean      = 1e-10
)

// glmFit holds one gene's negative binomial GLM fit. Coefficients and
// their covariance are reported on the log2 scale.
type glmFit struct {
	beta      []float64
	cov       *mat.SymDense
	mu        []float64
	converged bool
	iter      int
}

// fitGLM fits a negative binomial GLM with log link for one gene.
// Log size factors enter as per-sample offsets so the coefficients
// describe normalized expression, and a small ridge keeps the normal
// equations solvable for degenerate designs. alpha is the dispersion.
func fitGLM(y, sizeFactors []float64, x *mat.Dense, alpha float64) (*glmFit, error) {
	n, p := x.Dims()
	if len(y) != n || len(sizeFactors) != n {
		return nil, fmt.Errorf("glm: %d counts and %d size factors for %d design rows",
			len(y), len(sizeFactors), n)
	}

	offset := make([]float64, n)
	for i, sf := range sizeFactors {
		offset[i] = math.Log(sf)
	}

	// Initial coefficients from least squares on the shifted log counts.
	w := make([]float64, n)
	z := make([]float64, n)
	for i := range y {
		w[i] = 1
		z[i] = math.Log((y[i] + 0.5) / sizeFactors[i])
	}
	beta, err := solveWLS(x, w, z)
	if err != nil {
		return nil, err
	}

	eta := make([]float64, n)
	mu := make([]float64, n)
	setMeans := func() {
		for i := 0; i < n; i++ {
			e := offset[i]
			for j := 0; j < p; j++ {
				e += x.At(i, j) * beta[j]
			}
			if e > maxLinearPredictor {
				e = maxLinearPredictor
			} else if e < -maxLinearPredictor {
				e = -maxLinearPredictor
			}
			eta[i] = e
			mu[i] = math.Exp(e)
			if mu[i] < minFittedMean {
				mu[i] = minFittedMean
			}
		}
	}

	fit := &glmFit{iter: glmMaxIter}
	for iter := 1; iter <= glmMaxIter; iter++ {
		setMeans()
		for i := 0; i < n; i++ {
			w[i] = mu[i] / (1 + alpha*mu[i])
			z[i] = (eta[i] - offset[i]) + (y[i]-mu[i])/mu[i]
		}
		next, err := solveWLS(x, w, z)
		if err != nil {
			return nil, err
		}

		delta := 0.0
		for j := range next {
			if d := math.Abs(next[j] - beta[j]); d > delta {
				delta = d
			}
		}
		beta = next
		if delta < glmTol {
			fit.converged = true
			fit.iter = iter
			break
		}
	}

	// Covariance of the coefficients at the final weights.
	setMeans()
	for i := 0; i < n; i++ {
		w[i] = mu[i] / (1 + alpha*mu[i])
	}
	chol, err := factorizeRidged(xtwx(x, w))
	if err != nil {
		return nil, err
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, fmt.Errorf("glm: invert information matrix: %w", err)
	}

	// Convert from natural log to log2.
	fit.beta = make([]float64, p)
	for j := range beta {
		fit.beta[j] = beta[j] / math.Ln2
	}
	fit.cov = mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			fit.cov.SetSym(i, j, cov.At(i, j)/(math.Ln2*math.Ln2))
		}
	}
	fit.mu = mu
	return fit, nil
}

// xtwx builds the weighted information matrix XᵀWX.
func xtwx(x *mat.Dense, w []float64) *mat.SymDense {
	n, p := x.Dims()
	a := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			s := 0.0
			for k := 0; k < n; k++ {
				s += x.At(k, i) * w[k] * x.At(k, j)
			}
			a.SetSym(i, j, s)
		}
	}
	return a
}

// factorizeRidged returns a Cholesky factorization of a + λI, raising λ
// from glmRidge until the matrix is positive definite.
func factorizeRidged(a *mat.SymDense) (*mat.Cholesky, error) {
	p, _ := a.Dims()
	ridged := mat.NewSymDense(p, nil)
	var chol mat.Cholesky
	for lambda := glmRidge; lambda <= maxRidge; lambda *= 10 {
		ridged.CopySym(a)
		for i := 0; i < p; i++ {
			ridged.SetSym(i, i, a.At(i, i)+lambda)
		}
		if chol.Factorize(ridged) {
			return &chol, nil
		}
	}
	return nil, fmt.Errorf("glm: information matrix is not positive definite")
}

// solveWLS solves the ridged weighted normal equations
// (XᵀWX + λI)b = XᵀWz.
func solveWLS(x *mat.Dense, w, z []float64) ([]float64, error) {
	n, p := x.Dims()
	rhs := mat.NewVecDense(p, nil)
	for i := 0; i < p; i++ {
		s := 0.0
		for k := 0; k < n; k++ {
			s += x.At(k, i) * w[k] * z[k]
		}
		rhs.SetVec(i, s)
	}

	chol, err := factorizeRidged(xtwx(x, w))
	if err != nil {
		return nil, err
	}
	var b mat.VecDense
	if err := chol.SolveVecTo(&b, rhs); err != nil {
		return nil, fmt.Errorf("glm: solve normal equations: %w", err)
	}

	out := make([]float64, p)
	for i := range out {
		out[i] = b.AtVec(i)
	}
	return out, nil
}
