// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adj

import (
	"math"

	"github.com/cpmech/gosl/utl"
)

// Store owns the adjoint (cotangent) state of one partition. Rows are congruent in
// size to the primal state: Nvar columns per point, always.
type Store struct {

	// dimensions
	Nvar   int // number of variables per point
	Npoint int // number of points in this partition

	// adjoint solution
	Psi    [][]float64 // [npoint][nvar] current adjoint solution
	PsiOld [][]float64 // [npoint][nvar] previous outer iteration
	PsiN   [][]float64 // [npoint][nvar] adjoint at time level n (unsteady)
	PsiN1  [][]float64 // [npoint][nvar] adjoint at time level n-1 (2nd order unsteady)
	Dual   [][]float64 // [npoint][nvar] dual-time contribution added when seeding outputs

	// geometric sensitivities
	Sens [][]float64 // [npoint][ndim] raw coordinate derivatives

	// farfield sensitivities (communicator-wide after reduction)
	SensMach  float64
	SensAoA   float64
	SensTemp  float64
	SensPress float64

	// surface sensitivities
	Surf         map[int][]float64 // marker tag => per-vertex projected sensitivity
	TotalSensGeo float64           // communicator-wide sum of marker magnitudes
}

// NewStore allocates the adjoint state for npoint points with nvar variables in ndim
func NewStore(npoint, nvar, ndim int) (o *Store) {
	o = new(Store)
	o.Nvar = nvar
	o.Npoint = npoint
	o.Psi = utl.Alloc(npoint, nvar)
	o.PsiOld = utl.Alloc(npoint, nvar)
	o.PsiN = utl.Alloc(npoint, nvar)
	o.PsiN1 = utl.Alloc(npoint, nvar)
	o.Dual = utl.Alloc(npoint, nvar)
	o.Sens = utl.Alloc(npoint, ndim)
	o.Surf = make(map[int][]float64)
	return
}

// Shift copies the current adjoint solution into the previous-iteration slot
func (o *Store) Shift() {
	for p := 0; p < o.Npoint; p++ {
		copy(o.PsiOld[p], o.Psi[p])
	}
}

// ResRMS returns the root-mean-square of Psi - PsiOld per variable, over owned points
// only (ghost[p] == true skips point p; a nil mask means all points are owned).
// Numerical pathologies (NaN/Inf) are not trapped here; they propagate into the norms.
func (o *Store) ResRMS(ghost []bool) (rms []float64) {
	rms = make([]float64, o.Nvar)
	n := 0
	for p := 0; p < o.Npoint; p++ {
		if ghost != nil && ghost[p] {
			continue
		}
		n++
		for i := 0; i < o.Nvar; i++ {
			r := o.Psi[p][i] - o.PsiOld[p][i]
			rms[i] += r * r
		}
	}
	for i := 0; i < o.Nvar; i++ {
		rms[i] = math.Sqrt(rms[i] / float64(n))
	}
	return
}
