// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package fvm implements the primal finite-volume solver side consumed by the adjoint layer
package fvm

import (
	"github.com/cpmech/gofvm/ad"
)

// Direct is the narrow contract onto the primal solver. The adjoint coupling layer never
// reaches into the solver's internal per-point containers; everything it needs goes through
// this interface.
//
// Recording protocol. The methods must be invoked in exactly this order per cycle:
// restore the converged state with SetState, zero the implicit Jacobian structures with
// ZeroImplicitAccumulators (they are not rebuilt automatically during adjoint iterations),
// RegisterAsInput, one Update, RegisterAsOutput.
//
// Scalar accessors. HARD CONTRACT: every Total*/Avg*/MassFlowRate/NozzleThrust accessor
// returns a communicator-wide quantity, i.e. the accessor performs any reduction internally
// and every rank observes the identical global value. The adjoint layer's seeding and
// sum-reduce discipline is correct only under this contract; it is assumed, not re-verified.
type Direct interface {

	// dimensions
	Nvar() int   // number of solution variables per mesh point
	Npoint() int // number of mesh points in this partition

	// solution state; owned and mutated by the primal solver, restored (never independently
	// mutated) by the adjoint layer
	GetState(p int) []float64    // copy of the current state at point p
	SetState(p int, u []float64) // restore state at point p

	// recording protocol
	SetRelax(relax float64)          // set the pseudo-time step factor of subsequent updates
	RegisterAsInput(timeLevel int)   // register the per-point solution on the tape; 0=current, 1=time n, 2=time n-1
	RegisterAsOutput()               // register the post-update solution as outputs
	RegisterCoordinates() [][]ad.Var // register mesh point coordinates; returns [npoint][ndim] handles
	ZeroImplicitAccumulators()       // zero the implicit Jacobian accumulation structures
	Update() error                   // one full implicit update: residual + Jacobian assembly + solve
	ResetRegistrations()             // drop all tape handles; must precede the tape reset

	// freestream plumbing; the recording controller recomputes dependent velocity components
	// from the registered farfield inputs and pushes everything back before Update
	SetFreestream(mach, alpha, press, temp ad.Var, vel []ad.Var)

	// adjoint plumbing
	SetAdjointSolution(p int, psi []float64)       // seed the post-update solution handles
	GetAdjointSolution(p int, psi []float64)       // harvest the adjoint of the pre-update solution
	GetAdjointSolutionTimeN(p int, psi []float64)  // harvest the adjoint at time level n
	GetAdjointSolutionTimeN1(p int, psi []float64) // harvest the adjoint at time level n-1

	// scalar outputs (see the hard contract above)
	TotalCLift() ad.Var
	TotalCDrag() ad.Var
	TotalCSideForce() ad.Var
	TotalCEff() ad.Var
	TotalCMx() ad.Var
	TotalCMy() ad.Var
	TotalCMz() ad.Var
	TotalCEquivArea() ad.Var
	AvgTotalPressure() ad.Var
	AvgOutletPressure() ad.Var
	MassFlowRate() ad.Var
	NozzleThrust() ad.Var
}
