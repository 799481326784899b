// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package adj implements the discrete-adjoint coupling layer: a tape-based
// reverse-mode differentiation wrapper around the primal solver that computes exact
// gradients of a scalar objective with respect to farfield conditions and surface
// geometry. One process per mesh partition (SPMD); all cross-rank aggregation goes
// through blocking collectives held by the Reducer.
package adj

import (
	"github.com/cpmech/gofvm/ad"
	"github.com/cpmech/gofvm/fvm"
	"github.com/cpmech/gofvm/inp"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// Main holds all data for an adjoint analysis
type Main struct {

	// essential
	Sim *inp.Simulation // simulation data
	Red *Reducer        // execution context and collectives
	Eng ad.Engine       // the tape / AD engine (one recording session at a time)
	Dir fvm.Direct      // the primal solver behind the narrow contract
	Sto *Store          // adjoint state of this partition
	Ctl *Controller     // recording state machine
	Ext *Extractor      // sensitivity extraction
	Obj Objective       // objective accessor

	// auxiliary
	ShowMsg bool   // show messages: if verbose==true and root processor
	ghost   []bool // ghost mask for owned-point bookkeeping
}

// NewMain reads the simulation input, converges the primal solution and assembles the
// coupling layer, ready for outer adjoint iterations
//  Input:
//   simfilepath -- simulation (.sim) filename including full path
//   alias       -- word to be appended to simulation key; e.g. when running multiple FE solutions
//   erasePrev   -- erase previous results files
//   verbose     -- show messages
func NewMain(simfilepath, alias string, erasePrev, verbose bool) (o *Main) {

	// essential
	o = new(Main)
	o.Red = NewReducer()
	o.ShowMsg = verbose && o.Red.Root

	// input data; panics on configuration errors, before any iteration runs
	o.Sim = inp.ReadSim(simfilepath, alias, erasePrev)
	o.Obj = GetObjective(o.Sim.Adjoint.ObjFunc)

	// primal solver, converged before anything is recorded
	o.Eng = ad.NewTape()
	flw := fvm.NewFlow(o.Eng, o.Sim)
	err := flw.Converge(o.ShowMsg && o.Sim.Solver.ShowR)
	if err != nil {
		chk.Panic("cannot converge primal solution:\n%v", err)
	}
	o.Dir = flw

	// coupling layer
	o.Sto = NewStore(o.Dir.Npoint(), o.Dir.Nvar(), o.Sim.Ndim)
	o.Ctl = NewController(o.Eng, o.Dir, o.Sim, o.Sto, o.Red, o.Obj)
	o.Ext = NewExtractor(o.Eng, o.Sim, o.Sto, o.Red)
	o.ghost = make([]bool, len(o.Sim.Msh.Verts))
	for p, v := range o.Sim.Msh.Verts {
		o.ghost[p] = v.Ghost
	}

	// restart; collective detect, collective abort
	if o.Sim.Adjoint.Restart {
		err = o.Red.NoneFailed(LoadRestart(o.Sim, o.Sto))
		if err != nil {
			chk.Panic("cannot restart adjoint solution:\n%v", err)
		}
	}
	return
}

// Iterate runs one outer adjoint iteration with the given objective seed. The seed is
// applied on the root rank only; every other rank seeds 0.
func (o *Main) Iterate(it int, seed float64) (err error) {
	o.Dir.SetRelax(o.Sim.RelaxFunc.F(float64(it), nil))
	err = o.Ctl.BeginRecording()
	if err != nil {
		return
	}
	err = o.Ctl.Record()
	if err != nil {
		return
	}
	o.Ctl.SeedObjective(seed)
	o.Ctl.SeedSolution()
	err = o.Ctl.Sweep(o.Ext)
	if err != nil {
		return
	}
	return o.Ctl.EndIteration()
}

// Run drives the outer adjoint iterations and saves the adjoint restart file
func (o *Main) Run() (err error) {
	for it := 0; it < o.Sim.Adjoint.Niter; it++ {
		err = o.Iterate(it, 1)
		if err != nil {
			return
		}
		if o.ShowMsg {
			rms := o.Sto.ResRMS(o.ghost)
			io.Pf("%4d  J=%14.7e  res=%14.7e  dJ/dM=%14.7e  dJ/dAoA=%14.7e\n",
				it, o.Ctl.ObjVal, rms[0], o.Sto.SensMach, o.Sto.SensAoA)
		}
	}
	return SaveRestart(o.Sim, o.Sto, o.Red)
}
