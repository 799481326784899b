// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adj

import (
	"math"

	"github.com/cpmech/gofvm/ad"
	"github.com/cpmech/gofvm/fvm"
	"github.com/cpmech/gofvm/inp"

	"github.com/cpmech/gosl/chk"
)

// differentiated governing systems
const (
	FlowSys       = "flow"
	TurbulenceSys = "turbulence"
	StructureSys  = "structure"
)

// controller states
const (
	stIdle = iota
	stRecording
	stRecorded
	stExtracted
)

// Controller drives one record => solve => reverse-sweep => extract cycle per outer
// iteration. It is a strict state machine (Idle => Recording => Recorded => Extracted
// => Idle); calling its methods out of order is a programming error reported via
// chk.Err. The tape holds exactly one recording session at a time and is not
// reentrant.
type Controller struct {

	// essential
	eng ad.Engine
	dir fvm.Direct
	sim *inp.Simulation
	sto *Store
	red *Reducer
	obj Objective

	// state machine
	state  int
	timeN  bool // track adjoint at time level n
	timeN1 bool // track adjoint at time level n-1

	// converged primal state, restored before every recording
	ucvg [][]float64

	// registered farfield handles
	vmach, valpha, vpress, vtemp ad.Var
	farfield                     bool

	// registered coordinate handles
	xv [][]ad.Var

	// objective
	objVar ad.Var
	ObjVal float64 // objective value of the last recorded cycle
}

// NewController returns a controller in the Idle state, capturing the direct solver's
// current (converged) state as the one restored before every recording
func NewController(eng ad.Engine, dir fvm.Direct, sim *inp.Simulation, sto *Store, red *Reducer, obj Objective) (o *Controller) {
	o = new(Controller)
	o.eng = eng
	o.dir = dir
	o.sim = sim
	o.sto = sto
	o.red = red
	o.obj = obj
	o.timeN = sim.Adjoint.Unsteady != ""
	o.timeN1 = sim.Adjoint.Unsteady == "dt2"
	o.ucvg = make([][]float64, dir.Npoint())
	for p := 0; p < dir.Npoint(); p++ {
		o.ucvg[p] = dir.GetState(p)
	}
	return
}

// BeginRecording opens the recording session: restores the converged primal state,
// zeroes the implicit accumulators, registers the solution (all tracked time levels)
// and the coordinates, and, for the compressible flow system only, registers the
// farfield scalars and recomputes the dependent velocity components on the tape.
// Other governing systems register no farfield scalars in this version.
func (o *Controller) BeginRecording() (err error) {
	if o.state != stIdle {
		return chk.Err("BeginRecording: controller must be idle")
	}

	// restore converged state and zero accumulators
	for p := 0; p < o.dir.Npoint(); p++ {
		o.dir.SetState(p, o.ucvg[p])
	}
	o.dir.ZeroImplicitAccumulators()

	// open session and register inputs
	o.eng.StartRecording()
	o.dir.RegisterAsInput(0)
	if o.timeN {
		o.dir.RegisterAsInput(1)
	}
	if o.timeN1 {
		o.dir.RegisterAsInput(2)
	}
	o.xv = o.dir.RegisterCoordinates()

	// farfield scalars
	o.farfield = o.sim.Flow.Regime == "compressible" && o.sim.Adjoint.System == FlowSys
	if o.farfield {
		f := &o.sim.Flow
		eng := o.eng
		o.vmach = eng.Register(f.Mach)
		o.valpha = eng.Register(f.Alpha * math.Pi / 180.0)
		o.vpress = eng.Register(f.Pressure)
		o.vtemp = eng.Register(f.Temperature)

		// recompute the dependent velocity components from the registered inputs so the
		// downstream state is consistent with them; the sound speed comes from the
		// state equation directly, which stays finite for any angle or Mach number
		b := f.Beta * math.Pi / 180.0
		c := math.Sqrt(f.Gamma * f.GasR * f.Temperature)
		vel := make([]ad.Var, o.sim.Ndim)
		if o.sim.Ndim == 2 {
			vel[0] = eng.MulC(eng.Mul(eng.Cos(o.valpha), o.vmach), c/f.VelRef)
			vel[1] = eng.MulC(eng.Mul(eng.Sin(o.valpha), o.vmach), c/f.VelRef)
		} else {
			vel[0] = eng.MulC(eng.Mul(eng.Cos(o.valpha), o.vmach), math.Cos(b)*c/f.VelRef)
			vel[1] = eng.MulC(o.vmach, math.Sin(b)*c/f.VelRef)
			vel[2] = eng.MulC(eng.Mul(eng.Sin(o.valpha), o.vmach), math.Cos(b)*c/f.VelRef)
		}
		o.dir.SetFreestream(o.vmach, o.valpha, o.vpress, o.vtemp, vel)
	}
	o.state = stRecording
	return
}

// Record performs one primal update under the open session, invokes the objective
// accessor (exactly one invocation per outer iteration) and registers the outputs
func (o *Controller) Record() (err error) {
	if o.state != stRecording {
		return chk.Err("Record: no recording session is open")
	}
	err = o.dir.Update()
	if err != nil {
		return
	}
	o.objVar = o.obj(o.dir)
	o.ObjVal = o.eng.Value(o.objVar)
	o.eng.RegisterOutput(o.objVar)
	o.dir.RegisterAsOutput()
	o.eng.StopRecording()
	o.state = stRecorded
	return
}

// SeedObjective seeds the objective adjoint: s on the root rank and 0 on every other
// rank, so the seed values sum to exactly s across the whole process group
func (o *Controller) SeedObjective(s float64) {
	if o.red.Root {
		o.eng.SeedAdjoint(o.objVar, s)
	} else {
		o.eng.SeedAdjoint(o.objVar, 0)
	}
}

// SeedSolution seeds the registered solution outputs with the current adjoint
// solution, plus the dual-time contribution when running unsteady
func (o *Controller) SeedSolution() {
	seed := make([]float64, o.sto.Nvar)
	for p := 0; p < o.sto.Npoint; p++ {
		copy(seed, o.sto.Psi[p])
		if o.timeN {
			for i := 0; i < o.sto.Nvar; i++ {
				seed[i] += o.sto.Dual[p][i]
			}
		}
		o.dir.SetAdjointSolution(p, seed)
	}
}

// Sweep runs the reverse sweep and extracts the adjoint solution, the farfield
// derivatives and the geometric sensitivities. Collective: the farfield reductions
// inside must be reached by every rank.
func (o *Controller) Sweep(ext *Extractor) (err error) {
	if o.state != stRecorded {
		return chk.Err("Sweep: must record before sweeping")
	}
	o.eng.ComputeAdjoint()
	o.extractSolution()
	o.extractVariables()
	ext.Extract(o.xv)
	o.state = stExtracted
	return
}

// EndIteration resets all tape inputs and closes the cycle. Omitting this corrupts
// the gradients of the next outer iteration.
func (o *Controller) EndIteration() (err error) {
	if o.state != stExtracted {
		return chk.Err("EndIteration: must sweep before ending the iteration")
	}
	o.eng.Reset()
	o.dir.ResetRegistrations()
	o.xv = nil
	o.state = stIdle
	return
}

// extractSolution harvests the adjoint of the registered solution at all tracked
// time levels and refreshes the dual-time contribution
func (o *Controller) extractSolution() {
	o.sto.Shift()
	for p := 0; p < o.sto.Npoint; p++ {
		o.dir.GetAdjointSolution(p, o.sto.Psi[p])
	}
	if o.timeN {
		for p := 0; p < o.sto.Npoint; p++ {
			o.dir.GetAdjointSolutionTimeN(p, o.sto.PsiN[p])
		}
	}
	if o.timeN1 {
		for p := 0; p < o.sto.Npoint; p++ {
			o.dir.GetAdjointSolutionTimeN1(p, o.sto.PsiN1[p])
		}
	}
	if o.timeN {
		for p := 0; p < o.sto.Npoint; p++ {
			for i := 0; i < o.sto.Nvar; i++ {
				o.sto.Dual[p][i] = o.sto.PsiN[p][i]
				if o.timeN1 {
					o.sto.Dual[p][i] += o.sto.PsiN1[p][i]
				}
			}
		}
	}
}

// extractVariables harvests the farfield derivatives, reduces them across ranks and
// resets the farfield inputs (single-use convention)
func (o *Controller) extractVariables() {
	if !o.farfield {
		return
	}
	loc := []float64{
		o.eng.Derivative(o.vmach),
		o.eng.Derivative(o.valpha),
		o.eng.Derivative(o.vtemp),
		o.eng.Derivative(o.vpress),
	}
	o.red.SumScalars(loc)
	o.sto.SensMach = loc[0]
	o.sto.SensAoA = loc[1]
	o.sto.SensTemp = loc[2]
	o.sto.SensPress = loc[3]
	o.eng.ResetInput(o.vmach)
	o.eng.ResetInput(o.valpha)
	o.eng.ResetInput(o.vtemp)
	o.eng.ResetInput(o.vpress)
}
