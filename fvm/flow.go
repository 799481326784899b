// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fvm

import (
	"math"

	"github.com/cpmech/gofvm/ad"
	"github.com/cpmech/gofvm/inp"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// circulation parameter of the surface pressure model
const circulation = 0.5

// wallData caches taped surface geometry computed during the last update
type wallData struct {
	marker *inp.Marker
	nx, ny []ad.Var // unit outward normal components per marker vertex
	ell    []ad.Var // length weight per marker vertex
}

// Flow is a 2D model compressible-flow solver implementing Direct. Per point it carries
// nvar = ndim+2 variables: density-like, two momentum-like components and a pressure-like
// variable. One implicit update is a damped point-implicit step: every variable relaxes
// towards its freestream value, except the pressure on wall markers which follows a
// Prandtl-Glauert corrected surface pressure model coupled to its neighbours by a smoothing
// weight. All update and output arithmetic goes through the AD engine, so the same code path
// serves passive evaluation and tape recording.
type Flow struct {

	// initialisation
	eng  ad.Engine       // the AD engine
	sim  *inp.Simulation // simulation data
	msh  *inp.Mesh       // mesh data
	nvar int             // number of variables per point

	// state (plain mirrors; the tape handles below are rebuilt every recording)
	u   [][]float64 // [npoint][nvar] current solution
	un  [][]float64 // [npoint][nvar] solution at time level n
	un1 [][]float64 // [npoint][nvar] solution at time level n-1

	// implicit accumulators
	jac      *la.Triplet // I - dG/dU of one update; consumed by Converge
	jacStale bool        // accumulators were zeroed and must be rebuilt by the next update

	// relaxation
	relax float64 // pseudo-time step factor of one update

	// freestream handles
	mach, alpha, press, temp ad.Var
	vel                      []ad.Var
	haveFree                 bool

	// registered solution/coordinate handles
	uin   [][]ad.Var // registered pre-update solution (time level 0)
	uinN  [][]ad.Var // registered solution at time level n
	uinN1 [][]ad.Var // registered solution at time level n-1
	uout  [][]ad.Var // post-update solution
	xv    [][]ad.Var // coordinates

	// cached from the last update
	q, pg     ad.Var // dynamic pressure and Prandtl-Glauert factor
	dx, dy    ad.Var // flow direction
	speed     ad.Var // freestream speed
	walls     []*wallData
	hasUpdate bool
}

// NewFlow returns a new model flow solver with the freestream as initial state
func NewFlow(eng ad.Engine, sim *inp.Simulation) (o *Flow) {
	if sim.Ndim != 2 {
		chk.Panic("model flow solver works in 2D only. ndim=%d is invalid", sim.Ndim)
	}
	o = new(Flow)
	o.eng = eng
	o.sim = sim
	o.msh = sim.Msh
	o.nvar = sim.Ndim + 2
	o.relax = sim.Solver.Relax

	// freestream initial state
	n := len(o.msh.Verts)
	rho := sim.Flow.Pressure / (sim.Flow.GasR * sim.Flow.Temperature)
	o.u = utl.Alloc(n, o.nvar)
	o.un = utl.Alloc(n, o.nvar)
	o.un1 = utl.Alloc(n, o.nvar)
	for p := 0; p < n; p++ {
		o.u[p][0] = rho
		o.u[p][1] = rho * sim.Flow.VelInf[0]
		o.u[p][2] = rho * sim.Flow.VelInf[1]
		o.u[p][3] = sim.Flow.Pressure
		copy(o.un[p], o.u[p])
		copy(o.un1[p], o.u[p])
	}

	// implicit accumulators
	nnz := n * o.nvar
	for _, m := range o.msh.Markers {
		if inp.IsWall(m.Kind) {
			nnz += 2 * len(m.Verts)
		}
	}
	o.jac = new(la.Triplet)
	o.jac.Init(n*o.nvar, n*o.nvar, nnz)
	o.jacStale = true
	return
}

// dimensions /////////////////////////////////////////////////////////////////////////////////////

// Nvar returns the number of solution variables per mesh point
func (o *Flow) Nvar() int { return o.nvar }

// Npoint returns the number of mesh points in this partition
func (o *Flow) Npoint() int { return len(o.msh.Verts) }

// state //////////////////////////////////////////////////////////////////////////////////////////

// GetState returns a copy of the current state at point p
func (o *Flow) GetState(p int) []float64 {
	u := make([]float64, o.nvar)
	copy(u, o.u[p])
	return u
}

// SetState restores the state at point p
func (o *Flow) SetState(p int, u []float64) {
	copy(o.u[p], u)
}

// SetRelax sets the relaxation (pseudo-time step factor) of subsequent updates
func (o *Flow) SetRelax(relax float64) {
	o.relax = relax
	o.jacStale = true
}

// AdvanceTime shifts the solution time levels: n-1 <= n <= current
func (o *Flow) AdvanceTime() {
	for p := range o.u {
		copy(o.un1[p], o.un[p])
		copy(o.un[p], o.u[p])
	}
}

// recording protocol /////////////////////////////////////////////////////////////////////////////

// RegisterAsInput registers the per-point solution at the given time level on the tape
func (o *Flow) RegisterAsInput(timeLevel int) {
	switch timeLevel {
	case 0:
		o.uin = o.registerStates(o.u)
	case 1:
		o.uinN = o.registerStates(o.un)
	case 2:
		o.uinN1 = o.registerStates(o.un1)
	default:
		chk.Panic("time level %d is invalid. must be 0, 1 or 2", timeLevel)
	}
}

// RegisterAsOutput registers the post-update solution as outputs of the recorded section
func (o *Flow) RegisterAsOutput() {
	if !o.hasUpdate {
		chk.Panic("cannot register outputs without a prior update")
	}
	for p := range o.uout {
		for i := 0; i < o.nvar; i++ {
			o.eng.RegisterOutput(o.uout[p][i])
		}
	}
}

// RegisterCoordinates registers the mesh point coordinates on the tape
func (o *Flow) RegisterCoordinates() [][]ad.Var {
	n := len(o.msh.Verts)
	o.xv = make([][]ad.Var, n)
	for p, v := range o.msh.Verts {
		o.xv[p] = make([]ad.Var, o.sim.Ndim)
		for d := 0; d < o.sim.Ndim; d++ {
			o.xv[p][d] = o.eng.Register(v.C[d])
		}
	}
	return o.xv
}

// ZeroImplicitAccumulators zeroes the implicit Jacobian structures. They are not rebuilt
// automatically during adjoint iterations, hence this must precede every recorded update.
func (o *Flow) ZeroImplicitAccumulators() {
	o.jac.Start()
	o.jacStale = true
}

// ResetRegistrations drops all tape handles. Must precede the tape reset, after which the
// handles would be dangling.
func (o *Flow) ResetRegistrations() {
	o.uin, o.uinN, o.uinN1, o.uout, o.xv = nil, nil, nil, nil, nil
	o.haveFree = false
	o.hasUpdate = false
	o.walls = nil
}

// SetFreestream pushes the (possibly registered) farfield quantities and the recomputed
// velocity components into the solver, to be consumed by the next update
func (o *Flow) SetFreestream(mach, alpha, press, temp ad.Var, vel []ad.Var) {
	o.mach, o.alpha, o.press, o.temp = mach, alpha, press, temp
	o.vel = vel
	o.haveFree = true
}

// Update performs one full implicit update
func (o *Flow) Update() (err error) {
	eng := o.eng
	gam := o.sim.Flow.Gamma

	// freestream handles: lifted passively unless pushed by the recording controller
	if !o.haveFree {
		o.mach = eng.Lift(o.sim.Flow.Mach)
		o.alpha = eng.Lift(o.sim.Flow.Alpha * math.Pi / 180.0)
		o.press = eng.Lift(o.sim.Flow.Pressure)
		o.temp = eng.Lift(o.sim.Flow.Temperature)
		o.vel = make([]ad.Var, o.sim.Ndim)
		for d := 0; d < o.sim.Ndim; d++ {
			o.vel[d] = eng.Lift(o.sim.Flow.VelInf[d])
		}
		o.haveFree = true
	}

	// coordinate handles
	if o.xv == nil {
		n := len(o.msh.Verts)
		o.xv = make([][]ad.Var, n)
		for p, v := range o.msh.Verts {
			o.xv[p] = make([]ad.Var, o.sim.Ndim)
			for d := 0; d < o.sim.Ndim; d++ {
				o.xv[p][d] = eng.Lift(v.C[d])
			}
		}
	}

	// base state handles
	ub := o.uin
	if ub == nil {
		ub = o.liftStates(o.u)
	}

	// derived freestream quantities
	rhoInf := eng.Div(o.press, eng.MulC(o.temp, o.sim.Flow.GasR))
	o.q = eng.MulC(eng.Mul(eng.Mul(o.mach, o.mach), o.press), 0.5*gam)
	o.speed = eng.Sqrt(eng.Add(eng.Mul(o.vel[0], o.vel[0]), eng.Mul(o.vel[1], o.vel[1])))
	o.dx = eng.Div(o.vel[0], o.speed)
	o.dy = eng.Div(o.vel[1], o.speed)
	o.pg = eng.Div(eng.Lift(1), eng.Sqrt(eng.Sub(eng.Lift(1), eng.Mul(o.mach, o.mach))))
	uinf := []ad.Var{rhoInf, eng.Mul(rhoInf, o.vel[0]), eng.Mul(rhoInf, o.vel[1]), o.press}

	// relaxation towards the freestream, for all points and variables
	r := o.relax
	n := len(o.msh.Verts)
	o.uout = make([][]ad.Var, n)
	for p := 0; p < n; p++ {
		o.uout[p] = make([]ad.Var, o.nvar)
		for i := 0; i < o.nvar; i++ {
			o.uout[p][i] = eng.Add(ub[p][i], eng.MulC(eng.Sub(uinf[i], ub[p][i]), r))
		}
	}

	// surface pressure model overrides the pressure variable on wall markers
	w := o.sim.Solver.Smooth
	o.walls = nil
	for _, m := range o.msh.Markers {
		if !inp.IsWall(m.Kind) {
			continue
		}
		wd := &wallData{marker: m}
		nv := len(m.Verts)
		for k, p := range m.Verts {
			pL := m.Verts[(k-1+nv)%nv]
			pR := m.Verts[(k+1)%nv]

			// vertex normal and length weight from neighbouring coordinates
			tx := eng.Sub(o.xv[pR][0], o.xv[pL][0])
			ty := eng.Sub(o.xv[pR][1], o.xv[pL][1])
			ln := eng.Sqrt(eng.Add(eng.Mul(tx, tx), eng.Mul(ty, ty)))
			nxh := eng.Div(ty, ln)
			nyh := eng.Div(eng.Neg(tx), ln)
			ell := eng.MulC(ln, 0.5)

			// Prandtl-Glauert corrected pressure coefficient with circulation
			s := eng.Add(eng.Mul(o.dx, nxh), eng.Mul(o.dy, nyh))
			g := eng.AddC(eng.MulC(s, 2.0), circulation)
			cp := eng.Mul(eng.Sub(eng.Lift(1), eng.Mul(g, g)), o.pg)
			ptar := eng.Add(o.press, eng.Mul(o.q, cp))

			// neighbour smoothing (Jacobi sweep of the coupled system)
			avg := eng.MulC(eng.Add(ub[pL][3], ub[pR][3]), 0.5*(1.0-w))
			smoothed := eng.Add(eng.MulC(ptar, w), avg)
			o.uout[p][3] = eng.Add(ub[p][3], eng.MulC(eng.Sub(smoothed, ub[p][3]), r))

			wd.nx = append(wd.nx, nxh)
			wd.ny = append(wd.ny, nyh)
			wd.ell = append(wd.ell, ell)
		}
		o.walls = append(o.walls, wd)
	}

	// implicit accumulators
	if o.jacStale {
		o.assembleJacobian()
		o.jacStale = false
	}

	// mirror values
	for p := 0; p < n; p++ {
		for i := 0; i < o.nvar; i++ {
			o.u[p][i] = eng.Value(o.uout[p][i])
		}
	}
	o.hasUpdate = true
	return
}

// Converge drives the primal solution to its fixed point with Newton corrections based on
// the implicit accumulators. Must not be called while the tape is recording.
func (o *Flow) Converge(verbose bool) (err error) {
	if o.eng.Recording() {
		chk.Panic("cannot converge primal solution while the tape is recording")
	}
	n := len(o.msh.Verts)
	ndof := n * o.nvar
	b := la.NewVector(ndof)
	du := la.NewVector(ndof)
	uold := make([]float64, ndof)
	for it := 0; it < o.sim.Solver.NmaxIt; it++ {

		// passive evaluations only; discard tape storage from previous sweeps
		o.eng.Reset()
		o.ResetRegistrations()

		// one passive update gives the fixed-point residual b = G(u) - u
		for p := 0; p < n; p++ {
			for i := 0; i < o.nvar; i++ {
				uold[p*o.nvar+i] = o.u[p][i]
			}
		}
		o.ZeroImplicitAccumulators()
		err = o.Update()
		if err != nil {
			return
		}
		for p := 0; p < n; p++ {
			for i := 0; i < o.nvar; i++ {
				b[p*o.nvar+i] = o.u[p][i] - uold[p*o.nvar+i]
			}
		}
		largFb := b.Largest(1)
		if verbose {
			io.Pf("%4d%23.15e\n", it, largFb)
		}
		if largFb < o.sim.Solver.Tol {
			return
		}

		// Newton correction: (I - dG/dU) du = b
		K := o.jac.ToMatrix(nil).ToDense()
		la.DenSolve(du, K, b, false)
		for p := 0; p < n; p++ {
			for i := 0; i < o.nvar; i++ {
				o.u[p][i] = uold[p*o.nvar+i] + du[p*o.nvar+i]
			}
		}
	}
	return chk.Err("primal solver did not converge after %d iterations", o.sim.Solver.NmaxIt)
}

// adjoint plumbing ///////////////////////////////////////////////////////////////////////////////

// SetAdjointSolution seeds the post-update solution handles at point p
func (o *Flow) SetAdjointSolution(p int, psi []float64) {
	for i := 0; i < o.nvar; i++ {
		o.eng.SeedAdjoint(o.uout[p][i], psi[i])
	}
}

// GetAdjointSolution harvests the adjoint of the pre-update solution at point p
func (o *Flow) GetAdjointSolution(p int, psi []float64) {
	for i := 0; i < o.nvar; i++ {
		psi[i] = o.eng.Derivative(o.uin[p][i])
	}
}

// GetAdjointSolutionTimeN harvests the adjoint at time level n
func (o *Flow) GetAdjointSolutionTimeN(p int, psi []float64) {
	for i := 0; i < o.nvar; i++ {
		psi[i] = o.eng.Derivative(o.uinN[p][i])
	}
}

// GetAdjointSolutionTimeN1 harvests the adjoint at time level n-1
func (o *Flow) GetAdjointSolutionTimeN1(p int, psi []float64) {
	for i := 0; i < o.nvar; i++ {
		psi[i] = o.eng.Derivative(o.uinN1[p][i])
	}
}

// scalar outputs /////////////////////////////////////////////////////////////////////////////////

// TotalCLift returns the lift coefficient (wind frame)
func (o *Flow) TotalCLift() ad.Var {
	cfx, cfy := o.surfaceForces()
	return o.eng.Sub(o.eng.Mul(cfy, o.dx), o.eng.Mul(cfx, o.dy))
}

// TotalCDrag returns the drag coefficient (wind frame)
func (o *Flow) TotalCDrag() ad.Var {
	cfx, cfy := o.surfaceForces()
	return o.eng.Add(o.eng.Mul(cfx, o.dx), o.eng.Mul(cfy, o.dy))
}

// TotalCSideForce returns the sideforce coefficient; identically zero in 2D
func (o *Flow) TotalCSideForce() ad.Var {
	o.checkUpdate()
	return o.eng.Lift(0)
}

// TotalCEff returns the aerodynamic efficiency lift/drag
func (o *Flow) TotalCEff() ad.Var {
	cfx, cfy := o.surfaceForces()
	lift := o.eng.Sub(o.eng.Mul(cfy, o.dx), o.eng.Mul(cfx, o.dy))
	drag := o.eng.Add(o.eng.Mul(cfx, o.dx), o.eng.Mul(cfy, o.dy))
	return o.eng.Div(lift, drag)
}

// TotalCMx returns the moment coefficient about x; identically zero in 2D
func (o *Flow) TotalCMx() ad.Var {
	o.checkUpdate()
	return o.eng.Lift(0)
}

// TotalCMy returns the moment coefficient about y; identically zero in 2D
func (o *Flow) TotalCMy() ad.Var {
	o.checkUpdate()
	return o.eng.Lift(0)
}

// TotalCMz returns the moment coefficient about z, about the origin
func (o *Flow) TotalCMz() ad.Var {
	o.checkUpdate()
	eng := o.eng
	mz := eng.Lift(0)
	for _, wd := range o.walls {
		for k, p := range wd.marker.Verts {
			dp := eng.Sub(o.uout[p][3], o.press)
			f := eng.Mul(dp, wd.ell[k])
			fx := eng.Neg(eng.Mul(f, wd.nx[k]))
			fy := eng.Neg(eng.Mul(f, wd.ny[k]))
			mz = eng.Add(mz, eng.Sub(eng.Mul(o.xv[p][0], fy), eng.Mul(o.xv[p][1], fx)))
		}
	}
	return eng.Div(mz, o.q)
}

// TotalCEquivArea returns the equivalent-area measure of the wall pressure distribution
func (o *Flow) TotalCEquivArea() ad.Var {
	o.checkUpdate()
	eng := o.eng
	ea := eng.Lift(0)
	for _, wd := range o.walls {
		for k, p := range wd.marker.Verts {
			dp := eng.Abs(eng.Sub(o.uout[p][3], o.press))
			ea = eng.Add(ea, eng.Mul(dp, wd.ell[k]))
		}
	}
	return eng.Div(ea, o.q)
}

// AvgTotalPressure returns the average total pressure over outlet markers
func (o *Flow) AvgTotalPressure() ad.Var {
	o.checkUpdate()
	eng := o.eng
	sum, n := eng.Lift(0), 0
	for _, m := range o.msh.Markers {
		if m.Kind != "outlet" {
			continue
		}
		for _, p := range m.Verts {
			ke := eng.Add(eng.Mul(o.uout[p][1], o.uout[p][1]), eng.Mul(o.uout[p][2], o.uout[p][2]))
			sum = eng.Add(sum, eng.Add(o.uout[p][3], eng.MulC(eng.Div(ke, o.uout[p][0]), 0.5)))
			n++
		}
	}
	if n == 0 {
		return sum
	}
	return eng.MulC(sum, 1.0/float64(n))
}

// AvgOutletPressure returns the average static pressure over outlet markers
func (o *Flow) AvgOutletPressure() ad.Var {
	o.checkUpdate()
	eng := o.eng
	sum, n := eng.Lift(0), 0
	for _, m := range o.msh.Markers {
		if m.Kind != "outlet" {
			continue
		}
		for _, p := range m.Verts {
			sum = eng.Add(sum, o.uout[p][3])
			n++
		}
	}
	if n == 0 {
		return sum
	}
	return eng.MulC(sum, 1.0/float64(n))
}

// MassFlowRate returns the mass-flow rate through outlet markers
func (o *Flow) MassFlowRate() ad.Var {
	o.checkUpdate()
	eng := o.eng
	mdot := eng.Lift(0)
	for _, m := range o.msh.Markers {
		if m.Kind != "outlet" {
			continue
		}
		for k, p := range m.Verts {
			mdot = eng.Add(mdot, eng.Add(eng.MulC(o.uout[p][1], m.Normals[k][0]), eng.MulC(o.uout[p][2], m.Normals[k][1])))
		}
	}
	return mdot
}

// NozzleThrust returns the thrust measure: momentum flux plus pressure imbalance at outlets
func (o *Flow) NozzleThrust() ad.Var {
	o.checkUpdate()
	eng := o.eng
	thrust := eng.Mul(o.MassFlowRate(), o.speed)
	for _, m := range o.msh.Markers {
		if m.Kind != "outlet" {
			continue
		}
		for k, p := range m.Verts {
			thrust = eng.Add(thrust, eng.MulC(eng.Sub(o.uout[p][3], o.press), m.Normals[k][0]))
		}
	}
	return thrust
}

// auxiliary //////////////////////////////////////////////////////////////////////////////////////

// registerStates registers per-point states as tape inputs
func (o *Flow) registerStates(s [][]float64) [][]ad.Var {
	vars := make([][]ad.Var, len(s))
	for p := range s {
		vars[p] = make([]ad.Var, o.nvar)
		for i := 0; i < o.nvar; i++ {
			vars[p][i] = o.eng.Register(s[p][i])
		}
	}
	return vars
}

// liftStates stores per-point states as passive constants
func (o *Flow) liftStates(s [][]float64) [][]ad.Var {
	vars := make([][]ad.Var, len(s))
	for p := range s {
		vars[p] = make([]ad.Var, o.nvar)
		for i := 0; i < o.nvar; i++ {
			vars[p][i] = o.eng.Lift(s[p][i])
		}
	}
	return vars
}

// surfaceForces returns the taped force coefficient components in the x-y frame
func (o *Flow) surfaceForces() (cfx, cfy ad.Var) {
	o.checkUpdate()
	eng := o.eng
	cfx, cfy = eng.Lift(0), eng.Lift(0)
	for _, wd := range o.walls {
		for k, p := range wd.marker.Verts {
			dp := eng.Sub(o.uout[p][3], o.press)
			f := eng.Mul(dp, wd.ell[k])
			cfx = eng.Sub(cfx, eng.Mul(f, wd.nx[k]))
			cfy = eng.Sub(cfy, eng.Mul(f, wd.ny[k]))
		}
	}
	cfx = eng.Div(cfx, o.q)
	cfy = eng.Div(cfy, o.q)
	return
}

// assembleJacobian assembles I - dG/dU of one update into the implicit accumulators
func (o *Flow) assembleJacobian() {
	r := o.relax
	w := o.sim.Solver.Smooth

	// wall vertex -> left/right neighbours
	type pair struct{ left, right int }
	wall := make(map[int]pair)
	for _, m := range o.msh.Markers {
		if !inp.IsWall(m.Kind) {
			continue
		}
		nv := len(m.Verts)
		for k, p := range m.Verts {
			wall[p] = pair{m.Verts[(k-1+nv)%nv], m.Verts[(k+1)%nv]}
		}
	}

	for p := 0; p < len(o.msh.Verts); p++ {
		for i := 0; i < o.nvar; i++ {
			eq := p*o.nvar + i
			o.jac.Put(eq, eq, r)
			if i == o.nvar-1 {
				if nb, isWall := wall[p]; isWall {
					o.jac.Put(eq, nb.left*o.nvar+i, -r*(1.0-w)*0.5)
					o.jac.Put(eq, nb.right*o.nvar+i, -r*(1.0-w)*0.5)
				}
			}
		}
	}
}

// checkUpdate panics if no update was performed yet
func (o *Flow) checkUpdate() {
	if !o.hasUpdate {
		chk.Panic("scalar accessors and output registration require a prior update")
	}
}
