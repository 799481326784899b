// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adj

import (
	"math"
	"testing"

	"github.com/cpmech/gofvm/ad"
	"github.com/cpmech/gofvm/inp"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// stub3d is a minimal direct solver whose only output is the sum of the freestream
// velocity components pushed by the recording controller
type stub3d struct {
	eng  ad.Engine
	u    []float64
	uin  []ad.Var
	uout []ad.Var
	vel  []ad.Var
}

func (o *stub3d) Nvar() int                 { return 1 }
func (o *stub3d) Npoint() int               { return 1 }
func (o *stub3d) GetState(p int) []float64  { return []float64{o.u[0]} }
func (o *stub3d) SetState(p int, u []float64) { o.u[0] = u[0] }
func (o *stub3d) SetRelax(relax float64)    {}
func (o *stub3d) RegisterAsInput(timeLevel int) {
	o.uin = []ad.Var{o.eng.Register(o.u[0])}
}
func (o *stub3d) RegisterAsOutput() {
	o.eng.RegisterOutput(o.uout[0])
}
func (o *stub3d) RegisterCoordinates() [][]ad.Var {
	return [][]ad.Var{{o.eng.Register(0), o.eng.Register(0), o.eng.Register(0)}}
}
func (o *stub3d) ZeroImplicitAccumulators() {}
func (o *stub3d) Update() error {
	o.uout = []ad.Var{o.eng.AddC(o.uin[0], 0)}
	return nil
}
func (o *stub3d) ResetRegistrations() { o.uin, o.uout, o.vel = nil, nil, nil }
func (o *stub3d) SetFreestream(mach, alpha, press, temp ad.Var, vel []ad.Var) {
	o.vel = vel
}
func (o *stub3d) SetAdjointSolution(p int, psi []float64) { o.eng.SeedAdjoint(o.uout[0], psi[0]) }
func (o *stub3d) GetAdjointSolution(p int, psi []float64) { psi[0] = o.eng.Derivative(o.uin[0]) }
func (o *stub3d) GetAdjointSolutionTimeN(p int, psi []float64)  { psi[0] = 0 }
func (o *stub3d) GetAdjointSolutionTimeN1(p int, psi []float64) { psi[0] = 0 }

// the objective: sum of the velocity components
func (o *stub3d) TotalCDrag() ad.Var {
	return o.eng.Add(o.vel[0], o.eng.Add(o.vel[1], o.vel[2]))
}
func (o *stub3d) TotalCLift() ad.Var          { return o.eng.Lift(0) }
func (o *stub3d) TotalCSideForce() ad.Var     { return o.eng.Lift(0) }
func (o *stub3d) TotalCEff() ad.Var           { return o.eng.Lift(0) }
func (o *stub3d) TotalCMx() ad.Var            { return o.eng.Lift(0) }
func (o *stub3d) TotalCMy() ad.Var            { return o.eng.Lift(0) }
func (o *stub3d) TotalCMz() ad.Var            { return o.eng.Lift(0) }
func (o *stub3d) TotalCEquivArea() ad.Var     { return o.eng.Lift(0) }
func (o *stub3d) AvgTotalPressure() ad.Var    { return o.eng.Lift(0) }
func (o *stub3d) AvgOutletPressure() ad.Var   { return o.eng.Lift(0) }
func (o *stub3d) MassFlowRate() ad.Var        { return o.eng.Lift(0) }
func (o *stub3d) NozzleThrust() ad.Var        { return o.eng.Lift(0) }

func Test_rec01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("rec01. 3D freestream velocity recomputation on the tape")

	// programmatic 3D simulation
	sim := new(inp.Simulation)
	sim.Ndim = 3
	sim.Flow = inp.FlowData{
		Regime:      "compressible",
		Mach:        0.8,
		Alpha:       2.0,
		Beta:        3.0,
		Pressure:    1.0,
		Temperature: 1.0,
		VelRef:      1.0,
		Gamma:       1.4,
		GasR:        1.0,
	}
	sim.Flow.DeriveVelInf(3)
	sim.Adjoint = inp.AdjointData{ObjFunc: "drag", System: FlowSys}
	sim.Msh = &inp.Mesh{Ndim: 3, Gnpoint: 1, Npart: 1,
		Verts: []*inp.Vert{{Id: 0, Gid: 0, C: []float64{0, 0, 0}, SharpDist: 1}}}

	// coupling layer over the stub
	eng := ad.NewTape()
	dir := &stub3d{eng: eng, u: []float64{1}}
	red := NewReducer()
	sto := NewStore(1, 1, 3)
	ctl := NewController(eng, dir, sim, sto, red, GetObjective("drag"))
	ext := NewExtractor(eng, sim, sto, red)

	// one outer iteration
	err := ctl.BeginRecording()
	if err != nil {
		tst.Errorf("BeginRecording failed:\n%v", err)
		return
	}

	// the recomputed components must reproduce the stored freestream velocity
	for d := 0; d < 3; d++ {
		chk.Float64(tst, io.Sf("vel[%d]", d), 1e-14, eng.Value(dir.vel[d]), sim.Flow.VelInf[d])
	}
	err = ctl.Record()
	if err != nil {
		tst.Errorf("Record failed:\n%v", err)
		return
	}
	ctl.SeedObjective(1)
	ctl.SeedSolution()
	err = ctl.Sweep(ext)
	if err != nil {
		tst.Errorf("Sweep failed:\n%v", err)
		return
	}
	err = ctl.EndIteration()
	if err != nil {
		tst.Errorf("EndIteration failed:\n%v", err)
		return
	}

	// analytic derivatives of J = M·c·(cosα·cosβ + sinβ + sinα·cosβ)
	a := sim.Flow.Alpha * math.Pi / 180.0
	b := sim.Flow.Beta * math.Pi / 180.0
	c := math.Sqrt(sim.Flow.Gamma * sim.Flow.GasR * sim.Flow.Temperature)
	dJdM := c * (math.Cos(a)*math.Cos(b) + math.Sin(b) + math.Sin(a)*math.Cos(b))
	dJdA := sim.Flow.Mach * c * (-math.Sin(a)*math.Cos(b) + math.Cos(a)*math.Cos(b))
	chk.Float64(tst, "dJ/dMach", 1e-12, sto.SensMach, dJdM)
	chk.Float64(tst, "dJ/dAoA", 1e-12, sto.SensAoA, dJdA)
	chk.Float64(tst, "TotalSensGeo", 1e-15, sto.TotalSensGeo, 0)
}

func Test_rec02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("rec02. controller state machine rejects out-of-order calls")

	sim := inp.ReadSim("data/adj01.sim", "rec02", true)
	m := NewMain("data/adj01.sim", "rec02", true, false)
	if m.Sim.Ndim != sim.Ndim {
		tst.Errorf("inconsistent input data")
		return
	}

	// record before begin
	if err := m.Ctl.Record(); err == nil {
		tst.Errorf("Record without BeginRecording must fail")
		return
	}

	// end before sweep
	if err := m.Ctl.EndIteration(); err == nil {
		tst.Errorf("EndIteration without Sweep must fail")
		return
	}

	// sweeping an open session whose update was never recorded must fail too;
	// otherwise the objective handle would still be at its zero value and the
	// seed would silently land on an arbitrary variable
	if err := m.Ctl.BeginRecording(); err != nil {
		tst.Errorf("BeginRecording failed:\n%v", err)
		return
	}
	if err := m.Ctl.Sweep(m.Ext); err == nil {
		tst.Errorf("Sweep without Record must fail")
		return
	}
	if err := m.Ctl.Record(); err != nil {
		tst.Errorf("Record failed:\n%v", err)
		return
	}
	if err := m.Ctl.EndIteration(); err == nil {
		tst.Errorf("EndIteration without Sweep must fail after recording")
		return
	}
	m.Ctl.SeedObjective(1)
	m.Ctl.SeedSolution()
	if err := m.Ctl.Sweep(m.Ext); err != nil {
		tst.Errorf("Sweep failed:\n%v", err)
		return
	}
	if err := m.Ctl.EndIteration(); err != nil {
		tst.Errorf("EndIteration failed:\n%v", err)
		return
	}

	// a full cycle in order succeeds, and a second BeginRecording right after
	// EndIteration succeeds as well
	if err := m.Iterate(0, 1); err != nil {
		tst.Errorf("Iterate failed:\n%v", err)
		return
	}
	if err := m.Ctl.BeginRecording(); err != nil {
		tst.Errorf("BeginRecording after a full cycle failed:\n%v", err)
		return
	}
	if err := m.Ctl.BeginRecording(); err == nil {
		tst.Errorf("BeginRecording twice must fail")
	}
}

func Test_rec03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("rec03. farfield recomputation at 90deg angle of attack")

	// vertical freestream: the streamwise component vanishes, which must not
	// introduce any non-finite intermediate
	sim := new(inp.Simulation)
	sim.Ndim = 3
	sim.Flow = inp.FlowData{
		Regime:      "compressible",
		Mach:        0.8,
		Alpha:       90.0,
		Beta:        3.0,
		Pressure:    1.0,
		Temperature: 1.0,
		VelRef:      1.0,
		Gamma:       1.4,
		GasR:        1.0,
	}
	sim.Flow.DeriveVelInf(3)
	sim.Adjoint = inp.AdjointData{ObjFunc: "drag", System: FlowSys}
	sim.Msh = &inp.Mesh{Ndim: 3, Gnpoint: 1, Npart: 1,
		Verts: []*inp.Vert{{Id: 0, Gid: 0, C: []float64{0, 0, 0}, SharpDist: 1}}}

	eng := ad.NewTape()
	dir := &stub3d{eng: eng, u: []float64{1}}
	red := NewReducer()
	sto := NewStore(1, 1, 3)
	ctl := NewController(eng, dir, sim, sto, red, GetObjective("drag"))
	ext := NewExtractor(eng, sim, sto, red)

	err := ctl.BeginRecording()
	if err != nil {
		tst.Errorf("BeginRecording failed:\n%v", err)
		return
	}
	for d := 0; d < 3; d++ {
		if math.IsNaN(eng.Value(dir.vel[d])) || math.IsInf(eng.Value(dir.vel[d]), 0) {
			tst.Errorf("velocity component %d is not finite", d)
			return
		}
		chk.Float64(tst, io.Sf("vel[%d]", d), 1e-14, eng.Value(dir.vel[d]), sim.Flow.VelInf[d])
	}
	if err = ctl.Record(); err != nil {
		tst.Errorf("Record failed:\n%v", err)
		return
	}
	ctl.SeedObjective(1)
	ctl.SeedSolution()
	if err = ctl.Sweep(ext); err != nil {
		tst.Errorf("Sweep failed:\n%v", err)
		return
	}
	if err = ctl.EndIteration(); err != nil {
		tst.Errorf("EndIteration failed:\n%v", err)
		return
	}

	// analytic derivatives of J = M·c·(cosα·cosβ + sinβ + sinα·cosβ)
	a := sim.Flow.Alpha * math.Pi / 180.0
	b := sim.Flow.Beta * math.Pi / 180.0
	c := math.Sqrt(sim.Flow.Gamma * sim.Flow.GasR * sim.Flow.Temperature)
	dJdM := c * (math.Cos(a)*math.Cos(b) + math.Sin(b) + math.Sin(a)*math.Cos(b))
	dJdA := sim.Flow.Mach * c * (-math.Sin(a)*math.Cos(b) + math.Cos(a)*math.Cos(b))
	chk.Float64(tst, "dJ/dMach", 1e-12, sto.SensMach, dJdM)
	chk.Float64(tst, "dJ/dAoA", 1e-12, sto.SensAoA, dJdA)
}
