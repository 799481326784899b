// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the input data read from (.sim) and (.msh) JSON files
package inp

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"
)

// Data holds global data for simulations
type Data struct {
	Desc    string `json:"desc"`    // description of simulation
	Mshfile string `json:"mshfile"` // file path of file with mesh data
	DirOut  string `json:"dirout"`  // directory for output; e.g. /tmp/gofvm
	Encoder string `json:"encoder"` // encoder name; e.g. "gob" "json"
}

// FlowData holds freestream/farfield conditions
type FlowData struct {

	// input data
	Regime      string  `json:"regime"`      // "compressible" or "incompressible"
	Mach        float64 `json:"mach"`        // freestream Mach number
	Alpha       float64 `json:"alpha"`       // angle of attack [deg]
	Beta        float64 `json:"beta"`        // sideslip angle [deg]
	Pressure    float64 `json:"pressure"`    // freestream pressure (nondimensional)
	Temperature float64 `json:"temperature"` // freestream temperature (nondimensional)
	VelRef      float64 `json:"velref"`      // reference velocity for nondimensionalisation
	Gamma       float64 `json:"gamma"`       // ratio of specific heats
	GasR        float64 `json:"gasr"`        // gas constant (nondimensional)

	// derived
	VelInf []float64 // [ndim] freestream velocity components (nondimensional)
}

// AdjointData holds data controlling the discrete adjoint run
type AdjointData struct {
	ObjFunc       string  `json:"objfunc"`       // objective selector; e.g. "lift", "drag"
	System        string  `json:"system"`        // differentiated governing system: "flow", "turbulence", "structure"
	Niter         int     `json:"niter"`         // number of outer adjoint iterations
	Restart       bool    `json:"restart"`       // restart adjoint solution from file
	Rstfile       string  `json:"rstfile"`       // adjoint restart filename; "" => <key>_adj.dat in dirout
	Unsteady      string  `json:"unsteady"`      // unsteady scheme: "" (steady), "dt1", "dt2"
	SharpRemove   bool    `json:"sharpremove"`   // force sensitivities to zero near sharp edges
	LimiterCoef   float64 `json:"limitercoef"`   // limiter coefficient in sharp-edge threshold
	SharpCoef     float64 `json:"sharpcoef"`     // sharp-edges coefficient in sharp-edge threshold
	RefElemLength float64 `json:"refelemlength"` // reference element length in sharp-edge threshold
	RelaxFcn      string  `json:"relaxfcn"`      // name of relaxation schedule function; "" => constant from solver data
}

// SolverData holds primal solver data consumed when driving adjoint recordings
type SolverData struct {
	NmaxIt int     `json:"nmaxit"` // max iterations when converging the primal solution
	Tol    float64 `json:"tol"`    // convergence tolerance on the primal residual
	Relax  float64 `json:"relax"`  // base relaxation (pseudo-time step factor) of one implicit update
	Smooth float64 `json:"smooth"` // weight coupling a wall point to the local model versus its neighbours
	ShowR  bool    `json:"showr"`  // show residuals
}

// SetDefault sets default values
func (o *SolverData) SetDefault() {
	o.NmaxIt = 200
	o.Tol = 1e-12
	o.Relax = 0.8
	o.Smooth = 0.7
}

// Simulation holds all simulation data
type Simulation struct {

	// input
	Data      Data        `json:"data"`      // global simulation data
	Flow      FlowData    `json:"flow"`      // freestream/farfield conditions
	Adjoint   AdjointData `json:"adjoint"`   // discrete adjoint control data
	Solver    SolverData  `json:"solver"`    // primal solver data
	Functions FuncsData   `json:"functions"` // functions database

	// derived
	DirOut    string // directory to save results
	Key       string // simulation key; e.g. mysim01.sim => mysim01 or mysim01-alias
	EncType   string // encoder type
	Ndim      int    // space dimension (from mesh)
	Msh       *Mesh  // the mesh
	RelaxFunc dbf.T  // relaxation schedule; evaluated at the outer iteration number
}

// ReadSim reads all simulation data from a .sim JSON file, including the mesh
func ReadSim(simfilepath, alias string, erasePrev bool) *Simulation {

	// new sim
	var o Simulation

	// read file
	b := io.ReadFile(simfilepath)

	// set default values
	o.Solver.SetDefault()

	// decode
	err := json.Unmarshal(b, &o)
	if err != nil {
		chk.Panic("ReadSim: cannot unmarshal simulation file %q\n%v", simfilepath, err)
	}

	// input directory and filename key
	dir := filepath.Dir(simfilepath)
	fn := filepath.Base(simfilepath)
	dir = os.ExpandEnv(dir)
	o.Key = io.FnKey(fn)
	if alias != "" {
		o.Key += "-" + alias
	}

	// output directory
	o.DirOut = o.Data.DirOut
	if o.DirOut == "" {
		o.DirOut = "/tmp/gofvm/" + o.Key
	}
	if erasePrev {
		os.RemoveAll(o.DirOut)
	}
	err = os.MkdirAll(o.DirOut, 0777)
	if err != nil {
		chk.Panic("ReadSim: cannot create directory for results %q", o.DirOut)
	}

	// encoder type
	o.EncType = o.Data.Encoder
	if o.EncType != "gob" && o.EncType != "json" {
		o.EncType = "gob"
	}

	// flow data
	if o.Flow.Regime != "compressible" && o.Flow.Regime != "incompressible" {
		chk.Panic("ReadSim: regime must be \"compressible\" or \"incompressible\". %q is invalid", o.Flow.Regime)
	}
	if o.Flow.VelRef <= 0 {
		o.Flow.VelRef = 1.0
	}
	if o.Flow.Gamma <= 0 {
		o.Flow.Gamma = 1.4
	}
	if o.Flow.GasR <= 0 {
		o.Flow.GasR = 1.0
	}

	// adjoint data
	switch o.Adjoint.Unsteady {
	case "", "dt1", "dt2":
	default:
		chk.Panic("ReadSim: unsteady scheme must be \"\", \"dt1\" or \"dt2\". %q is invalid", o.Adjoint.Unsteady)
	}
	switch o.Adjoint.System {
	case "":
		o.Adjoint.System = "flow"
	case "flow", "turbulence", "structure":
	default:
		chk.Panic("ReadSim: differentiated system must be \"flow\", \"turbulence\" or \"structure\". %q is invalid", o.Adjoint.System)
	}
	if o.Adjoint.Niter < 1 {
		o.Adjoint.Niter = 1
	}
	if o.Adjoint.Rstfile == "" {
		o.Adjoint.Rstfile = filepath.Join(o.DirOut, o.Key+"_adj.dat")
	}

	// relaxation schedule
	if o.Adjoint.RelaxFcn == "" {
		o.RelaxFunc = &dbf.Cte{C: o.Solver.Relax}
	} else {
		o.RelaxFunc, err = o.Functions.Get(o.Adjoint.RelaxFcn)
		if err != nil {
			chk.Panic("ReadSim: cannot get relaxation schedule function: %v", err)
		}
	}

	// mesh
	o.Msh = ReadMsh(dir, o.Data.Mshfile)
	o.Ndim = o.Msh.Ndim

	// freestream velocity components
	o.Flow.DeriveVelInf(o.Ndim)
	return &o
}

// DeriveVelInf (re)computes the freestream velocity components from the current
// Mach number, flow angles and sound speed
func (o *FlowData) DeriveVelInf(ndim int) {
	o.VelInf = make([]float64, ndim)
	a := o.Alpha * math.Pi / 180.0
	b := o.Beta * math.Pi / 180.0
	c := math.Sqrt(o.Gamma * o.GasR * o.Temperature)
	if ndim == 2 {
		o.VelInf[0] = math.Cos(a) * o.Mach * c / o.VelRef
		o.VelInf[1] = math.Sin(a) * o.Mach * c / o.VelRef
	} else {
		o.VelInf[0] = math.Cos(a) * math.Cos(b) * o.Mach * c / o.VelRef
		o.VelInf[1] = math.Sin(b) * o.Mach * c / o.VelRef
		o.VelInf[2] = math.Sin(a) * math.Cos(b) * o.Mach * c / o.VelRef
	}
}
