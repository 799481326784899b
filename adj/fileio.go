// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adj

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/cpmech/gofvm/inp"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// skipVars returns the number of placeholder columns preceding the solution values in
// a restart line: the coordinates, plus the flow-adjoint block when differentiating a
// system layered on top of the flow system
func skipVars(sim *inp.Simulation, nvar int) (skip int) {
	skip = sim.Ndim
	if sim.Adjoint.System != FlowSys {
		skip += nvar
	}
	return
}

// restartValues assembles this partition's contribution to the global restart table:
// coordinates and adjoint solution per global point index, in row-major order with
// ndim+nvar columns. Rows of points owned elsewhere stay zero, so ownership being
// disjoint, summing the tables of all ranks yields the complete global table.
func restartValues(sim *inp.Simulation, sto *Store) []float64 {
	msh := sim.Msh
	ncol := sim.Ndim + sto.Nvar
	tab := make([]float64, msh.Gnpoint*ncol)
	for p, v := range msh.Verts {
		if v.Ghost {
			continue
		}
		j := v.Gid * ncol
		for d := 0; d < sim.Ndim; d++ {
			tab[j+d] = v.C[d]
		}
		for i := 0; i < sto.Nvar; i++ {
			tab[j+sim.Ndim+i] = sto.Psi[p][i]
		}
	}
	return tab
}

// SaveRestart writes the adjoint restart file: one header line, then one line per
// global point, in ascending global index order: the global index, skipVars
// placeholder columns, then exactly nvar solution values. The owned contributions of
// all partitions are gathered first and only the root rank writes, so the file always
// covers the whole global mesh. Collective: every rank must call.
func SaveRestart(sim *inp.Simulation, sto *Store, red *Reducer) (err error) {
	msh := sim.Msh
	nskip := skipVars(sim, sto.Nvar)
	ncol := sim.Ndim + sto.Nvar
	tab := restartValues(sim, sto)
	red.SumScalars(tab)
	if !red.Root {
		return
	}

	// header
	var buf bytes.Buffer
	io.Ff(&buf, "gid")
	for d := 0; d < sim.Ndim; d++ {
		io.Ff(&buf, " x%d", d)
	}
	for i := sim.Ndim; i < nskip; i++ {
		io.Ff(&buf, " flowadj%d", i-sim.Ndim)
	}
	for i := 0; i < sto.Nvar; i++ {
		io.Ff(&buf, " psi%d", i)
	}
	io.Ff(&buf, "\n")

	// one line per global point
	for g := 0; g < msh.Gnpoint; g++ {
		j := g * ncol
		io.Ff(&buf, "%d", g)
		for d := 0; d < sim.Ndim; d++ {
			io.Ff(&buf, " %23.15e", tab[j+d])
		}
		for i := sim.Ndim; i < nskip; i++ {
			io.Ff(&buf, " %23.15e", 0.0)
		}
		for i := 0; i < sto.Nvar; i++ {
			io.Ff(&buf, " %23.15e", tab[j+sim.Ndim+i])
		}
		io.Ff(&buf, "\n")
	}

	dir := filepath.Dir(sim.Adjoint.Rstfile)
	fn := filepath.Base(sim.Adjoint.Rstfile)
	io.WriteFileD(dir, fn, &buf)
	return
}

// LoadRestart reads the adjoint restart file into the store, under any partition
// layout, via a global-to-local index map built once. Points present locally but
// absent in the file keep their arbitrary initial seed (an immediate exchange on the
// primal side restores halo consistency). Returns a local error; the caller must
// collectivize it via Reducer.NoneFailed so that all ranks abort together.
func LoadRestart(sim *inp.Simulation, sto *Store) (err error) {
	msh := sim.Msh
	fname := sim.Adjoint.Rstfile
	if _, e := os.Stat(fname); e != nil {
		return chk.Err("there is no adjoint restart file %q", fname)
	}
	b := io.ReadFile(fname)

	// the first line is the header
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines)-1 != msh.Gnpoint {
		return chk.Err("adjoint restart file %q has %d points. mesh has %d global points", fname, len(lines)-1, msh.Gnpoint)
	}

	// global-to-local map for owned points
	g2l := make([]int, msh.Gnpoint)
	for g := range g2l {
		g2l[g] = -1
	}
	for p, v := range msh.Verts {
		if !v.Ghost {
			g2l[v.Gid] = p
		}
	}
	nskip := skipVars(sim, sto.Nvar)
	for g, line := range lines[1:] {
		p := g2l[g]
		if p < 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 1+nskip+sto.Nvar {
			return chk.Err("adjoint restart file %q: line for global point %d has %d columns. want %d", fname, g, len(fields), 1+nskip+sto.Nvar)
		}
		if io.Atoi(fields[0]) != msh.Verts[p].Gid {
			return chk.Err("adjoint restart file %q: global index %s out of order. want %d", fname, fields[0], msh.Verts[p].Gid)
		}
		for i := 0; i < sto.Nvar; i++ {
			sto.Psi[p][i] = io.Atof(fields[1+nskip+i])
		}
	}
	return
}
