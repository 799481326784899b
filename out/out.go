// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package out writes surface-sensitivity results for external optimizer and
// geometry-deformation tooling
package out

import (
	"bytes"

	"github.com/cpmech/gofvm/adj"
	"github.com/cpmech/gofvm/inp"

	"github.com/cpmech/gosl/io"
)

// WriteSurfSens writes one text file per wall marker with the per-vertex projected
// sensitivities of this partition: global index, coordinates, projected sensitivity.
// Each rank writes its own file, named after the simulation key, marker tag and rank.
func WriteSurfSens(sim *inp.Simulation, sto *adj.Store, proc int) (err error) {
	msh := sim.Msh
	for _, m := range msh.Markers {
		surf, ok := sto.Surf[m.Tag]
		if !ok {
			continue
		}
		var buf bytes.Buffer
		io.Ff(&buf, "gid")
		for d := 0; d < msh.Ndim; d++ {
			io.Ff(&buf, " x%d", d)
		}
		io.Ff(&buf, " sens\n")
		for k, p := range m.Verts {
			v := msh.Verts[p]
			io.Ff(&buf, "%d", v.Gid)
			for d := 0; d < msh.Ndim; d++ {
				io.Ff(&buf, " %23.15e", v.C[d])
			}
			io.Ff(&buf, " %23.15e\n", surf[k])
		}
		fn := io.Sf("%s_surfsens_%d_p%d.dat", sim.Key, m.Tag, proc)
		io.WriteFileD(sim.DirOut, fn, &buf)
	}
	return
}
