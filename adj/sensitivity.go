// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adj

import (
	"math"

	"github.com/cpmech/gofvm/ad"
	"github.com/cpmech/gofvm/inp"
)

// Extractor converts the raw per-coordinate derivatives harvested from the tape into
// boundary-vertex scalar sensitivities
type Extractor struct {
	eng ad.Engine
	msh *inp.Mesh
	sim *inp.Simulation
	sto *Store
	red *Reducer
}

// NewExtractor returns a new sensitivity extractor
func NewExtractor(eng ad.Engine, sim *inp.Simulation, sto *Store, red *Reducer) (o *Extractor) {
	o = new(Extractor)
	o.eng = eng
	o.msh = sim.Msh
	o.sim = sim
	o.sto = sto
	o.red = red
	return
}

// Extract harvests the coordinate derivatives from the tape handles xv, applies the
// sharp-edge suppression policy and projects onto the wall markers. Collective: the
// final reduction must be reached by every rank.
func (o *Extractor) Extract(xv [][]ad.Var) {
	ndim := o.msh.Ndim
	eps := o.sim.Adjoint.LimiterCoef * o.sim.Adjoint.RefElemLength
	threshold := o.sim.Adjoint.SharpCoef * eps
	for p, v := range o.msh.Verts {
		for d := 0; d < ndim; d++ {
			sens := o.eng.Derivative(xv[p][d])

			// single-use convention
			o.eng.ResetInput(xv[p][d])

			// sharp-edge suppression: deliberate noise removal, not a numerical artifact
			if o.sim.Adjoint.SharpRemove && v.SharpDist < threshold {
				sens = 0.0
			}
			o.sto.Sens[p][d] = sens
		}
	}
	o.Project()
}

// Project projects the per-point derivative vectors onto the wall-marker normals,
// producing one signed scalar per surface vertex, and accumulates the rank-local
// total as a sum of marker magnitudes. Collective: every rank must reach the final
// reduction.
func (o *Extractor) Project() {
	ndim := o.msh.Ndim
	total := 0.0
	for _, m := range o.msh.Markers {
		if !inp.IsWall(m.Kind) {
			continue
		}
		surf := make([]float64, len(m.Verts))
		geo := 0.0
		for k, p := range m.Verts {

			// projection onto the outward normal
			prod, area := 0.0, 0.0
			for d := 0; d < ndim; d++ {
				prod += m.Normals[k][d] * o.sto.Sens[p][d]
				area += m.Normals[k][d] * m.Normals[k][d]
			}
			sens := prod / math.Sqrt(area)

			// sign convention; corrected for flipped element orientation
			surf[k] = -sens
			if o.msh.Verts[p].Flip {
				surf[k] = -surf[k]
			}

			// owned points only; halo points are someone else's contribution
			if !o.msh.Verts[p].Ghost {
				geo += sens * sens
			}
		}
		o.sto.Surf[m.Tag] = surf

		// marker magnitudes are summed, not signed values
		total += math.Sqrt(geo)
	}
	o.sto.TotalSensGeo = o.red.SumScalar(total)
}
