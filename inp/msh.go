// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"encoding/json"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// wall-type marker kinds
const (
	KindWallNoslip     = "wall-noslip"     // no-slip adiabatic wall
	KindWallHeatFlux   = "wall-heatflux"   // prescribed heat-flux wall
	KindWallIsothermal = "wall-isothermal" // isothermal wall
)

// Vert holds vertex data
type Vert struct {
	Id        int       `json:"id"`        // local index in this partition
	Gid       int       `json:"gid"`       // global index across all partitions
	Tag       int       `json:"tag"`       // tag
	C         []float64 `json:"c"`         // coordinates [ndim]
	SharpDist float64   `json:"sharpdist"` // distance to the nearest sharp geometric feature
	Flip      bool      `json:"flip"`      // owning element orientation is flipped w.r.t the canonical convention
	Ghost     bool      `json:"ghost"`     // halo vertex owned by another partition
}

// Marker holds one boundary marker: an ordered list of vertices with outward normals.
// For closed surfaces the vertex list wraps around.
type Marker struct {
	Tag     int         `json:"tag"`     // tag of marker
	Kind    string      `json:"kind"`    // kind; e.g. "wall-noslip", "outlet", "farfield"
	Verts   []int       `json:"verts"`   // local vertex indices, in surface order
	Normals [][]float64 `json:"normals"` // [nverts][ndim] outward normals (area-weighted, not unit)
}

// Mesh holds one partition of the mesh
type Mesh struct {

	// input data
	Ndim    int       `json:"ndim"`    // space dimension
	Gnpoint int       `json:"gnpoint"` // number of points in the global (unpartitioned) mesh
	Npart   int       `json:"npart"`   // number of partitions of the global mesh
	Verts   []*Vert   `json:"verts"`   // vertices in this partition (owned and ghost)
	Markers []*Marker `json:"markers"` // boundary markers

	// derived
	FnamePath string // complete filename path of mesh file
}

// ReadMsh reads a mesh for a partition from a .msh JSON file
func ReadMsh(dir, fn string) *Mesh {

	// new mesh
	var o Mesh

	// read file
	o.FnamePath = filepath.Join(dir, fn)
	b := io.ReadFile(o.FnamePath)

	// decode
	err := json.Unmarshal(b, &o)
	if err != nil {
		chk.Panic("ReadMsh: cannot unmarshal mesh file %q\n%v", o.FnamePath, err)
	}

	// check
	if o.Ndim != 2 && o.Ndim != 3 {
		chk.Panic("ReadMsh: ndim must be 2 or 3. %d is invalid", o.Ndim)
	}
	if o.Npart < 1 {
		o.Npart = 1
	}
	for i, v := range o.Verts {
		if v.Id != i {
			chk.Panic("ReadMsh: vertices must be sequentially numbered. %d != %d", v.Id, i)
		}
		if len(v.C) != o.Ndim {
			chk.Panic("ReadMsh: vertex %d has %d coordinates. mesh is %dD", v.Id, len(v.C), o.Ndim)
		}
		if v.Gid < 0 || v.Gid >= o.Gnpoint {
			chk.Panic("ReadMsh: vertex %d has global index %d out of [0,%d)", v.Id, v.Gid, o.Gnpoint)
		}
	}
	for _, m := range o.Markers {
		if len(m.Normals) != len(m.Verts) {
			chk.Panic("ReadMsh: marker %d has %d normals for %d vertices", m.Tag, len(m.Normals), len(m.Verts))
		}
		for _, p := range m.Verts {
			if p < 0 || p >= len(o.Verts) {
				chk.Panic("ReadMsh: marker %d references inexistent vertex %d", m.Tag, p)
			}
		}
	}
	return &o
}

// NpointOwned returns the number of vertices owned by this partition (excluding ghost/halo)
func (o *Mesh) NpointOwned() (n int) {
	for _, v := range o.Verts {
		if !v.Ghost {
			n++
		}
	}
	return
}

// IsWall tells whether a marker kind is a wall of interest for surface sensitivities
func IsWall(kind string) bool {
	switch kind {
	case KindWallNoslip, KindWallHeatFlux, KindWallIsothermal:
		return true
	}
	return false
}
