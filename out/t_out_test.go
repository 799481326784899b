// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/cpmech/gofvm/adj"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

func Test_out01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("out01. surface sensitivity files")

	m := adj.NewMain("data/adj01.sim", "out01", true, false)
	for it := 0; it < 10; it++ {
		if err := m.Iterate(it, 1); err != nil {
			tst.Errorf("Iterate failed:\n%v", err)
			return
		}
	}
	err := WriteSurfSens(m.Sim, m.Sto, m.Red.Proc)
	if err != nil {
		tst.Errorf("WriteSurfSens failed:\n%v", err)
		return
	}

	// one file per wall marker, one line per marker vertex plus the header
	fn := filepath.Join(m.Sim.DirOut, io.Sf("%s_surfsens_%d_p%d.dat", m.Sim.Key, -1, 0))
	b := io.ReadFile(fn)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	chk.IntAssert(len(lines), 1+8)
	ncol := 1 + m.Sim.Ndim + 1
	for _, line := range lines[1:] {
		if len(strings.Fields(line)) != ncol {
			tst.Errorf("surface sensitivity line has wrong number of columns")
			return
		}
	}
}
