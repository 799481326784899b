// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/cpmech/gofvm/adj"
	"github.com/cpmech/gofvm/out"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"
)

func main() {

	// catch errors
	root := true
	defer func() {
		if err := recover(); err != nil {
			if root {
				io.PfRed("\nERROR: %v", err)
				io.Pf("See location of error below:\n")
				chk.Verbose = true
				for i := 5; i > 3; i-- {
					chk.CallerInfo(i)
				}
			}
		}
		mpi.Stop()
	}()
	mpi.Start()
	root = mpi.NewCommunicator(nil).Rank() == 0

	// read input parameters
	fnamepath, _ := io.ArgToFilename(0, "", ".sim", true)
	verbose := io.ArgToBool(1, true)
	erasePrev := io.ArgToBool(2, true)

	// message
	if root && verbose {
		io.PfWhite("\nGofvm Adjoint -- discrete-adjoint sensitivities for Go FVM\n")
		io.Pf("Copyright 2016 The Gofem Authors. All rights reserved.\n")
		io.Pf("Use of this source code is governed by a BSD-style\n")
		io.Pf("license that can be found in the LICENSE file.\n")

		io.Pf("\n%v\n", io.ArgsTable("INPUT ARGUMENTS",
			"filename path", "fnamepath", fnamepath,
			"show messages", "verbose", verbose,
			"erase previous results", "erasePrev", erasePrev,
		))
	}

	// analysis data
	alias := ""
	analysis := adj.NewMain(fnamepath, alias, erasePrev, verbose)

	// run outer adjoint iterations
	err := analysis.Run()
	if err != nil {
		chk.Panic("Run failed:\n%v", err)
	}

	// write surface sensitivities
	err = out.WriteSurfSens(analysis.Sim, analysis.Sto, analysis.Red.Proc)
	if err != nil {
		chk.Panic("cannot write surface sensitivities:\n%v", err)
	}

	// results
	if root && verbose {
		io.Pf("\n%v\n", io.ArgsTable("SENSITIVITIES",
			"objective value", "J", analysis.Ctl.ObjVal,
			"d(J)/d(Mach)", "SensMach", analysis.Sto.SensMach,
			"d(J)/d(AoA)", "SensAoA", analysis.Sto.SensAoA,
			"d(J)/d(Temperature)", "SensTemp", analysis.Sto.SensTemp,
			"d(J)/d(Pressure)", "SensPress", analysis.Sto.SensPress,
			"total geometric", "TotalSensGeo", analysis.Sto.TotalSensGeo,
		))
	}
}
