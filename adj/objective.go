// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adj

import (
	"github.com/cpmech/gofvm/ad"
	"github.com/cpmech/gofvm/fvm"

	"github.com/cpmech/gosl/chk"
)

// Objective maps an objective selector to a zero-argument scalar accessor on the
// direct solver. The accessor is communicator-wide (hard contract on fvm.Direct),
// so the value it returns is identical on every rank.
type Objective func(dir fvm.Direct) ad.Var

// objectives is the fixed selector table
var objectives = map[string]Objective{
	"drag":              func(dir fvm.Direct) ad.Var { return dir.TotalCDrag() },
	"lift":              func(dir fvm.Direct) ad.Var { return dir.TotalCLift() },
	"sideforce":         func(dir fvm.Direct) ad.Var { return dir.TotalCSideForce() },
	"efficiency":        func(dir fvm.Direct) ad.Var { return dir.TotalCEff() },
	"mx":                func(dir fvm.Direct) ad.Var { return dir.TotalCMx() },
	"my":                func(dir fvm.Direct) ad.Var { return dir.TotalCMy() },
	"mz":                func(dir fvm.Direct) ad.Var { return dir.TotalCMz() },
	"equivarea":         func(dir fvm.Direct) ad.Var { return dir.TotalCEquivArea() },
	"avgtotalpressure":  func(dir fvm.Direct) ad.Var { return dir.AvgTotalPressure() },
	"avgoutletpressure": func(dir fvm.Direct) ad.Var { return dir.AvgOutletPressure() },
	"massflowrate":      func(dir fvm.Direct) ad.Var { return dir.MassFlowRate() },
	"nozzlethrust":      func(dir fvm.Direct) ad.Var { return dir.NozzleThrust() },
}

// GetObjective returns the accessor for an objective selector. An unrecognized
// selector is a configuration error, reported at setup and never mid-run.
func GetObjective(selector string) Objective {
	obj, ok := objectives[selector]
	if !ok {
		chk.Panic("objective selector %q is invalid", selector)
	}
	return obj
}
