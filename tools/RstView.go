// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"strings"

	"github.com/cpmech/gosl/io"
)

// RstView prints the contents of an adjoint restart file as a table
func main() {

	// catch errors
	defer func() {
		if err := recover(); err != nil {
			io.PfRed("ERROR: %v\n", err)
		}
	}()

	// input data
	rstfn, fnkey := io.ArgToFilename(0, "adj01_adj", ".dat", true)
	nlines := io.ArgToInt(1, 0)
	io.Pf("\n%v\n", io.ArgsTable("INPUT ARGUMENTS",
		"restart filename", "rstfn", rstfn,
		"number of lines to show (0=all)", "nlines", nlines,
	))

	// read file
	b := io.ReadFile(rstfn)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	io.PfWhite("%s: %d points\n\n", fnkey, len(lines)-1)

	// print table
	if nlines <= 0 || nlines > len(lines) {
		nlines = len(lines)
	}
	for i := 0; i < nlines; i++ {
		io.Pf("%s\n", lines[i])
	}
}
