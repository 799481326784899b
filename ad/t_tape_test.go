// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ad

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

func Test_tape01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("tape01. simple expressions and reverse sweep")

	// record f(x,y) = x*y + sin(x)
	tp := NewTape()
	tp.StartRecording()
	x := tp.Register(2.0)
	y := tp.Register(3.0)
	f := tp.Add(tp.Mul(x, y), tp.Sin(x))
	tp.RegisterOutput(f)
	tp.StopRecording()

	// check value
	chk.Float64(tst, "f", 1e-15, tp.Value(f), 2.0*3.0+math.Sin(2.0))

	// reverse sweep
	tp.SeedAdjoint(f, 1.0)
	tp.ComputeAdjoint()
	chk.Float64(tst, "df/dx", 1e-15, tp.Derivative(x), 3.0+math.Cos(2.0))
	chk.Float64(tst, "df/dy", 1e-15, tp.Derivative(y), 2.0)
}

func Test_tape02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("tape02. derivatives versus central differences")

	F := func(tp *Tape, x, y Var) Var {
		a := tp.Div(tp.Cos(x), tp.AddC(tp.Mul(y, y), 1.0))
		b := tp.Sqrt(tp.Add(tp.Mul(x, x), tp.Mul(y, y)))
		return tp.Sub(tp.Mul(a, b), tp.MulC(x, 0.5))
	}

	xx, yy := 0.7, -1.3

	// analytical via tape
	tp := NewTape()
	tp.StartRecording()
	x := tp.Register(xx)
	y := tp.Register(yy)
	f := F(tp, x, y)
	tp.RegisterOutput(f)
	tp.StopRecording()
	tp.SeedAdjoint(f, 1.0)
	tp.ComputeAdjoint()
	dfdx := tp.Derivative(x)
	dfdy := tp.Derivative(y)

	// numerical: passive evaluations (no recording)
	chk.DerivScaSca(tst, "df/dx", 1e-8, dfdx, xx, 1e-3, chk.Verbose, func(v float64) float64 {
		t := NewTape()
		return t.Value(F(t, t.Lift(v), t.Lift(yy)))
	})
	chk.DerivScaSca(tst, "df/dy", 1e-8, dfdy, yy, 1e-3, chk.Verbose, func(v float64) float64 {
		t := NewTape()
		return t.Value(F(t, t.Lift(xx), t.Lift(v)))
	})
}

func Test_tape03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("tape03. input reset and tape reset")

	tp := NewTape()
	tp.StartRecording()
	x := tp.Register(1.5)
	f := tp.Mul(x, x)
	tp.RegisterOutput(f)
	tp.StopRecording()
	tp.SeedAdjoint(f, 1.0)
	tp.ComputeAdjoint()
	chk.Float64(tst, "df/dx", 1e-15, tp.Derivative(x), 3.0)

	// single-use convention: after reset the accumulator is clean
	tp.ResetInput(x)
	chk.Float64(tst, "df/dx after reset", 1e-15, tp.Derivative(x), 0)

	// a fresh session on a cleared tape starts from scratch
	tp.Reset()
	tp.StartRecording()
	x = tp.Register(2.0)
	f = tp.MulC(x, 4.0)
	tp.RegisterOutput(f)
	tp.StopRecording()
	tp.SeedAdjoint(f, 1.0)
	tp.ComputeAdjoint()
	chk.Float64(tst, "dg/dx", 1e-15, tp.Derivative(x), 4.0)
}

func Test_tape04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("tape04. null seed propagates zeros")

	tp := NewTape()
	tp.StartRecording()
	x := tp.Register(0.8)
	y := tp.Register(0.2)
	f := tp.Mul(tp.Sin(x), tp.Cos(y))
	tp.RegisterOutput(f)
	tp.StopRecording()
	tp.SeedAdjoint(f, 0.0)
	tp.ComputeAdjoint()
	chk.Float64(tst, "df/dx", 1e-17, tp.Derivative(x), 0)
	chk.Float64(tst, "df/dy", 1e-17, tp.Derivative(y), 0)
}
