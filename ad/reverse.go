// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ad

import (
	"math"

	"github.com/cpmech/gosl/chk"
)

// operation kinds
const (
	opadd = iota + 1
	opsub
	opmul
	opdiv
	opneg
	opaddc
	opmulc
	opsin
	opcos
	opsqrt
	opabs
)

// operation holds one recorded primitive operation
type operation struct {
	kind int     // operation kind
	res  Var     // result slot
	a, b Var     // argument slots; b may be None
	c    float64 // constant argument for opaddc/opmulc
}

// Tape implements Engine with an explicit operator tape. Values are always evaluated;
// operations are appended only while a recording session is active, so the same code path
// serves both passive evaluation and recording.
type Tape struct {
	vals      []float64   // value of each slot
	adjoint   []float64   // adjoint accumulator of each slot
	ops       []operation // recorded operations, in execution order
	outputs   []Var       // slots marked as outputs
	recording bool        // session active
	swept     bool        // reverse sweep done
}

// NewTape returns a new empty tape
func NewTape() *Tape {
	return new(Tape)
}

// StartRecording begins a new recording session
func (o *Tape) StartRecording() {
	if o.recording {
		chk.Panic("tape already holds an active recording session")
	}
	o.recording = true
	o.swept = false
}

// StopRecording ends the recording session
func (o *Tape) StopRecording() {
	o.recording = false
}

// Recording returns whether a session is active
func (o *Tape) Recording() bool {
	return o.recording
}

// Register registers an independent input and returns its handle
func (o *Tape) Register(x float64) Var {
	return o.alloc(x)
}

// RegisterOutput marks v as an output of the recorded section
func (o *Tape) RegisterOutput(v Var) {
	o.outputs = append(o.outputs, v)
}

// SeedAdjoint assigns the initial adjoint value of v before the reverse sweep
func (o *Tape) SeedAdjoint(v Var, s float64) {
	o.growAdjoint()
	o.adjoint[v] = s
}

// ComputeAdjoint performs the reverse sweep, propagating seeded adjoints backwards
// through the recorded operations
func (o *Tape) ComputeAdjoint() {
	if o.recording {
		chk.Panic("cannot run reverse sweep while tape is still recording")
	}
	o.growAdjoint()
	for i := len(o.ops) - 1; i >= 0; i-- {
		op := o.ops[i]
		w := o.adjoint[op.res]
		if w == 0 {
			continue
		}
		switch op.kind {
		case opadd:
			o.adjoint[op.a] += w
			o.adjoint[op.b] += w
		case opsub:
			o.adjoint[op.a] += w
			o.adjoint[op.b] -= w
		case opmul:
			o.adjoint[op.a] += w * o.vals[op.b]
			o.adjoint[op.b] += w * o.vals[op.a]
		case opdiv:
			o.adjoint[op.a] += w / o.vals[op.b]
			o.adjoint[op.b] -= w * o.vals[op.res] / o.vals[op.b]
		case opneg:
			o.adjoint[op.a] -= w
		case opaddc:
			o.adjoint[op.a] += w
		case opmulc:
			o.adjoint[op.a] += w * op.c
		case opsin:
			o.adjoint[op.a] += w * math.Cos(o.vals[op.a])
		case opcos:
			o.adjoint[op.a] -= w * math.Sin(o.vals[op.a])
		case opsqrt:
			o.adjoint[op.a] += w / (2.0 * o.vals[op.res])
		case opabs:
			if o.vals[op.a] < 0 {
				o.adjoint[op.a] -= w
			} else {
				o.adjoint[op.a] += w
			}
		}
	}
	o.swept = true
}

// Derivative harvests the adjoint accumulated at v
func (o *Tape) Derivative(v Var) float64 {
	o.growAdjoint()
	return o.adjoint[v]
}

// ResetInput clears the derivative accumulator of v. Inputs follow a single-use convention:
// once harvested they must be reset, otherwise stale adjoints leak into the next iteration.
func (o *Tape) ResetInput(v Var) {
	o.growAdjoint()
	o.adjoint[v] = 0
}

// Reset clears the whole tape. All handles become invalid.
func (o *Tape) Reset() {
	o.vals = o.vals[:0]
	o.adjoint = o.adjoint[:0]
	o.ops = o.ops[:0]
	o.outputs = o.outputs[:0]
	o.recording = false
	o.swept = false
}

// Lift stores a passive constant
func (o *Tape) Lift(x float64) Var {
	return o.alloc(x)
}

// Value returns the current value held at v
func (o *Tape) Value(v Var) float64 {
	return o.vals[v]
}

// arithmetic /////////////////////////////////////////////////////////////////////////////////////

func (o *Tape) Add(a, b Var) Var {
	return o.binary(opadd, a, b, o.vals[a]+o.vals[b])
}

func (o *Tape) Sub(a, b Var) Var {
	return o.binary(opsub, a, b, o.vals[a]-o.vals[b])
}

func (o *Tape) Mul(a, b Var) Var {
	return o.binary(opmul, a, b, o.vals[a]*o.vals[b])
}

func (o *Tape) Div(a, b Var) Var {
	return o.binary(opdiv, a, b, o.vals[a]/o.vals[b])
}

func (o *Tape) Neg(a Var) Var {
	return o.unary(opneg, a, -o.vals[a])
}

func (o *Tape) AddC(a Var, c float64) Var {
	res := o.unary(opaddc, a, o.vals[a]+c)
	o.setconst(c)
	return res
}

func (o *Tape) MulC(a Var, c float64) Var {
	res := o.unary(opmulc, a, o.vals[a]*c)
	o.setconst(c)
	return res
}

func (o *Tape) Sin(a Var) Var {
	return o.unary(opsin, a, math.Sin(o.vals[a]))
}

func (o *Tape) Cos(a Var) Var {
	return o.unary(opcos, a, math.Cos(o.vals[a]))
}

func (o *Tape) Sqrt(a Var) Var {
	return o.unary(opsqrt, a, math.Sqrt(o.vals[a]))
}

func (o *Tape) Abs(a Var) Var {
	return o.unary(opabs, a, math.Abs(o.vals[a]))
}

// auxiliary //////////////////////////////////////////////////////////////////////////////////////

// alloc creates a new slot holding x
func (o *Tape) alloc(x float64) Var {
	o.vals = append(o.vals, x)
	return Var(len(o.vals) - 1)
}

// unary evaluates a one-argument operation and records it if a session is active
func (o *Tape) unary(kind int, a Var, val float64) Var {
	res := o.alloc(val)
	if o.recording {
		o.ops = append(o.ops, operation{kind: kind, res: res, a: a, b: None})
	}
	return res
}

// binary evaluates a two-argument operation and records it if a session is active
func (o *Tape) binary(kind int, a, b Var, val float64) Var {
	res := o.alloc(val)
	if o.recording {
		o.ops = append(o.ops, operation{kind: kind, res: res, a: a, b: b})
	}
	return res
}

// setconst stores the constant argument of the last recorded operation
func (o *Tape) setconst(c float64) {
	if o.recording {
		o.ops[len(o.ops)-1].c = c
	}
}

// growAdjoint resizes the adjoint array to cover all slots
func (o *Tape) growAdjoint() {
	for len(o.adjoint) < len(o.vals) {
		o.adjoint = append(o.adjoint, 0)
	}
}
