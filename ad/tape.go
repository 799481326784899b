// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package ad implements reverse-mode automatic differentiation based on an operator tape
package ad

// Var is a handle to a value stored on a tape. Handles become invalid after Reset and must be
// obtained again by re-registering inputs; holding on to them across recordings corrupts gradients.
type Var int

// None is an invalid handle
const None Var = -1

// Engine defines the capability that any reverse-mode differentiation backend must provide.
// Since Go has no operator overloading, the arithmetic used during a recording is part of the
// capability; a source-transformation backend would implement the same methods.
//
// Only one recording session may be active per process at a time; the tape is not reentrant.
type Engine interface {

	// lifecycle
	StartRecording()         // begins a new recording session
	StopRecording()          // ends the recording session; the tape is then ready for the reverse sweep
	Recording() bool         // whether a session is active
	Register(x float64) Var  // registers an independent input and returns its handle
	RegisterOutput(v Var)    // marks v as an output of the recorded section
	SeedAdjoint(v Var, s float64) // assigns the initial adjoint value of v before the reverse sweep
	ComputeAdjoint()         // performs the reverse sweep
	Derivative(v Var) float64 // harvests the adjoint (derivative) accumulated at v
	ResetInput(v Var)        // clears the derivative accumulator of v (single-use convention)
	Reset()                  // clears the whole tape; all handles become invalid

	// values
	Lift(x float64) Var   // stores a passive constant
	Value(v Var) float64  // current value held at v

	// arithmetic
	Add(a, b Var) Var
	Sub(a, b Var) Var
	Mul(a, b Var) Var
	Div(a, b Var) Var
	Neg(a Var) Var
	AddC(a Var, c float64) Var
	MulC(a Var, c float64) Var
	Sin(a Var) Var
	Cos(a Var) Var
	Sqrt(a Var) Var
	Abs(a Var) Var
}
