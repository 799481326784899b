// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adj

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/mpi"
)

// Reducer holds the explicit execution context of one mesh partition and performs the
// collective aggregations. All rank/communicator state lives here; nothing is queried
// from process-wide globals by the rest of the package.
type Reducer struct {
	Proc  int  // this processor number (rank)
	Nproc int  // number of processors
	Root  bool // this is the root (seeding) processor
	Distr bool // distributed run with more than one processor

	comm *mpi.Communicator // world communicator; nil in serial runs
	buf  []float64         // reduction buffer
	wspc []float64         // reduction workspace
}

// NewReducer returns a new reduction context, from mpi when running distributed
func NewReducer() (o *Reducer) {
	o = new(Reducer)
	o.Nproc = 1
	if mpi.IsOn() {
		o.comm = mpi.NewCommunicator(nil)
		o.Proc = o.comm.Rank()
		o.Nproc = o.comm.Size()
	}
	o.Root = o.Proc == 0
	o.Distr = o.Nproc > 1
	return
}

// SumScalar returns the communicator-wide sum of x. Collective: every rank must call.
func (o *Reducer) SumScalar(x float64) float64 {
	if !o.Distr {
		return x
	}
	o.resize(1)
	o.buf[0] = x
	o.comm.AllReduceSum(o.wspc, o.buf)
	return o.wspc[0]
}

// SumScalars sums x across the communicator, in place. Collective: every rank must call.
func (o *Reducer) SumScalars(x []float64) {
	if !o.Distr {
		return
	}
	o.resize(len(x))
	copy(o.buf, x)
	o.comm.AllReduceSum(x, o.buf)
}

// NoneFailed combines a local error with every other rank's via a collective OR and
// returns a joint error if any rank failed. Either all ranks get nil or all ranks get
// an error, so all abort together instead of leaving survivors blocked on the next
// collective. Collective: every rank must call, including ranks with localErr == nil.
func (o *Reducer) NoneFailed(localErr error) error {
	flag := 0.0
	if localErr != nil {
		flag = 1.0
	}
	nfailed := o.SumScalar(flag)
	if nfailed == 0 {
		return nil
	}
	if localErr != nil {
		return localErr
	}
	return chk.Err("aborting: %g processor(s) reported a fatal condition", nfailed)
}

// resize grows the reduction buffers to hold n values
func (o *Reducer) resize(n int) {
	for len(o.buf) < n {
		o.buf = append(o.buf, 0)
	}
	for len(o.wspc) < n {
		o.wspc = append(o.wspc, 0)
	}
	o.buf = o.buf[:n]
	o.wspc = o.wspc[:n]
}
