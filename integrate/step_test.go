// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package integrate_test

import (
	"math"
	"testing"

	"github.com/lab272/semtex-go/session"
	"github.com/lab272/semtex-go/setup"
)

// buildWallPipeSession builds a two-element, no-slip-walled "uvp" session
// (a minimal cylindrical-pipe-like channel, sans the cylindrical metric)
// wired entirely through session.Session + setup.BuildDomain, exercising
// the same path a real run takes rather than hand-assembling a Domain.
func buildWallPipeSession() *session.Session {
	return &session.Session{
		Name:    "step_test",
		Fields:  "uvp",
		NP:      4,
		NZ:      1,
		NTime:   1,
		Dt:      0.01,
		Kinvis:  1.0,
		Pr:      1.0,
		TolRel:  1e-10,
		TolAbs:  1e-12,
		StepMax: 200,

		Advection: session.AdvectionSkewSymmetric,

		Groups: []session.Group{{Id: 1, Char: 'w', Descriptor: "wall"}},
		BCSpecs: []session.BCSpec{
			{GroupId: 1, Field: "u", Tag: "D", Value: 0},
			{GroupId: 1, Field: "v", Tag: "D", Value: 0},
		},
		Grid: session.Grid{
			NelX: 2, NelY: 1,
			X0: 0, X1: 2, Y0: 0, Y1: 1,
			SideGroups: map[string]int{"xmin": 1, "xmax": 1, "ymin": 1, "ymax": 1},
		},
	}
}

// TestStepperAdvanceDrivesPoiseuilleLikeChannel runs a full
// Stepper.Advance() across a two-element no-slip channel seeded with a
// parabolic velocity profile, checking that the step completes without
// producing NaN/Inf and that the no-slip Dirichlet condition is respected
// exactly at every wall node after the solve -- the wiring
// Field.EvaluateBoundaries + Field.Solve together are responsible for.
func TestStepperAdvanceDrivesPoiseuilleLikeChannel(t *testing.T) {
	s := buildWallPipeSession()
	dom, stepper := setup.BuildDomain(s, nil)

	u := dom.Fields["u"]
	uPlane := u.Data.Plane(0)
	for _, e := range dom.Msh.Elems {
		np := e.Np
		base := e.Id * np * np
		for i := 0; i < np; i++ {
			for j := 0; j < np; j++ {
				y := e.Y[i][j]
				uPlane[base+i*np+j] = y * (1 - y)
			}
		}
	}

	stepper.Advance()

	if dom.Step != 1 {
		t.Fatalf("Dom.Step = %d, want 1", dom.Step)
	}
	if math.Abs(dom.Time-s.Dt) > 1e-12 {
		t.Fatalf("Dom.Time = %g, want %g", dom.Time, s.Dt)
	}

	for _, name := range []string{"u", "v", "p"} {
		dom.Fields[name].Data.CheckNoNaN("TestStepperAdvanceDrivesPoiseuilleLikeChannel")
	}

	for _, name := range []string{"u", "v"} {
		fl := dom.Fields[name]
		plane := fl.Data.Plane(0)
		bsys := fl.Bsyss[0]
		for _, b := range bsys.Boundaries {
			if b.Cond == nil || !b.Cond.IsEssential() {
				continue
			}
			e := fl.Elems[b.ElemId]
			np := e.Np
			base := b.ElemId * np * np
			for _, n := range e.BMap[b.Side] {
				idx := base + n.I*np + n.J
				if math.Abs(plane[idx]) > 1e-8 {
					t.Fatalf("field %q: wall node (elem %d, i=%d, j=%d) = %g, want 0 (no-slip)", name, b.ElemId, n.I, n.J, plane[idx])
				}
			}
		}
	}
}

// TestStepperAdvanceTwiceAccumulatesTime runs two consecutive steps and
// checks the step/time bookkeeping, a minimal regression guard for the
// stepToken-driven BCmgr.BeginStep sequencing now that Advance threads a
// real step counter into Nonlinear (see skewSymmetricForm's alt-form
// parity).
func TestStepperAdvanceTwiceAccumulatesTime(t *testing.T) {
	s := buildWallPipeSession()
	s.Advection = session.AdvectionAltSkewSymmetric
	dom, stepper := setup.BuildDomain(s, nil)

	stepper.Advance()
	stepper.Advance()

	if dom.Step != 2 {
		t.Fatalf("Dom.Step = %d, want 2", dom.Step)
	}
	if math.Abs(dom.Time-2*s.Dt) > 1e-12 {
		t.Fatalf("Dom.Time = %g, want %g", dom.Time, 2*s.Dt)
	}
	for _, name := range []string{"u", "v", "p"} {
		dom.Fields[name].Data.CheckNoNaN("TestStepperAdvanceTwiceAccumulatesTime")
	}
}
