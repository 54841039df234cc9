// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session implements the runtime configuration consumed by a run:
// TOKENS, FIELDS, GROUPS, BCS, and SURFACES summaries. Grounded
// on inp/sim.go's Data struct -- a flat, JSON-tagged struct of global
// parameters parsed once at startup. The FEML grammar and token/expression
// calculator that populate these values from a .fem session file are out
// of scope; Session is the decoded result of that
// process, not the parser.
package session

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/lab272/semtex-go/femlib"
)

// Advection selects the nonlinear-term form
type Advection int

const (
	AdvectionSkewSymmetric Advection = iota
	AdvectionAltSkewSymmetric
	AdvectionConvective
	AdvectionRotational1
	AdvectionRotational2
	AdvectionStokes
)

// Session holds the decoded TOKENS section plus the derived FIELDS
// selection, mirroring inp.Data's flat JSON-tagged struct idiom.
type Session struct {
	Name string `json:"name"` // session/run name, used to derive .rst/.bse/.kin/.eig.j/.evl paths

	Fields string `json:"fields"` // ordered letters from {u,v,w,p,c}; one of c, uvp, uvwp, uvcp, uvwcp

	NP     int     `json:"n_p"`
	NZ     int     `json:"n_z"`
	NTime  int     `json:"n_time"`  // J, stiffly-stable order
	NStep  int     `json:"n_step"`
	Dt     float64 `json:"d_t"`
	Kinvis float64 `json:"kinvis"`
	Beta   float64 `json:"beta"` // 2*pi / Lz, fundamental Fourier wavenumber
	Pr     float64 `json:"prandtl"`

	TolRel  float64 `json:"tol_rel"`
	TolAbs  float64 `json:"tol_abs"`
	StepMax int     `json:"step_max"`

	Enumeration int  `json:"enumeration"` // RCM optimisation level 0..3
	Chkpoint    bool `json:"chkpoint"`
	IoFld       int  `json:"io_fld"`
	IoHis       int  `json:"io_his"`
	IoCfl       int  `json:"io_cfl"`

	Advection    Advection `json:"advection"`
	Cylindrical  bool      `json:"cylindrical"`
	LagrangeInt  bool      `json:"lagrange_int"` // true: Lagrange temporal interp of base flow; false: Fourier

	DongUoDelta float64 `json:"dong_uodelta"`
	DongDo      float64 `json:"dong_do"`

	TimeDependentBCs bool `json:"time_dependent_bcs"`
	EstimateDudt     bool `json:"estimate_dudt"`

	// NSlice and BasePeriod describe the base-flow file (session.bse)
	// consumed by the stability driver: N_SLICE consecutive dumps spanning
	// one period of the (possibly time-invariant, NSlice==1) base flow.
	NSlice     int     `json:"n_slice"`
	BasePeriod float64 `json:"base_period"`

	Groups   []Group     `json:"groups"`
	BCSpecs  []BCSpec    `json:"bcs"`
	Surfaces []Surface   `json:"surfaces"`

	Grid Grid `json:"grid"`
}

// Grid is the decoded MESH section of the session file: a
// structured rectangular array of n_el_x * n_el_y quadrilateral elements
// spanning [X0,X1] x [Y0,Y1], with one boundary group id assigned per
// outer side. Full unstructured mesh topology is the part of the FEML
// grammar this module does not parse; a structured
// grid is the minimal stand-in that lets the rest of the kernel build
// concrete element corners, mirroring elem.NewElement's own bilinear-map
// stand-in for per-element geometric factors.
type Grid struct {
	NelX int `json:"n_el_x"`
	NelY int `json:"n_el_y"`
	X0   float64 `json:"x0"`
	X1   float64 `json:"x1"`
	Y0   float64 `json:"y0"`
	Y1   float64 `json:"y1"`

	// side -> group id, side in {"xmin","xmax","ymin","ymax"}
	SideGroups map[string]int `json:"side_groups"`
}

// Group mirrors the GROUPS descriptor: an id, a single-char
// tag, and a descriptor string (reserved: "axis", "wall", "open", "inlet").
type Group struct {
	Id         int    `json:"id"`
	Char       byte   `json:"char"`
	Descriptor string `json:"descriptor"`
}

// BCSpec is one BCS record: group id, field letter, tag character
// (D,E,N,M,H,A,O,I), and a payload (constant value or expression string,
// resolved by the token calculator -- out of scope here).
type BCSpec struct {
	GroupId int     `json:"group_id"`
	Field   string  `json:"field"`
	Tag     string  `json:"tag"`
	Value   float64 `json:"value"`
	Payload string  `json:"payload"`
}

// Surface is one SURFACES record: an element/side pair tagged either to a
// group (<B>) or to a periodic partner element/side (<P>).
type Surface struct {
	ElemId   int    `json:"elem_id"`
	Side     int    `json:"side"`
	Kind     string `json:"kind"` // "B" or "P"
	GroupId  int    `json:"group_id,omitempty"`
	PeerElem int    `json:"peer_elem,omitempty"`
	PeerSide int    `json:"peer_side,omitempty"`
}

// Load reads a decoded Session from path (the FEML session file is
// parsed upstream of this package; here we read its JSON-decoded form,
// matching inp.Data's `io.ReadFile`+`json.Unmarshal` idiom).
func Load(path string) *Session {
	const routine = "session.Load"
	b, err := os.ReadFile(path)
	if err != nil {
		femlib.Fatal(routine, "cannot read session file %q: %v", path, err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		femlib.Fatal(routine, "cannot parse session file %q: %v", path, err)
	}
	s.validate()
	return &s
}

func (s *Session) validate() {
	const routine = "session.Session.validate"
	switch s.Fields {
	case "c", "uvp", "uvwp", "uvcp", "uvwcp":
	default:
		chk.Panic("%s: invalid FIELDS combination %q", routine, s.Fields)
	}
	if s.NP < 2 {
		femlib.Fatal(routine, "n_p must be >= 2, got %d", s.NP)
	}
	if s.NTime < 1 || s.NTime > 3 {
		femlib.Fatal(routine, "n_time (stiffly-stable order) must be 1..3, got %d", s.NTime)
	}
	if s.Grid.NelX < 1 || s.Grid.NelY < 1 {
		femlib.Fatal(routine, "grid.n_el_x/n_el_y must be >= 1")
	}
	if s.NSlice < 1 {
		s.NSlice = 1
	}
	io.Pf("session %q: fields=%s n_p=%d n_z=%d n_time=%d\n", s.Name, s.Fields, s.NP, s.NZ, s.NTime)
}

// Tokens builds the process-wide named-value table ("Femlib token state",
// spec section 5) from this Session's decoded fields, the point at which
// the session's static configuration becomes the live token state the
// integrator consults once per step (see femlib.Tokens.Snapshot).
func (s *Session) Tokens() *femlib.Tokens {
	t := femlib.NewTokens()
	t.SetInt("N_P", s.NP)
	t.SetInt("N_Z", s.NZ)
	t.SetInt("N_TIME", s.NTime)
	t.SetInt("N_STEP", s.NStep)
	t.SetReal("D_T", s.Dt)
	t.SetReal("KINVIS", s.Kinvis)
	t.SetReal("BETA", s.Beta)
	t.SetReal("PRANDTL", s.Pr)
	t.SetReal("TOL_REL", s.TolRel)
	t.SetReal("TOL_ABS", s.TolAbs)
	t.SetInt("STEP_MAX", s.StepMax)
	t.SetInt("ENUMERATION", s.Enumeration)
	if s.Chkpoint {
		t.SetInt("CHKPOINT", 1)
	} else {
		t.SetInt("CHKPOINT", 0)
	}
	t.SetInt("IO_FLD", s.IoFld)
	t.SetInt("IO_HIS", s.IoHis)
	t.SetInt("IO_CFL", s.IoCfl)
	t.SetInt("ADVECTION", int(s.Advection))
	if s.Cylindrical {
		t.SetInt("CYLINDRICAL", 1)
	} else {
		t.SetInt("CYLINDRICAL", 0)
	}
	if s.LagrangeInt {
		t.SetInt("LAGRANGE_INT", 1)
	} else {
		t.SetInt("LAGRANGE_INT", 0)
	}
	t.SetReal("DONG_UODELTA", s.DongUoDelta)
	t.SetReal("DONG_DO", s.DongDo)
	return t
}

// RestartPath, BaseFlowPath, KinPath, EigPath, EvlPath derive the fixed
// filenames from the session name.
func (s *Session) RestartPath() string  { return s.Name + ".rst" }
func (s *Session) BaseFlowPath() string { return s.Name + ".bse" }
func (s *Session) KinPath() string      { return s.Name + ".kin" }
func (s *Session) EigPath(j int) string { return s.Name + ".eig." + strconv.Itoa(j) }
func (s *Session) EvlPath() string      { return s.Name + ".evl" }
