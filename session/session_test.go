package session

import "testing"

func TestSessionTokensSnapshot(t *testing.T) {
	s := &Session{
		Dt: 0.01, Kinvis: 0.02, Beta: 1.5, Pr: 0.7,
		TolRel: 1e-8, TolAbs: 1e-12, StepMax: 50,
		Advection: AdvectionRotational1, Cylindrical: true,
		DongUoDelta: 0.2, DongDo: 1.1,
	}
	params := s.Tokens().Snapshot()
	if params.Dt != s.Dt || params.Kinvis != s.Kinvis || params.Beta != s.Beta {
		t.Fatalf("Snapshot did not carry Dt/Kinvis/Beta through: %+v", params)
	}
	if params.Prandtl != s.Pr {
		t.Fatalf("Snapshot.Prandtl = %g, want %g", params.Prandtl, s.Pr)
	}
	if !params.Cylindrical {
		t.Fatalf("Snapshot.Cylindrical = false, want true")
	}
	if params.Advection != int(AdvectionRotational1) {
		t.Fatalf("Snapshot.Advection = %d, want %d", params.Advection, AdvectionRotational1)
	}
	if params.DongUoDelta != s.DongUoDelta || params.DongDO != s.DongDo {
		t.Fatalf("Snapshot Dong params mismatch: %+v", params)
	}
}

func TestSessionValidateDefaultsNSlice(t *testing.T) {
	s := &Session{
		Fields: "uvp", NP: 5, NTime: 2,
		Grid: Grid{NelX: 1, NelY: 1},
	}
	s.validate()
	if s.NSlice != 1 {
		t.Fatalf("validate() left NSlice = %d, want default 1", s.NSlice)
	}
}
