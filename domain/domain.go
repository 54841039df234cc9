// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package domain implements Domain, the collection of Fields advanced
// together by the integrator, plus the binary field-dump I/O.
// Grounded on fem.Domain (the process-local collection of Node/Element
// objects driving a single time step) and fem/output.go's dump-on-
// schedule idiom, generalised from FE nodal output to SEM plane-major
// field dumps with the fixed 351-byte self-describing header.
package domain

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/lab272/semtex-go/auxfield"
	"github.com/lab272/semtex-go/femlib"
	"github.com/lab272/semtex-go/field"
	"github.com/lab272/semtex-go/geom"
	"github.com/lab272/semtex-go/mesh"
)

// Domain owns every Field advanced by one run, plus the schedule
// bookkeeping for checkpoint/history/CFL dumps (IO_FLD/IO_HIS/
// IO_CFL tokens).
type Domain struct {
	SessionName string
	Geo         *geom.Geometry
	Msh         *mesh.Mesh
	Fields      map[string]*field.Field // keyed by single-character field name
	Order       string                  // FIELDS order, e.g. "uvwp"

	Step int
	Time float64
	Dt   float64

	IoFld int
	IoHis int
	IoCfl int
}

// NewDomain builds an empty Domain; callers populate Fields via AddField.
func NewDomain(sessionName string, g *geom.Geometry, m *mesh.Mesh, order string, dt float64) *Domain {
	return &Domain{
		SessionName: sessionName,
		Geo:         g,
		Msh:         m,
		Fields:      make(map[string]*field.Field),
		Order:       order,
		Dt:          dt,
	}
}

// AddField registers a Field under its single-character name.
func (d *Domain) AddField(f *field.Field) {
	d.Fields[f.Name] = f
}

// ShouldDump reports whether the given schedule period (IO_FLD, IO_HIS,
// or IO_CFL) fires at the current step.
func (d *Domain) ShouldDump(period int) bool {
	return period > 0 && d.Step%period == 0
}

// headerSize is the fixed, self-describing dump header length: exactly
// 351 bytes including newlines.
const headerSize = 351

// header field widths: 25-char right-padded values
const fieldWidth = 25

// DumpHeader encodes the field-dump header. Fields, in fixed order:
// session name; creation timestamp; "n_r n_s n_z n_el"; step; time;
// dt; kinvis; beta; field-name string; "binary " + endianness marker.
type DumpHeader struct {
	SessionName string
	Created     time.Time
	Nr, Ns, Nz, Nel int
	Step            int
	Time, Dt, Kinvis, Beta float64
	FieldNames string
	BigEndian  bool
}

func padField(s string) string {
	if len(s) >= fieldWidth {
		return s[:fieldWidth]
	}
	return s + string(bytes.Repeat([]byte{' '}, fieldWidth-len(s)))
}

// Encode writes the exact 351-byte header, matching the documented field list
// and right-padding convention: each line is the 25-char padded value, a
// space, a short descriptive label, and a newline.
func (h *DumpHeader) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(padField(h.SessionName) + " Session\n")
	buf.WriteString(padField(h.Created.Format("Mon Jan  2 15:04:05 2006")) + " Created\n")
	buf.WriteString(padField(fmt.Sprintf("%d %d %d %d", h.Nr, h.Ns, h.Nz, h.Nel)) + " Nr, Ns, Nz, Elements\n")
	buf.WriteString(padField(fmt.Sprintf("%d", h.Step)) + " Step\n")
	buf.WriteString(padField(fmt.Sprintf("%.10g", h.Time)) + " Time\n")
	buf.WriteString(padField(fmt.Sprintf("%.10g", h.Dt)) + " Time step\n")
	buf.WriteString(padField(fmt.Sprintf("%.10g", h.Kinvis)) + " Kinvis\n")
	buf.WriteString(padField(fmt.Sprintf("%.10g", h.Beta)) + " Beta\n")
	buf.WriteString(padField(h.FieldNames) + " Fields written\n")
	marker := "little"
	if h.BigEndian {
		marker = "big"
	}
	buf.WriteString(padField("binary " + marker) + " Format\n")
	out := buf.Bytes()
	if len(out) != headerSize {
		femlib.Fatal("domain.DumpHeader.Encode", "encoded header is %d bytes, want %d", len(out), headerSize)
	}
	return out
}

// hostByteOrder returns the binary.ByteOrder matching the host, used when
// writing a fresh dump; the header records the endianness used.
func hostByteOrder() binary.ByteOrder {
	var x uint16 = 1
	buf := [2]byte{}
	binary.LittleEndian.PutUint16(buf[:], x)
	if buf[0] == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Dump writes the restart-format binary dump of every field in d.Order,
// ("Field dumps"). Data follows the header as the field's whole
// NzLocal*PlaneSize AuxField storage (plane padding included) in float64
// values per field, in field-order.
func (d *Domain) Dump(path string, kinvis, beta float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	order := hostByteOrder()
	header := &DumpHeader{
		SessionName: d.SessionName,
		Created:     time.Now(),
		Nr:          d.Geo.Np, Ns: d.Geo.Np, Nz: d.Geo.Nz, Nel: d.Geo.Nel,
		Step: d.Step, Time: d.Time, Dt: d.Dt, Kinvis: kinvis, Beta: beta,
		FieldNames: d.Order,
		BigEndian:  order == binary.BigEndian,
	}
	if _, err := f.Write(header.Encode()); err != nil {
		return err
	}
	for _, name := range d.Order {
		fl, ok := d.Fields[string(name)]
		if !ok {
			femlib.Fatal("domain.Domain.Dump", "field %q declared in order but not registered", string(name))
		}
		if err := writeAuxField(f, fl.Data, order); err != nil {
			return err
		}
	}
	return nil
}

func writeAuxField(f *os.File, a *auxfield.AuxField, order binary.ByteOrder) error {
	buf := make([]byte, 8*len(a.Data))
	for i, v := range a.Data {
		order.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	_, err := f.Write(buf)
	return err
}

// Load reads a dump header and the endianness-corrected field data back
// into the Domain's registered fields, performing byte reversal if the
// file's recorded endianness differs from the host's.
func (d *Domain) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = d.LoadAt(raw, 0)
	return err
}

// DumpSize returns the byte length of one dump of this Domain (header
// plus NzLocal*PlaneSize float64 values per field in d.Order), the unit
// a multi-slice base-flow file is built from.
func (d *Domain) DumpSize() int {
	size := headerSize
	for _, name := range d.Order {
		if fl, ok := d.Fields[string(name)]; ok {
			size += 8 * len(fl.Data.Data)
		}
	}
	return size
}

// LoadAt parses one dump (header + per-field data) out of raw starting
// at byte offset, writing the endianness-corrected values into the
// Domain's registered fields and returning the offset of the next dump
// -- the primitive cmd/dog-rsi uses to step through the N_SLICE
// consecutive dumps of a base-flow file.
func (d *Domain) LoadAt(raw []byte, offset int) (next int, err error) {
	const routine = "domain.Domain.LoadAt"
	if offset+headerSize > len(raw) {
		femlib.Fatal(routine, "dump at offset %d shorter than header (%d bytes)", offset, headerSize)
	}
	headerText := string(raw[offset : offset+headerSize])
	fileOrder := binary.LittleEndian
	if bytes.Contains([]byte(headerText), []byte("binary big")) {
		fileOrder = binary.BigEndian
	}
	data := raw[offset+headerSize:]
	off := 0
	for _, name := range d.Order {
		fl, ok := d.Fields[string(name)]
		if !ok {
			femlib.Fatal(routine, "field %q declared in order but not registered", string(name))
		}
		n := len(fl.Data.Data)
		if off+8*n > len(data) {
			femlib.Fatal(routine, "dump at offset %d truncated for field %q", offset, string(name))
		}
		for i := 0; i < n; i++ {
			bits := fileOrder.Uint64(data[off+8*i:])
			fl.Data.Data[i] = math.Float64frombits(bits)
		}
		off += 8 * n
	}
	return offset + headerSize + off, nil
}
