package shape

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		rows      []string
		wantErr   bool
		wantW     int
		wantH     int
		wantCells int
	}{
		{"square", []string{"##", "##"}, false, 2, 2, 4},
		{"diamond", []string{".#.", "###", ".#."}, false, 3, 3, 5},
		{"single", []string{"#"}, false, 1, 1, 1},
		{"no rows", nil, true, 0, 0, 0},
		{"empty row", []string{""}, true, 0, 0, 0},
		{"ragged", []string{"##", "#"}, true, 0, 0, 0},
		{"bad char", []string{"#x"}, true, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.rows...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if m.Width() != tt.wantW || m.Height() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", m.Width(), m.Height(), tt.wantW, tt.wantH)
			}
			if got := m.Area(); got != tt.wantCells {
				t.Errorf("Area() = %d, want %d", got, tt.wantCells)
			}
		})
	}
}

func TestMaskRoundTripRows(t *testing.T) {
	rows := []string{".##.", "####", ".##."}
	m := MustParse(rows...)
	got := m.Rows()
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("Rows()[%d] = %q, want %q", i, got[i], rows[i])
		}
	}
	if m.String() != ".##./####/.##." {
		t.Errorf("String() = %q", m.String())
	}
}

func TestMaskAt(t *testing.T) {
	m := MustParse(".#", "#.")
	if m.At(0, 0) || !m.At(0, 1) || !m.At(1, 0) || m.At(1, 1) {
		t.Errorf("At() mismatch for %s", m)
	}
	if m.At(-1, 0) || m.At(0, 2) || m.At(2, 0) {
		t.Error("At() out of range should be false")
	}
}

func TestMaskCellsOrder(t *testing.T) {
	m := MustParse("#.#", ".#.")
	cells := m.Cells()
	want := []Cell{{0, 0}, {0, 2}, {1, 1}}
	if len(cells) != len(want) {
		t.Fatalf("Cells() len = %d, want %d", len(cells), len(want))
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("Cells()[%d] = %+v, want %+v", i, cells[i], want[i])
		}
	}
}

func TestMaskCloneIsDeep(t *testing.T) {
	m := Rect(2, 2)
	c := m.Clone()
	c[0][0] = false
	if !m[0][0] {
		t.Error("Clone() shares rows with the original")
	}
	if Mask(nil).Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse() with ragged rows should panic")
		}
	}()
	MustParse("##", "#")
}
