package block

import (
	"testing"

	"github.com/matzehuels/coinstack/pkg/shape"
)

func TestNew(t *testing.T) {
	mask := shape.Rect(2, 2)
	b := New("bitcoin", 0.5, mask, shape.Visual{Name: "Bitcoin"})

	if b.ID == "" {
		t.Fatal("New() should assign an id")
	}
	if b.State != Falling {
		t.Errorf("State = %v, want %v", b.State, Falling)
	}
	if b.Settled() || b.Committed() {
		t.Error("new block should be neither settled nor committed")
	}

	mask[0][0] = false
	if !b.Mask[0][0] {
		t.Error("New() should copy the mask")
	}

	other := New("bitcoin", 0.5, mask, shape.Visual{})
	if other.ID == b.ID {
		t.Error("New() ids should be unique")
	}
}

func TestBlockCells(t *testing.T) {
	tests := []struct {
		name string
		mask shape.Mask
		x, y int
		want []Point
	}{
		{
			name: "cube at origin",
			mask: shape.Rect(1, 1),
			want: []Point{{0, 0}},
		},
		{
			name: "square above grid",
			mask: shape.Rect(2, 2),
			x:    3, y: -2,
			want: []Point{{3, -2}, {4, -2}, {3, -1}, {4, -1}},
		},
		{
			name: "diamond skips empty cells",
			mask: shape.MustParse(".#.", "###", ".#."),
			x:    1, y: 5,
			want: []Point{{2, 5}, {1, 6}, {2, 6}, {3, 6}, {2, 7}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("x", 1, tt.mask, shape.Visual{})
			b.X, b.Y = tt.x, tt.y
			got := b.Cells()
			if len(got) != len(tt.want) {
				t.Fatalf("Cells() len = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Cells()[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBlockCommitted(t *testing.T) {
	b := New("x", 1, shape.Rect(1, 1), shape.Visual{})
	b.State = Settled
	if !b.Committed() {
		t.Error("settled block should be committed")
	}
	b.Overflow = true
	if b.Committed() {
		t.Error("overflow block should not be committed")
	}
	if !b.Settled() {
		t.Error("overflow block is still settled")
	}
}

func TestBlockClone(t *testing.T) {
	b := New("x", 1, shape.Rect(2, 1), shape.Visual{})
	c := b.Clone()
	c.Mask[0][0] = false
	c.X = 9
	if !b.Mask[0][0] || b.X == 9 {
		t.Error("Clone() should not alias the original")
	}
}

func TestStateString(t *testing.T) {
	if Falling.String() != "falling" || Settled.String() != "settled" {
		t.Errorf("unexpected state names %q %q", Falling, Settled)
	}
	if State(9).String() != "unknown" {
		t.Errorf("State(9).String() = %q", State(9))
	}
}
