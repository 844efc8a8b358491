package ua

import "testing"

func TestParseIndexRange(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
		wantLen int
	}{
		{"", false, 0},
		{"3", false, 1},
		{"1:4", false, 1},
		{"1:4,2:6", false, 2},
		{"4:1", true, 0},
		{"abc", true, 0},
		{"-1", true, 0},
	}
	for _, c := range cases {
		r, err := ParseIndexRange(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseIndexRange(%q): want error, got none", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseIndexRange(%q): unexpected error: %v", c.in, err)
			continue
		}
		if len(r) != c.wantLen {
			t.Errorf("ParseIndexRange(%q): got %d dimensions, want %d", c.in, len(r), c.wantLen)
		}
	}
}

func TestIndexRangeOverlaps(t *testing.T) {
	whole, _ := ParseIndexRange("")
	a, _ := ParseIndexRange("0:2")
	b, _ := ParseIndexRange("2:4")
	c, _ := ParseIndexRange("3:4")

	if !whole.Overlaps(a) {
		t.Errorf("empty range did not overlap a concrete range")
	}
	if !a.Overlaps(b) {
		t.Errorf("0:2 and 2:4 should overlap at index 2")
	}
	if a.Overlaps(c) {
		t.Errorf("0:2 and 3:4 should not overlap")
	}
}

func TestIndexRangeApply(t *testing.T) {
	r, _ := ParseIndexRange("1:2")
	out, err := r.Apply([]int{10, 20, 30, 40})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	got, ok := out.([]int)
	if !ok {
		t.Fatalf("Apply returned %T, want []int", out)
	}
	want := []int{20, 30}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Apply(1:2, [10,20,30,40]) = %v, want %v", got, want)
	}
}

func TestIndexRangeApplyOutOfBounds(t *testing.T) {
	r, _ := ParseIndexRange("5:6")
	if _, err := r.Apply([]int{1, 2, 3}); err == nil {
		t.Errorf("Apply with an out-of-bounds range did not return an error")
	}
}

func TestIndexRangeApplyEmptyIsIdentity(t *testing.T) {
	var r IndexRange
	out, err := r.Apply(42)
	if err != nil {
		t.Fatalf("Apply on empty range returned error: %v", err)
	}
	if out != 42 {
		t.Errorf("Apply on empty range = %v, want 42 unchanged", out)
	}
}
