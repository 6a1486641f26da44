package delta

import (
	"reflect"
	"testing"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		prev      []string
		curr      []string
		wantKind  Kind
		wantLines []string
	}{
		{"both empty", nil, nil, NoChange, nil},
		{"first capture", nil, []string{"a", "b"}, Reset, []string{"a", "b"}},
		{"identical", []string{"a", "b"}, []string{"a", "b"}, NoChange, nil},
		{"pure append", []string{"a", "b"}, []string{"a", "b", "c"}, Append, []string{"c"}},
		{"multi append", []string{"a"}, []string{"a", "b", "c"}, Append, []string{"b", "c"}},
		{"shrink", []string{"a", "b", "c"}, []string{"x", "y"}, Reset, []string{"x", "y"}},
		{"shrink keeping prefix", []string{"a", "b", "c"}, []string{"a", "b"}, Reset, []string{"a", "b"}},
		{"middle mutation", []string{"a", "b", "c"}, []string{"a", "X", "c"}, Reset, []string{"a", "X", "c"}},
		{"scrolled append", []string{"a", "b", "c"}, []string{"b", "c", "d"}, Reset, []string{"b", "c", "d"}},
		{"grow with changed head", []string{"a", "b"}, []string{"z", "b", "c"}, Reset, []string{"z", "b", "c"}},
		{"cleared", []string{"a"}, []string{}, Reset, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.prev, tt.curr)
			if got.Kind != tt.wantKind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if tt.wantKind == NoChange {
				if got.Changed() {
					t.Error("Changed() = true for NoChange")
				}
				return
			}
			if !reflect.DeepEqual(got.Lines, tt.wantLines) {
				t.Errorf("Lines = %q, want %q", got.Lines, tt.wantLines)
			}
		})
	}
}

func TestCompute_IdenticalAlwaysNoChange(t *testing.T) {
	inputs := [][]string{
		{""},
		{"one"},
		{"a", "a", "a"},
		{"", "x", ""},
	}
	for _, in := range inputs {
		cp := append([]string(nil), in...)
		if got := Compute(in, cp); got.Kind != NoChange {
			t.Errorf("Compute(%q, %q) = %v, want NoChange", in, cp, got.Kind)
		}
	}
}

func TestCompute_AppendReturnsExactTail(t *testing.T) {
	prev := []string{"l1", "l2", "l3"}
	for n := 1; n <= 4; n++ {
		curr := append([]string(nil), prev...)
		var added []string
		for i := 0; i < n; i++ {
			line := "new" + string(rune('a'+i))
			curr = append(curr, line)
			added = append(added, line)
		}
		got := Compute(prev, curr)
		if got.Kind != Append {
			t.Fatalf("n=%d: Kind = %v, want Append", n, got.Kind)
		}
		if !reflect.DeepEqual(got.Lines, added) {
			t.Errorf("n=%d: Lines = %q, want %q", n, got.Lines, added)
		}
	}
}

// A capture that shrinks and then regrows to a longer sequence still resets:
// no subsequence search is attempted.
func TestCompute_ShrinkThenRegrowResets(t *testing.T) {
	prev := []string{"a", "b", "c"}
	shrunk := []string{"b", "c"}
	if got := Compute(prev, shrunk); got.Kind != Reset {
		t.Fatalf("shrink: Kind = %v, want Reset", got.Kind)
	}
	regrown := []string{"a", "b", "c", "d"}
	if got := Compute(shrunk, regrown); got.Kind != Reset {
		t.Fatalf("regrow: Kind = %v, want Reset", got.Kind)
	}
}

func TestKindString(t *testing.T) {
	if Reset.String() != "reset" || Append.String() != "delta" || NoChange.String() != "noop" {
		t.Errorf("unexpected wire names: %s %s %s", Reset, Append, NoChange)
	}
}

func TestCutAfter(t *testing.T) {
	tests := []struct {
		name  string
		floor []string
		lines []string
		want  []string
	}{
		{
			name:  "floor is prefix",
			floor: []string{"line1", "line2", "line3", "line4", "line5"},
			lines: []string{"line1", "line2", "line3", "line4", "line5", "line6", "line7", "line8", "line9", "line10"},
			want:  []string{"line6", "line7", "line8", "line9", "line10"},
		},
		{
			name:  "nothing new",
			floor: []string{"a", "b"},
			lines: []string{"a", "b"},
			want:  []string{},
		},
		{
			name:  "floor scrolled partially",
			floor: []string{"a", "b", "c"},
			lines: []string{"b", "c", "d", "e"},
			want:  []string{"d", "e"},
		},
		{
			name:  "no overlap",
			floor: []string{"a", "b"},
			lines: []string{"x", "y"},
			want:  []string{"x", "y"},
		},
		{
			name:  "pane shrank after floor",
			floor: []string{"old1", "old2", "old3"},
			lines: []string{"old1", "old2"},
			want:  []string{},
		},
		{
			name:  "pane shrank and scrolled",
			floor: []string{"a", "b", "c", "d"},
			lines: []string{"b", "c"},
			want:  []string{},
		},
		{
			name:  "single repeated line is not an overlap",
			floor: []string{"make test", "ok", "$"},
			lines: []string{"$", "new output"},
			want:  []string{"$", "new output"},
		},
		{
			name:  "single line floor",
			floor: []string{"$"},
			lines: []string{"$", "new output"},
			want:  []string{"new output"},
		},
		{
			name:  "empty floor",
			floor: nil,
			lines: []string{"x"},
			want:  []string{"x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CutAfter(tt.floor, tt.lines)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CutAfter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"a", []string{"a"}},
		{"a\nb", []string{"a", "b"}},
		{"a\nb\n", []string{"a", "b"}},
		{"a\r\nb", []string{"a", "b"}},
		{"a\n\nb", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		got := SplitLines(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitLines(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
