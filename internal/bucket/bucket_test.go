package bucket

import (
	"encoding/json"
	"testing"
)

func TestOrdering(t *testing.T) {
	ordered := []Level{HighTouch, MediumTouch, LowTouch, NoTouch}
	for i := 0; i < len(ordered); i++ {
		for j := 0; j < len(ordered); j++ {
			got := ordered[j].Better(ordered[i])
			want := j > i
			if got != want {
				t.Errorf("%s.Better(%s) = %v, want %v", ordered[j], ordered[i], got, want)
			}
		}
	}
}

func TestNextBetter(t *testing.T) {
	tests := []struct {
		name string
		from Level
		want Level
		ok   bool
	}{
		{"high to medium", HighTouch, MediumTouch, true},
		{"medium to low", MediumTouch, LowTouch, true},
		{"low to none", LowTouch, NoTouch, true},
		{"no_touch is the ceiling", NoTouch, NoTouch, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.from.NextBetter()
			if ok != tt.ok || got != tt.want {
				t.Errorf("%s.NextBetter() = (%s, %v), want (%s, %v)", tt.from, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPreviousWorse(t *testing.T) {
	tests := []struct {
		name string
		from Level
		want Level
		ok   bool
	}{
		{"high_touch is the floor", HighTouch, HighTouch, false},
		{"medium to high", MediumTouch, HighTouch, true},
		{"low to medium", LowTouch, MediumTouch, true},
		{"none to low", NoTouch, LowTouch, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.from.PreviousWorse()
			if ok != tt.ok || got != tt.want {
				t.Errorf("%s.PreviousWorse() = (%s, %v), want (%s, %v)", tt.from, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestAdjacencyRoundTrip(t *testing.T) {
	// Whenever NextBetter is defined, PreviousWorse must invert it.
	for _, l := range levels {
		next, ok := l.NextBetter()
		if !ok {
			continue
		}
		back, ok := next.PreviousWorse()
		if !ok || back != l {
			t.Errorf("%s.NextBetter().PreviousWorse() = (%s, %v), want (%s, true)", l, back, ok, l)
		}
	}
}

func TestAdjacentTo(t *testing.T) {
	tests := []struct {
		from, to Level
		want     bool
	}{
		{HighTouch, MediumTouch, true},
		{MediumTouch, HighTouch, true},
		{MediumTouch, LowTouch, true},
		{HighTouch, LowTouch, false},
		{HighTouch, NoTouch, false},
		{LowTouch, LowTouch, false},
	}

	for _, tt := range tests {
		if got := tt.from.AdjacentTo(tt.to); got != tt.want {
			t.Errorf("%s.AdjacentTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, l := range levels {
		got, err := Parse(l.String())
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", l.String(), err)
		}
		if got != l {
			t.Errorf("Parse(%q) = %s, want %s", l.String(), got, l)
		}
	}

	if _, err := Parse("platinum"); err == nil {
		t.Error("expected error for unknown label")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Bucket Level `json:"bucket"`
	}

	data, err := json.Marshal(wrapper{Bucket: LowTouch})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"bucket":"low_touch"}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var w wrapper
	if err := json.Unmarshal(data, &w); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if w.Bucket != LowTouch {
		t.Errorf("round-trip = %s, want %s", w.Bucket, LowTouch)
	}
}
