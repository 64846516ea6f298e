package dice

import (
	"math/rand"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Expr
	}{
		{"1d6", Expr{Count: 1, Sides: 6}},
		{"2d4+1", Expr{Count: 2, Sides: 4, Bonus: 1}},
		{"1d8-2", Expr{Count: 1, Sides: 8, Bonus: -2}},
		{"3D6", Expr{Count: 3, Sides: 6}},
		{"4", Expr{Bonus: 4}},
		{"2d10 piercing", Expr{Count: 2, Sides: 10, Type: "piercing"}},
		{"  1d12+3  cold iron ", Expr{Count: 1, Sides: 12, Bonus: 3, Type: "cold iron"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	inputs := []string{"", "d6", "1d", "abc", "1d6+", "0d6", "1d1", "101d6", "1d6+2+3"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) should fail", input)
			}
		})
	}
}

func TestRollRange(t *testing.T) {
	expr, err := Parse("2d6+3")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		result := expr.Roll(rng)
		if result < expr.Min() || result > expr.Max() {
			t.Fatalf("Roll() = %d, expected %d-%d", result, expr.Min(), expr.Max())
		}
	}
}

func TestRollNeverNegative(t *testing.T) {
	expr := Expr{Count: 1, Sides: 4, Bonus: -10}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		if result := expr.Roll(rng); result != 0 {
			t.Fatalf("Roll() = %d, expected clamp to 0", result)
		}
	}
}

func TestRollDeterministic(t *testing.T) {
	expr := Expr{Count: 3, Sides: 8}
	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		if x, y := expr.Roll(a), expr.Roll(b); x != y {
			t.Fatalf("roll %d: got %d and %d from same seed", i, x, y)
		}
	}
}

// countingRoller records how many dice were thrown.
type countingRoller struct{ calls int }

func (c *countingRoller) Intn(n int) int {
	c.calls++
	return n - 1
}

func TestRollUsesRoller(t *testing.T) {
	expr := Expr{Count: 3, Sides: 6, Bonus: 1}
	r := &countingRoller{}
	if got := expr.Roll(r); got != expr.Max() {
		t.Errorf("Roll() with top faces = %d, want %d", got, expr.Max())
	}
	if r.calls != 3 {
		t.Errorf("Roll() drew %d times, want 3", r.calls)
	}
	if got := (Expr{Bonus: 4}).Roll(r); got != 4 || r.calls != 3 {
		t.Errorf("flat Roll() = %d after %d draws, want 4 with no draw", got, r.calls)
	}
}

func TestAverageAndString(t *testing.T) {
	tests := []struct {
		expr    Expr
		average int
		str     string
	}{
		{Expr{Count: 1, Sides: 6}, 3, "1d6"},
		{Expr{Count: 2, Sides: 6, Bonus: 3}, 10, "2d6+3"},
		{Expr{Count: 1, Sides: 8, Bonus: -2}, 2, "1d8-2"},
		{Expr{Bonus: 5, Type: "fire"}, 5, "5 fire"},
	}

	for _, tt := range tests {
		if got := tt.expr.Average(); got != tt.average {
			t.Errorf("%v.Average() = %d, want %d", tt.expr, got, tt.average)
		}
		if got := tt.expr.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
	}
}
