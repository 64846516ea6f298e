// Package dice parses and rolls damage expressions such as "1d6", "2d4+1" or "3d6 fire".
package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxDice bounds the dice count and side count accepted in content files.
const MaxDice = 100

// diceNotationRegex matches dice notation like "1d6", "2d4+1", "1d8-2"
var diceNotationRegex = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// flatRegex matches a fixed amount like "5"
var flatRegex = regexp.MustCompile(`^\d+$`)

// Expr is a parsed damage expression. A flat amount has Count 0.
type Expr struct {
	Count int
	Sides int
	Bonus int
	// Type is the optional damage type after the expression ("fire", "piercing").
	Type string
}

// Parse parses dice notation with an optional trailing damage type.
// Supports formats: "1d6", "2d4", "1d8+2", "2d6-1", "4", "2d10 piercing"
func Parse(notation string) (Expr, error) {
	text := strings.TrimSpace(notation)
	if text == "" {
		return Expr{}, fmt.Errorf("empty dice expression")
	}

	parts := strings.Fields(text)
	expr := Expr{Type: strings.Join(parts[1:], " ")}
	head := strings.ToLower(parts[0])

	if flatRegex.MatchString(head) {
		bonus, err := strconv.Atoi(head)
		if err != nil {
			return Expr{}, fmt.Errorf("invalid flat amount %q: %w", head, err)
		}
		expr.Bonus = bonus
		return expr, nil
	}

	matches := diceNotationRegex.FindStringSubmatch(head)
	if matches == nil {
		return Expr{}, fmt.Errorf("invalid dice expression %q", notation)
	}

	expr.Count, _ = strconv.Atoi(matches[1])
	expr.Sides, _ = strconv.Atoi(matches[2])
	if matches[3] != "" {
		expr.Bonus, _ = strconv.Atoi(matches[3])
	}

	if expr.Count < 1 || expr.Count > MaxDice {
		return Expr{}, fmt.Errorf("dice count %d out of range 1-%d", expr.Count, MaxDice)
	}
	if expr.Sides < 2 || expr.Sides > MaxDice {
		return Expr{}, fmt.Errorf("dice sides %d out of range 2-%d", expr.Sides, MaxDice)
	}

	return expr, nil
}

// Roller is the random source used for rolls. *rand.Rand and the generator's
// counted RNG satisfy it.
type Roller interface {
	Intn(n int) int
}

// Roll rolls the expression with the given source. Results never go below 0.
func (e Expr) Roll(rng Roller) int {
	total := e.Bonus
	for i := 0; i < e.Count; i++ {
		total += rng.Intn(e.Sides) + 1
	}
	if total < 0 {
		return 0
	}
	return total
}

// Min returns the lowest possible result.
func (e Expr) Min() int {
	return max(0, e.Count+e.Bonus)
}

// Max returns the highest possible result.
func (e Expr) Max() int {
	return max(0, e.Count*e.Sides+e.Bonus)
}

// Average returns the expected result, rounded down as in a stat block.
func (e Expr) Average() int {
	return max(0, (e.Count*(e.Sides+1))/2+e.Bonus)
}

// String returns the canonical notation.
func (e Expr) String() string {
	var b strings.Builder
	if e.Count == 0 {
		b.WriteString(strconv.Itoa(e.Bonus))
	} else {
		fmt.Fprintf(&b, "%dd%d", e.Count, e.Sides)
		if e.Bonus > 0 {
			fmt.Fprintf(&b, "+%d", e.Bonus)
		} else if e.Bonus < 0 {
			fmt.Fprintf(&b, "%d", e.Bonus)
		}
	}
	if e.Type != "" {
		b.WriteString(" ")
		b.WriteString(e.Type)
	}
	return b.String()
}
