package textgen

import "fmt"

// Plan describes the pattern lengths of a run. Step is added to the current
// length, or multiplies it when Multiply is set.
type Plan struct {
	Min      int
	Max      int
	Step     int
	Multiply bool
}

func (p Plan) String() string {
	op := "+"
	if p.Multiply {
		op = "*"
	}
	return fmt.Sprintf("[%d..%d] %s%d", p.Min, p.Max, op, p.Step)
}

// Lengths returns the strictly increasing lengths of the plan that do not
// exceed min(textLen, p.Max). A step that does not grow the length advances
// it by one.
func (p Plan) Lengths(textLen int) []int {
	limit := min(textLen, p.Max)
	var res []int
	for m := max(p.Min, 1); m <= limit; {
		res = append(res, m)
		next := m + p.Step
		if p.Multiply {
			next = m * p.Step
		}
		if next <= m {
			next = m + 1
		}
		m = next
	}
	return res
}
