package coordinate

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Axis identifies one of the three motion axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the lowercase axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// ParseAxis parses an axis name ("x", "Y", ...).
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	default:
		return 0, fmt.Errorf("unknown axis: %q", s)
	}
}

// Direction is the sign of an axis assignment.
type Direction int

const (
	Positive Direction = 1
	Negative Direction = -1
)

// SignedAxis is one stage axis together with a direction.
type SignedAxis struct {
	Axis      Axis
	Direction Direction
}

func (s SignedAxis) String() string {
	if s.Direction == Negative {
		return "-" + s.Axis.String()
	}
	return "+" + s.Axis.String()
}

// ParseSignedAxis parses strings like "+x", "-Y" or "z" (implicit positive).
func ParseSignedAxis(s string) (SignedAxis, error) {
	s = strings.TrimSpace(s)
	dir := Positive
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		dir = Negative
		s = s[1:]
	}
	axis, err := ParseAxis(s)
	if err != nil {
		return SignedAxis{}, err
	}
	return SignedAxis{Axis: axis, Direction: dir}, nil
}

// AxesMapping assigns one signed stage axis to each chip axis. A valid
// mapping is a signed bijection: every stage axis appears exactly once.
// Indexed by chip axis.
type AxesMapping [3]SignedAxis

// DefaultAxesMapping maps every chip axis to the same stage axis with
// positive direction.
func DefaultAxesMapping() AxesMapping {
	return AxesMapping{
		{Axis: AxisX, Direction: Positive},
		{Axis: AxisY, Direction: Positive},
		{Axis: AxisZ, Direction: Positive},
	}
}

// Valid reports whether the mapping is a signed bijection over the axes.
func (m AxesMapping) Valid() bool {
	var seen [3]bool
	for _, sa := range m {
		if sa.Axis < AxisX || sa.Axis > AxisZ {
			return false
		}
		if sa.Direction != Positive && sa.Direction != Negative {
			return false
		}
		if seen[sa.Axis] {
			return false
		}
		seen[sa.Axis] = true
	}
	return true
}

// Matrix returns the signed-permutation rotation matrix R with
// chip = R * stage. Row index is the chip axis, column index the stage axis.
func (m AxesMapping) Matrix() *mat.Dense {
	r := mat.NewDense(3, 3, nil)
	for chipAxis, sa := range m {
		r.Set(chipAxis, int(sa.Axis), float64(sa.Direction))
	}
	return r
}

func (m AxesMapping) String() string {
	parts := make([]string, 3)
	for chipAxis, sa := range m {
		parts[chipAxis] = fmt.Sprintf("chip_%s: %s", Axis(chipAxis), sa)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
