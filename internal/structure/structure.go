// Package structure builds the bulk crystal structures fed into the first stage of every pipeline.
package structure

import (
	"fmt"
	"math"
	"strings"

	"github.com/G-Research/phononflow/internal/common/flowerrors"
)

type Lattice string

const (
	FCC Lattice = "fcc"
	BCC Lattice = "bcc"
)

// Structure is an immutable description of a crystal. Cell rows are lattice vectors in Angstrom,
// positions are fractional coordinates.
type Structure struct {
	Name      string
	Element   string
	Lattice   Lattice
	A         float64
	Mass      float64
	Cubic     bool
	Cell      [3][3]float64
	Positions [][3]float64
}

type referenceState struct {
	lattice Lattice
	a       float64
	mass    float64
}

// Experimental lattice constants in Angstrom and standard atomic weights.
var referenceStates = map[string]referenceState{
	"Al": {FCC, 4.05, 26.982},
	"Cu": {FCC, 3.61, 63.546},
	"Ag": {FCC, 4.09, 107.868},
	"Au": {FCC, 4.08, 196.967},
	"Ni": {FCC, 3.52, 58.693},
	"Pd": {FCC, 3.89, 106.42},
	"Pt": {FCC, 3.92, 195.084},
	"Ca": {FCC, 5.58, 40.078},
	"Li": {BCC, 3.51, 6.94},
	"Na": {BCC, 4.23, 22.990},
	"K":  {BCC, 5.23, 39.098},
	"Fe": {BCC, 2.87, 55.845},
	"Mo": {BCC, 3.15, 95.95},
	"W":  {BCC, 3.16, 183.84},
}

// Bulk returns the reference bulk crystal of symbol. With cubic set the conventional cubic
// cell is returned, otherwise the primitive cell.
func Bulk(symbol string, cubic bool) (Structure, error) {
	ref, ok := referenceStates[symbol]
	if !ok {
		return Structure{}, &flowerrors.ErrNotFound{
			Type:    "element",
			Value:   symbol,
			Message: "no reference bulk structure",
		}
	}

	s := Structure{
		Element: symbol,
		Lattice: ref.lattice,
		A:       ref.a,
		Mass:    ref.mass,
		Cubic:   cubic,
	}
	a := ref.a
	switch {
	case cubic:
		s.Cell = [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
		if ref.lattice == FCC {
			s.Positions = [][3]float64{{0, 0, 0}, {0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}}
		} else {
			s.Positions = [][3]float64{{0, 0, 0}, {0.5, 0.5, 0.5}}
		}
	case ref.lattice == FCC:
		h := a / 2
		s.Cell = [3][3]float64{{0, h, h}, {h, 0, h}, {h, h, 0}}
		s.Positions = [][3]float64{{0, 0, 0}}
	default:
		h := a / 2
		s.Cell = [3][3]float64{{-h, h, h}, {h, -h, h}, {h, h, -h}}
		s.Positions = [][3]float64{{0, 0, 0}}
	}
	s.Name = fmt.Sprintf("%s%d", symbol, len(s.Positions))
	return s, nil
}

// Formula returns the chemical formula of the cell, e.g. Al4.
func (s Structure) Formula() string {
	return fmt.Sprintf("%s%d", s.Element, len(s.Positions))
}

func (s Structure) Volume() float64 {
	return math.Abs(dot(s.Cell[0], cross(s.Cell[1], s.Cell[2])))
}

func (s Structure) Validate() error {
	if strings.TrimSpace(s.Element) == "" {
		return &flowerrors.ErrInvalidArgument{Name: "element", Value: s.Element, Message: "element is required"}
	}
	if len(s.Positions) == 0 {
		return &flowerrors.ErrInvalidArgument{Name: "positions", Value: 0, Message: "structure has no atoms"}
	}
	if v := s.Volume(); v < 1e-8 || math.IsNaN(v) {
		return &flowerrors.ErrInvalidArgument{Name: "cell", Value: s.Cell, Message: "cell is singular"}
	}
	return nil
}

// KPointGrid returns the Monkhorst-Pack grid with spacing no coarser than kspacing (1/Angstrom,
// 2*pi included) along each reciprocal axis.
func (s Structure) KPointGrid(kspacing float64) ([3]int, error) {
	if kspacing <= 0 {
		return [3]int{}, &flowerrors.ErrInvalidArgument{Name: "kspacing", Value: kspacing, Message: "must be positive"}
	}
	if err := s.Validate(); err != nil {
		return [3]int{}, err
	}
	var grid [3]int
	for i, b := range s.reciprocalCell() {
		n := int(math.Ceil(2 * math.Pi * norm(b) / kspacing))
		if n < 1 {
			n = 1
		}
		grid[i] = n
	}
	return grid, nil
}

// reciprocalCell returns the reciprocal lattice vectors without the 2*pi factor.
func (s Structure) reciprocalCell() [3][3]float64 {
	a1, a2, a3 := s.Cell[0], s.Cell[1], s.Cell[2]
	v := dot(a1, cross(a2, a3))
	return [3][3]float64{
		scale(cross(a2, a3), 1/v),
		scale(cross(a3, a1), 1/v),
		scale(cross(a1, a2), 1/v),
	}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func scale(a [3]float64, f float64) [3]float64 {
	return [3]float64{a[0] * f, a[1] * f, a[2] * f}
}

func norm(a [3]float64) float64 {
	return math.Sqrt(dot(a, a))
}
