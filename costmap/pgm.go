package costmap

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// SaveMap writes the grid to path in PGM P2 (plain/ASCII greyscale)
// format, per spec.md §4.1: header "P2\n<W>\n<H>\n255\n" followed by
// row-major decimal cost values.
func (g *Grid) SaveMap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating map file %q", path)
	}
	defer f.Close()

	g.mu.RLock()
	defer g.mu.RUnlock()

	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "P2\n%d\n%d\n255\n", g.sizeX, g.sizeY); err != nil {
		return errors.Wrap(err, "writing PGM header")
	}
	for y := 0; y < g.sizeY; y++ {
		row := g.index(0, y)
		for x := 0; x < g.sizeX; x++ {
			if x > 0 {
				if _, err := w.WriteString(" "); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%d", g.cells[row+x]); err != nil {
				return errors.Wrap(err, "writing PGM row")
			}
		}
		if _, err := w.WriteString("\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

// LoadPGM parses a PGM P2 file previously written by SaveMap, returning
// its size and row-major cost values, for the save/load round-trip
// tested by spec.md §8 scenario 7.
func LoadPGM(path string) (sizeX, sizeY int, cells []Cost, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, errors.Wrapf(err, "opening map file %q", path)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic string
	var maxVal int
	if _, err := fmt.Fscan(r, &magic); err != nil {
		return 0, 0, nil, errors.Wrap(err, "reading PGM magic")
	}
	if magic != "P2" {
		return 0, 0, nil, errors.Errorf("unsupported PGM magic %q, want P2", magic)
	}
	if _, err := fmt.Fscan(r, &sizeX, &sizeY, &maxVal); err != nil {
		return 0, 0, nil, errors.Wrap(err, "reading PGM header")
	}

	cells = make([]Cost, sizeX*sizeY)
	for i := range cells {
		var v int
		if _, err := fmt.Fscan(r, &v); err != nil {
			if err == io.EOF {
				return 0, 0, nil, errors.Errorf("PGM truncated: expected %d values, got %d", len(cells), i)
			}
			return 0, 0, nil, errors.Wrap(err, "reading PGM cost value")
		}
		cells[i] = Cost(v)
	}
	return sizeX, sizeY, cells, nil
}
