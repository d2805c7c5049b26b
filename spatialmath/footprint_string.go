package spatialmath

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// MakeFootprintFromString parses a footprint spec of the form
// "[[x,y],[x,y],...]" (whitespace tolerated) per spec.md §4.4. At
// least 3 points are required, matching the convex-polygon assumption
// the footprint utilities and fillPolygon rely on.
//
// The format is plain JSON once whitespace is stripped, so this is
// decoded with encoding/json rather than a hand-rolled tokenizer:
// mapstructure (used elsewhere for config decoding) has nothing to
// offer here since the input is a bare string, not an attribute map.
func MakeFootprintFromString(s string) ([]Point2D, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, errors.New("footprint string is empty")
	}

	var raw [][2]float64
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, errors.Wrapf(err, "footprint string %q is not a valid [[x,y],...] list", s)
	}
	if len(raw) < 3 {
		return nil, errors.Errorf("footprint must have at least 3 points, got %d", len(raw))
	}

	pts := make([]Point2D, len(raw))
	for i, p := range raw {
		pts[i] = Point2D{X: p[0], Y: p[1]}
	}
	return pts, nil
}
