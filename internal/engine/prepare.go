// Package engine contains the placement evaluator, the genetic solver, and
// the nesting orchestrator built on top of them.
package engine

import (
	"fmt"

	"github.com/piwi3910/polynest/internal/geometry"
	"github.com/piwi3910/polynest/internal/model"
)

// variant is one allowed rotation of a part, with both the true outline
// (committed to placements, measured for utilization) and the
// spacing-inflated outline used for all fit tests.
type variant struct {
	step     int
	angle    float64
	outline  geometry.Polygon
	inflated geometry.Polygon
}

// instance is a single copy of a part, expanded from Part.Quantity.
// All copies of a part share the part ID, so fit computations collapse to
// one cache entry per (shape, rotation) pair regardless of quantity.
type instance struct {
	part     model.Part
	copyNum  int
	variants []variant
}

// prepareInstances validates the parts, pre-rotates every allowed variant,
// and expands quantities into individual instances. Spacing is applied here
// by inflating each part by half the configured distance: two inflated
// parts that merely touch keep their true outlines a full spacing apart.
func prepareInstances(parts []model.Part, cfg model.Config) ([]instance, error) {
	var out []instance
	for _, part := range parts {
		if err := part.Outline.Validate(); err != nil {
			return nil, fmt.Errorf("part %q: %w", part.Label, err)
		}

		base := part.Outline.CCW()
		inflated := base
		if cfg.Spacing > 0 {
			var err error
			inflated, err = geometry.Offset(base, cfg.Spacing/2)
			if err != nil {
				return nil, fmt.Errorf("part %q: %w", part.Label, err)
			}
		}

		angles := part.Rotations
		if len(angles) == 0 {
			angles = make([]float64, cfg.RotationCount)
			for i := range angles {
				angles[i] = 360 / float64(cfg.RotationCount) * float64(i)
			}
		}

		variants := make([]variant, len(angles))
		for i, angle := range angles {
			variants[i] = variant{
				step:     i,
				angle:    angle,
				outline:  base.Rotate(angle),
				inflated: inflated.Rotate(angle),
			}
		}

		for copyNum := 0; copyNum < part.Quantity; copyNum++ {
			out = append(out, instance{
				part:     part,
				copyNum:  copyNum,
				variants: variants,
			})
		}
	}
	return out, nil
}
