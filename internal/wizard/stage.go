// Package wizard tracks the three-step upload flow: choose a file, choose the
// organisation id column, choose the fields to add.
package wizard

import "slices"

// Stage is one step of the wizard.
type Stage string

const (
	StageSelectFile   Stage = "select-file"
	StageSelectColumn Stage = "select-orgid-field"
	StageSelectFields Stage = "select-fields"
)

// Stages lists the steps in order.
var Stages = []Stage{StageSelectFile, StageSelectColumn, StageSelectFields}

// Visibility is how a stage is shown relative to the current one.
type Visibility string

const (
	VisibilityOpen      Visibility = "open"      // current stage, full contents
	VisibilityCollapsed Visibility = "collapsed" // earlier stage, summary only
	VisibilityHidden    Visibility = "hidden"    // later stage
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return slices.Contains(Stages, s)
}

func (s Stage) index() int {
	return slices.Index(Stages, s)
}

// Set returns the visibility of every stage when current is active.
// An unknown stage leaves everything hidden.
func Set(current Stage) map[Stage]Visibility {
	cur := current.index()
	out := make(map[Stage]Visibility, len(Stages))
	for i, s := range Stages {
		switch {
		case cur < 0 || i > cur:
			out[s] = VisibilityHidden
		case i < cur:
			out[s] = VisibilityCollapsed
		default:
			out[s] = VisibilityOpen
		}
	}
	return out
}
