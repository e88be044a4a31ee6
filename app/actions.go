package app

import "fmt"

// Action is one logical viewer input event. Keyboard handling, foot pedals
// and the HTTP action endpoint all normalize to these before they reach the
// driver, so input hardware never leaks into the pipeline.
type Action int

const (
	ActionNone Action = iota
	ActionZoomIn
	ActionZoomOut
	ActionConvergeIn
	ActionConvergeOut
	ActionResetView
	ActionCalibrate
	ActionCancelCalibration
	ActionToggleAlignment
	ActionAlignNow
	ActionMarkerUndo
	ActionMarkerClear
	ActionMarkerDepthIn
	ActionMarkerDepthOut
	ActionQuit
)

var actionNames = map[string]Action{
	"zoom_in":            ActionZoomIn,
	"zoom_out":           ActionZoomOut,
	"converge_in":        ActionConvergeIn,
	"converge_out":       ActionConvergeOut,
	"reset_view":         ActionResetView,
	"calibrate":          ActionCalibrate,
	"cancel_calibration": ActionCancelCalibration,
	"toggle_alignment":   ActionToggleAlignment,
	"align_now":          ActionAlignNow,
	"marker_undo":        ActionMarkerUndo,
	"marker_clear":       ActionMarkerClear,
	"marker_depth_in":    ActionMarkerDepthIn,
	"marker_depth_out":   ActionMarkerDepthOut,
	"quit":               ActionQuit,
}

func (a Action) String() string {
	for name, v := range actionNames {
		if v == a {
			return name
		}
	}
	return "none"
}

// ParseAction maps an action name from the HTTP API to its Action value.
func ParseAction(name string) (Action, error) {
	if a, ok := actionNames[name]; ok {
		return a, nil
	}
	return ActionNone, fmt.Errorf("unknown action %q", name)
}
