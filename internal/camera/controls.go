package camera

import "fmt"

// ControlKind distinguishes continuous sliders from index pickers.
type ControlKind string

// Control kinds.
const (
	ControlSlider ControlKind = "slider"
	ControlPicker ControlKind = "picker"
)

// Control is a named interactive control registered with the capture
// session. Its callback fires on the controller's serial queue, never on the
// caller's goroutine, so callbacks for different controls cannot interleave
// and each fires atomically with respect to configuration changes.
//
// The registered set is replaced wholesale on every configuration pass:
// prior controls are removed before new ones are added.
type Control struct {
	Name string
	Kind ControlKind

	// Slider range.
	Min, Max, Step float64

	// Picker options.
	Options []string

	// OnChange fires for sliders with the new value.
	OnChange func(value float64)

	// OnSelect fires for pickers with the selected index.
	OnSelect func(index int)

	value float64
	index int
}

// Value returns the current slider value.
func (c *Control) Value() float64 { return c.value }

// Index returns the current picker index.
func (c *Control) Index() int { return c.index }

// Option returns the currently selected picker option, or "".
func (c *Control) Option() string {
	if c.Kind != ControlPicker || c.index < 0 || c.index >= len(c.Options) {
		return ""
	}
	return c.Options[c.index]
}

// setValue clamps and stores a slider value, then fires the callback.
// Called only on the controller's serial queue.
func (c *Control) setValue(v float64) {
	if v < c.Min {
		v = c.Min
	}
	if v > c.Max {
		v = c.Max
	}
	c.value = v
	if c.OnChange != nil {
		c.OnChange(v)
	}
}

// setIndex stores a picker selection, then fires the callback.
// Called only on the controller's serial queue.
func (c *Control) setIndex(i int) error {
	if i < 0 || i >= len(c.Options) {
		return fmt.Errorf("control %q: index %d out of range", c.Name, i)
	}
	c.index = i
	if c.OnSelect != nil {
		c.OnSelect(i)
	}
	return nil
}

// ControlState is a read-only snapshot of a registered control, safe to hand
// to the presentation layer.
type ControlState struct {
	Name    string      `json:"name" example:"zoom" doc:"Control name"`
	Kind    ControlKind `json:"kind" example:"slider" doc:"Control kind: slider or picker"`
	Min     float64     `json:"min,omitempty" example:"1.0" doc:"Slider minimum"`
	Max     float64     `json:"max,omitempty" example:"8.0" doc:"Slider maximum"`
	Step    float64     `json:"step,omitempty" example:"0.1" doc:"Slider step"`
	Options []string    `json:"options,omitempty" doc:"Picker options"`
	Value   float64     `json:"value" example:"1.0" doc:"Current slider value"`
	Index   int         `json:"index" example:"0" doc:"Current picker index"`
	Option  string      `json:"option,omitempty" example:"Standard" doc:"Current picker option"`
}

func (c *Control) state() ControlState {
	return ControlState{
		Name:    c.Name,
		Kind:    c.Kind,
		Min:     c.Min,
		Max:     c.Max,
		Step:    c.Step,
		Options: c.Options,
		Value:   c.value,
		Index:   c.index,
		Option:  c.Option(),
	}
}
