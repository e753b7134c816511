package hawc

import "fmt"

// Parameter is a nuisance parameter owned by the plugin. The modeling
// framework has its own richer parameter objects; this type only carries
// the bookkeeping the plugin itself needs (bounds, free/fixed state and
// change callbacks).
type Parameter struct {
	name      string
	value     float64
	min       float64
	max       float64
	delta     float64
	free      bool
	callbacks []func(*Parameter)
}

func NewParameter(name string, value, min, max, delta float64) *Parameter {
	return &Parameter{
		name:  name,
		value: value,
		min:   min,
		max:   max,
		delta: delta,
	}
}

func (p *Parameter) Name() string {
	return p.name
}

func (p *Parameter) Value() float64 {
	return p.value
}

// SetValue updates the value and notifies every registered callback.
func (p *Parameter) SetValue(value float64) error {
	if value < p.min || value > p.max {
		return fmt.Errorf("value %g for parameter %s outside bounds [%g, %g]", value, p.name, p.min, p.max)
	}

	p.value = value

	for _, callback := range p.callbacks {
		callback(p)
	}

	return nil
}

func (p *Parameter) Bounds() (min, max float64) {
	return p.min, p.max
}

func (p *Parameter) Delta() float64 {
	return p.delta
}

func (p *Parameter) Free() bool {
	return p.free
}

func (p *Parameter) SetFree(free bool) {
	p.free = free
}

// OnChange registers a callback invoked whenever the value changes, so that
// changes made by the user or a fit engine propagate immediately.
func (p *Parameter) OnChange(callback func(*Parameter)) {
	p.callbacks = append(p.callbacks, callback)
}
