package trigger

import "github.com/kode4food/taskmaster/pkg/api"

// Manual is a trigger with no background mechanism. It fires only when
// Fire is called directly
type Manual struct {
	*Base
}

// NewManual creates a manual trigger
func NewManual(name string, cfg api.Config) *Manual {
	m := &Manual{
		Base: NewBase(KindManual, name, cfg),
	}
	m.bind(m)
	return m
}

func (m *Manual) Activate() error {
	m.markActive()
	return nil
}

func (m *Manual) Deactivate() {
	m.markInactive()
}
