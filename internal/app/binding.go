package app

import "time"

// Binding identifies a bound application. All fields are immutable after
// creation except ResourceName, which may be set exactly once.
type Binding struct {
	ID           string
	ResourceID   string
	ScalerID     string
	ServiceID    string
	Context      map[string]string
	CreationTime time.Time
	ResourceName string
}

// WithResourceName returns a copy of the binding with ResourceName set,
// the one field spec.md §3 allows to change after creation. Callers must
// not call this more than once per binding lifetime; internal/api enforces
// that by only invoking it from the bind handler.
func (b Binding) WithResourceName(name string) Binding {
	b.ResourceName = name
	return b
}
