package report

import "context"

//go:generate mockgen -destination internal/mockreport/script.go -package mockreport github.com/einride/tableau-slack-report Script

// Script is the external report job that a Reporter can trigger.
type Script interface {
	Run(context.Context) error
}

// NewScript creates a new script from a function.
func NewScript(name string, fn func(context.Context) error) Script {
	return &fnScript{name: name, fn: fn}
}

type fnScript struct {
	name string
	fn   func(context.Context) error
}

// String returns the name of the script.
func (f fnScript) String() string {
	return f.name
}

// Run the script.
func (f fnScript) Run(ctx context.Context) error {
	return f.fn(ctx)
}
