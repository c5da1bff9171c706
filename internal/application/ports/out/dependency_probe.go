package out

import "context"

// DependencyProbe reports whether a backing service answers.
type DependencyProbe interface {
	Name() string
	Ping(ctx context.Context) error
}
