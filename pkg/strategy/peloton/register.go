package peloton

import "github.com/pelosub/pelosub/pkg/strategy"

// Name is the registered name of the Peloton strategy set.
const Name = "peloton"

// Register adds the Peloton strategies to the registry under Name.
func Register(r *strategy.Registry) {
	r.Register(strategy.KindParser, Name, func() any { return NewParser() })
	r.Register(strategy.KindPath, Name, func() any { return NewPathStrategy() })
	r.Register(strategy.KindNormalizer, Name, func() any { return NewNormalizer() })
}
