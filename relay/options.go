package relay

import (
	"github.com/tendermint/ibclight/libs/log"
)

// Option configures proof height resolution.
type Option func(*options)

type options struct {
	logger log.Logger
}

// WithLogger sets the logger for search and delay decisions.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
