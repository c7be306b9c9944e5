package beefy

import (
	"github.com/tendermint/ibclight/libs/log"
)

// Option configures verification.
type Option func(*options)

type options struct {
	logger log.Logger
}

// WithLogger logs excluded signatures to l.
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
