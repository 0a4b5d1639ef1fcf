package protocore

import (
	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocore/message"
	"github.com/anirudhraja/protocore/registry"
)

// options collects what the Option values configure.
type options struct {
	unmarshal message.UnmarshalOptions
	marshal   message.MarshalOptions
	registry  []registry.Option
	logger    zerolog.Logger
}

// Option is a configuration setting for [New].
type Option struct{ apply func(*options) }

// WithRecursionLimit sets the maximum nesting of messages and groups the
// parser accepts. Zero keeps the default of 100.
//
// Setting a large value enables potential DoS vectors.
func WithRecursionLimit(limit int) Option {
	return Option{func(o *options) { o.unmarshal.RecursionLimit = max(limit, 0) }}
}

// WithDiscardUnknown drops fields the schema does not know instead of
// keeping their bytes for re-serialization.
func WithDiscardUnknown(discard bool) Option {
	return Option{func(o *options) { o.unmarshal.DiscardUnknown = discard }}
}

// WithAllowInvalidUTF8 accepts proto3 string fields that are not valid
// UTF-8.
func WithAllowInvalidUTF8(allow bool) Option {
	return Option{func(o *options) { o.unmarshal.AllowInvalidUTF8 = allow }}
}

// WithAllowPartial skips the required field check when parsing and
// serializing.
func WithAllowPartial(allow bool) Option {
	return Option{func(o *options) {
		o.unmarshal.AllowPartial = allow
		o.marshal.AllowPartial = allow
	}}
}

// WithPreserveRepeatedEncoding writes repeated scalars packed or unpacked
// the way they were parsed. By default they follow the schema.
func WithPreserveRepeatedEncoding(preserve bool) Option {
	return Option{func(o *options) { o.marshal.PreserveRepeatedEncoding = preserve }}
}

// WithDeterministic writes map entries sorted by key instead of in
// insertion order.
func WithDeterministic(deterministic bool) Option {
	return Option{func(o *options) { o.marshal.Deterministic = deterministic }}
}

// WithProtoDirectories sets the directories searched for .proto files and
// their imports.
func WithProtoDirectories(dirs ...string) Option {
	return Option{func(o *options) { o.registry = append(o.registry, registry.WithProtoDirectories(dirs...)) }}
}

// WithLogger sets the logger for schema loads and parse failures. Both are
// logged at debug level. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return Option{func(o *options) { o.logger = logger }}
}
