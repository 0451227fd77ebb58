package message

// Gateway is the part of a gateway a computed field may depend on.
type Gateway interface {
	Name() string
}

// Value is either a static value or a function of the resolving gateway.
// The zero Value resolves to the zero T.
type Value[T any] struct {
	static   T
	computed func(Gateway) T
}

// Static wraps a fixed value.
func Static[T any](v T) Value[T] {
	return Value[T]{static: v}
}

// Computed wraps a function evaluated once per resolving gateway.
func Computed[T any](fn func(Gateway) T) Value[T] {
	return Value[T]{computed: fn}
}

// Resolve returns the static value, or calls the function with g.
func (v Value[T]) Resolve(g Gateway) T {
	if v.computed != nil {
		return v.computed(g)
	}
	return v.static
}

// IsComputed reports whether the value depends on the gateway.
func (v Value[T]) IsComputed() bool {
	return v.computed != nil
}
