// Package message provides message building functionality for easysms
package message

// Builder provides a fluent interface for building messages
type Builder struct {
	message *Message
}

// NewBuilder creates a new message builder
func NewBuilder() *Builder {
	return &Builder{message: New()}
}

// SetType sets the message type
func (b *Builder) SetType(t Type) *Builder {
	b.message.typ = t
	return b
}

// SetContent sets static content
func (b *Builder) SetContent(content string) *Builder {
	b.message.content = Static(content)
	return b
}

// SetContentFunc sets content computed per gateway
func (b *Builder) SetContentFunc(fn func(Gateway) string) *Builder {
	b.message.content = Computed(fn)
	return b
}

// SetTemplate sets a static template id
func (b *Builder) SetTemplate(template string) *Builder {
	b.message.template = Static(template)
	return b
}

// SetTemplateFunc sets a template id computed per gateway
func (b *Builder) SetTemplateFunc(fn func(Gateway) string) *Builder {
	b.message.template = Computed(fn)
	return b
}

// SetData sets static template data
func (b *Builder) SetData(data Data) *Builder {
	b.message.data = Static(data)
	return b
}

// AddData appends one template parameter. Computed data stays computed; the
// parameter is added to each resolved value.
func (b *Builder) AddData(key string, value any) *Builder {
	if prev := b.message.data; prev.IsComputed() {
		b.message.data = Computed(func(g Gateway) Data {
			return prev.Resolve(g).With(key, value)
		})
		return b
	}
	current := b.message.data.Resolve(nil)
	b.message.data = Static(current.With(key, value))
	return b
}

// SetDataFunc sets template data computed per gateway
func (b *Builder) SetDataFunc(fn func(Gateway) Data) *Builder {
	b.message.data = Computed(fn)
	return b
}

// SetGateways restricts the gateways this message may be routed through
func (b *Builder) SetGateways(names ...string) *Builder {
	b.message.gateways = append([]string(nil), names...)
	return b
}

// Build returns the message. The builder must not be reused afterwards.
func (b *Builder) Build() *Message {
	return b.message
}
