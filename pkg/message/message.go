// Package message provides the logical SMS message dispatched to gateways
package message

import (
	"fmt"
)

// Type represents the kind of message a gateway delivers
type Type string

const (
	TypeText  Type = "text"
	TypeVoice Type = "voice"
)

// Message is one logical notification. Content, template and data may each be
// static or computed per gateway; gateways must treat a Message as read-only.
type Message struct {
	typ      Type
	content  Value[string]
	template Value[string]
	data     Value[Data]
	gateways []string
}

// New creates an empty text message
func New() *Message {
	return &Message{typ: TypeText}
}

// FromText wraps a bare string, using it as both content and template.
func FromText(text string) *Message {
	return &Message{
		typ:      TypeText,
		content:  Static(text),
		template: Static(text),
	}
}

// FromMap builds a message from named attributes: "type", "content",
// "template", "data" and "gateways". Values may be static or functions of
// the gateway. Unknown attribute names and values of the wrong type are ignored.
func FromMap(attrs map[string]any) *Message {
	b := NewBuilder()
	for name, raw := range attrs {
		switch name {
		case "type":
			switch v := raw.(type) {
			case Type:
				b.SetType(v)
			case string:
				b.SetType(Type(v))
			}
		case "content":
			if v, ok := stringValue(raw); ok {
				b.message.content = v
			}
		case "template":
			if v, ok := stringValue(raw); ok {
				b.message.template = v
			}
		case "data":
			switch v := raw.(type) {
			case Data:
				b.SetData(v)
			case map[string]any:
				b.SetData(DataFromMap(v))
			case func(Gateway) Data:
				b.SetDataFunc(v)
			case func(Gateway) map[string]any:
				b.SetDataFunc(func(g Gateway) Data { return DataFromMap(v(g)) })
			}
		case "gateways":
			switch v := raw.(type) {
			case []string:
				b.SetGateways(v...)
			case []any:
				names := make([]string, 0, len(v))
				for _, item := range v {
					names = append(names, fmt.Sprint(item))
				}
				b.SetGateways(names...)
			}
		}
	}
	return b.Build()
}

func stringValue(raw any) (Value[string], bool) {
	switch v := raw.(type) {
	case string:
		return Static(v), true
	case Value[string]:
		return v, true
	case func(Gateway) string:
		return Computed(v), true
	default:
		return Value[string]{}, false
	}
}

// Type returns the message type; TEXT unless set otherwise
func (m *Message) Type() Type {
	if m.typ == "" {
		return TypeText
	}
	return m.typ
}

// Content resolves the content against gateway g
func (m *Message) Content(g Gateway) string {
	return m.content.Resolve(g)
}

// Template resolves the template id against gateway g
func (m *Message) Template(g Gateway) string {
	return m.template.Resolve(g)
}

// Data resolves the template data against gateway g; never nil
func (m *Message) Data(g Gateway) Data {
	d := m.data.Resolve(g)
	if d.values == nil {
		d.values = map[string]any{}
	}
	return d
}

// Gateways returns the allow-list of gateway names; empty means unrestricted
func (m *Message) Gateways() []string {
	return append([]string(nil), m.gateways...)
}

// String renders the static parts of the message for logs
func (m *Message) String() string {
	return fmt.Sprintf("Message{type=%s gateways=%v computed=%t}", m.Type(), m.gateways,
		m.content.IsComputed() || m.template.IsComputed() || m.data.IsComputed())
}
