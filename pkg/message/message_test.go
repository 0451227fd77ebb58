package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedGateway string

func (n namedGateway) Name() string { return string(n) }

func TestMessage_LazyContent(t *testing.T) {
	msg := NewBuilder().
		SetContentFunc(func(g Gateway) string { return g.Name() + "-x" }).
		Build()

	assert.Equal(t, "aliyun-x", msg.Content(namedGateway("aliyun")))
	assert.Equal(t, "tencent-x", msg.Content(namedGateway("tencent")))
}

func TestMessage_StaticContent(t *testing.T) {
	msg := NewBuilder().SetContent("hello").Build()

	for _, name := range []string{"aliyun", "tencent", ""} {
		assert.Equal(t, "hello", msg.Content(namedGateway(name)))
	}
	assert.Equal(t, "", msg.Template(namedGateway("aliyun")))
}

func TestMessage_DataNeverNil(t *testing.T) {
	msg := New()

	data := msg.Data(namedGateway("aliyun"))
	assert.Equal(t, 0, data.Len())
	assert.NotNil(t, data.Map())

	encoded, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(encoded))
}

func TestMessage_DataFunc(t *testing.T) {
	msg := NewBuilder().
		SetTemplateFunc(func(g Gateway) string {
			if g.Name() == "aliyun" {
				return "SMS_001"
			}
			return "1001"
		}).
		SetDataFunc(func(g Gateway) Data {
			return NewData("code", "6379", "gateway", g.Name())
		}).
		Build()

	assert.Equal(t, "SMS_001", msg.Template(namedGateway("aliyun")))
	assert.Equal(t, "1001", msg.Template(namedGateway("tencent")))
	assert.Equal(t, []any{"6379", "tencent"}, msg.Data(namedGateway("tencent")).Values())
}

func TestBuilder_AddDataAfterDataFunc(t *testing.T) {
	msg := NewBuilder().
		SetDataFunc(func(g Gateway) Data {
			return NewData("gateway", g.Name())
		}).
		AddData("code", "1234").
		Build()

	assert.Equal(t, []any{"aliyun", "1234"}, msg.Data(namedGateway("aliyun")).Values())
	assert.Equal(t, []any{"tencent", "1234"}, msg.Data(namedGateway("tencent")).Values())
}

func TestBuilder_AddDataStatic(t *testing.T) {
	msg := NewBuilder().
		SetData(NewData("code", "1234")).
		AddData("ttl", 5).
		Build()

	assert.Equal(t, []any{"1234", 5}, msg.Data(namedGateway("aliyun")).Values())
}

func TestMessage_Defaults(t *testing.T) {
	msg := FromText("your code is 1234")

	assert.Equal(t, TypeText, msg.Type())
	assert.Equal(t, "your code is 1234", msg.Content(nil))
	assert.Equal(t, "your code is 1234", msg.Template(nil))
	assert.Empty(t, msg.Gateways())
	assert.Equal(t, TypeText, (&Message{}).Type())
}

func TestFromMap(t *testing.T) {
	msg := FromMap(map[string]any{
		"type":     "voice",
		"content":  func(g Gateway) string { return "to " + g.Name() },
		"template": "SMS_1",
		"data":     map[string]any{"b": 2, "a": 1},
		"gateways": []any{"aliyun", "yunpian"},
		"unknown":  "ignored",
		"priority": 5,
	})

	assert.Equal(t, TypeVoice, msg.Type())
	assert.Equal(t, "to yunpian", msg.Content(namedGateway("yunpian")))
	assert.Equal(t, "SMS_1", msg.Template(namedGateway("yunpian")))
	assert.Equal(t, []string{"a", "b"}, msg.Data(nil).Keys())
	assert.Equal(t, []string{"aliyun", "yunpian"}, msg.Gateways())
}

func TestFromMap_WrongTypesIgnored(t *testing.T) {
	msg := FromMap(map[string]any{
		"content":  42,
		"gateways": "aliyun",
	})

	assert.Equal(t, "", msg.Content(nil))
	assert.Empty(t, msg.Gateways())
}

func TestMessage_GatewaysIsCopy(t *testing.T) {
	msg := NewBuilder().SetGateways("a", "b").Build()

	names := msg.Gateways()
	names[0] = "z"
	assert.Equal(t, []string{"a", "b"}, msg.Gateways())
}
