package gateways

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

const yunpianEndpoint = "https://sms.yunpian.com/v2/sms"

// YunpianGateway sends through Yunpian. Messages with a template id use
// tpl_single_send, anything else single_send with the content. Config:
// api_key, signature (optional, prepended as 【signature】).
type YunpianGateway struct {
	gateway.Base
	client *gateway.Client
	logger logger.Logger
}

// NewYunpian creates the Yunpian gateway
func NewYunpian(cfg *config.Config, log logger.Logger) (gateway.Gateway, error) {
	g := &YunpianGateway{logger: logger.OrDiscard(log)}
	g.Base = gateway.NewBase(gateway.DeriveName(g), cfg)
	if err := requireKeys(g.Name(), g.Config(), "api_key"); err != nil {
		return nil, err
	}
	g.client = gateway.NewClient(g.TransportOptions())
	return g, nil
}

func (g *YunpianGateway) Send(ctx context.Context, to *phone.Number, msg *message.Message, cfg *config.Config) (gateway.Result, error) {
	mobile := to.UniversalNumber()
	if to.InDomesticRegion() {
		mobile = to.Number()
	}

	base := strings.TrimSuffix(cfg.GetString("endpoint", yunpianEndpoint), "/")
	form := url.Values{
		"apikey": {cfg.GetString("api_key", "")},
		"mobile": {mobile},
	}

	var endpoint string
	content := msg.Content(g)
	if template := msg.Template(g); template != "" && template != content {
		endpoint = base + "/tpl_single_send.json"
		form.Set("tpl_id", template)
		form.Set("tpl_value", yunpianTplValue(msg.Data(g)))
	} else {
		endpoint = base + "/single_send.json"
		if sig := cfg.GetString("signature", ""); sig != "" && !strings.HasPrefix(content, "【") {
			content = "【" + sig + "】" + content
		}
		form.Set("text", content)
	}

	g.logger.Debug("Calling Yunpian", "endpoint", endpoint, "mobile", mobile)
	resp, err := g.client.PostForm(ctx, endpoint, form, map[string]string{
		"Accept": "application/json;charset=utf-8",
	})
	if err != nil {
		return nil, err
	}

	body, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	if code := fmt.Sprint(body["code"]); code != "0" {
		return nil, providerError(body, "msg", "code")
	}
	return body, nil
}

// yunpianTplValue encodes template data as "#key#=value" pairs.
func yunpianTplValue(data message.Data) string {
	pairs := make([]string, 0, data.Len())
	for _, k := range data.Keys() {
		v, _ := data.Get(k)
		pairs = append(pairs, url.QueryEscape("#"+k+"#")+"="+url.QueryEscape(fmt.Sprint(v)))
	}
	return strings.Join(pairs, "&")
}
