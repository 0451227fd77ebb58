package gateways

import (
	"context"
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

const twilioEndpoint = "https://api.twilio.com"

// TwilioGateway sends text content through the Twilio Messages API.
// Config: account_sid, token, from.
type TwilioGateway struct {
	gateway.Base
	client *gateway.Client
	logger logger.Logger
}

// NewTwilio creates the Twilio gateway
func NewTwilio(cfg *config.Config, log logger.Logger) (gateway.Gateway, error) {
	g := &TwilioGateway{logger: logger.OrDiscard(log)}
	g.Base = gateway.NewBase(gateway.DeriveName(g), cfg)
	if err := requireKeys(g.Name(), g.Config(), "account_sid", "token", "from"); err != nil {
		return nil, err
	}
	g.client = gateway.NewClient(g.TransportOptions())
	return g, nil
}

// Send creates a Message resource. The recipient is always sent in E.164 form.
func (g *TwilioGateway) Send(ctx context.Context, to *phone.Number, msg *message.Message, cfg *config.Config) (gateway.Result, error) {
	sid := cfg.GetString("account_sid", "")
	endpoint := strings.TrimSuffix(cfg.GetString("endpoint", twilioEndpoint), "/") +
		"/2010-04-01/Accounts/" + url.PathEscape(sid) + "/Messages.json"

	form := url.Values{
		"To":   {to.UniversalNumber()},
		"From": {cfg.GetString("from", "")},
		"Body": {msg.Content(g)},
	}
	auth := base64.StdEncoding.EncodeToString([]byte(sid + ":" + cfg.GetString("token", "")))

	g.logger.Debug("Calling Twilio Messages", "to", to.UniversalNumber())
	resp, err := g.client.PostForm(ctx, endpoint, form, map[string]string{"Authorization": "Basic " + auth})
	if err != nil {
		return nil, err
	}

	body, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	if !resp.OK() || body["error_code"] != nil {
		code := body["error_code"]
		if code == nil {
			code = body["code"]
		}
		text := stringOf(body["error_message"])
		if text == "" {
			text = stringOf(body["message"])
		}
		if text == "" {
			text = "provider rejected the request"
		}
		return nil, gateway.NewError(text, code, body)
	}
	return body, nil
}
