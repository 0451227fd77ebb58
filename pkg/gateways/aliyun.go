package gateways

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

const (
	aliyunEndpoint = "https://dysmsapi.aliyuncs.com"
	aliyunVersion  = "2017-05-25"
	aliyunRegion   = "cn-hangzhou"
)

// AliyunGateway sends template messages through Alibaba Cloud SMS.
// Config: access_key_id, access_key_secret, sign_name.
// The template data may override the signature with a "sign_name" key.
type AliyunGateway struct {
	gateway.Base
	client *gateway.Client
	logger logger.Logger
}

// NewAliyun creates the Aliyun gateway
func NewAliyun(cfg *config.Config, log logger.Logger) (gateway.Gateway, error) {
	g := &AliyunGateway{logger: logger.OrDiscard(log)}
	g.Base = gateway.NewBase(gateway.DeriveName(g), cfg)
	if err := requireKeys(g.Name(), g.Config(), "access_key_id", "access_key_secret"); err != nil {
		return nil, err
	}
	g.client = gateway.NewClient(g.TransportOptions())
	return g, nil
}

// Send calls the SendSms RPC action
func (g *AliyunGateway) Send(ctx context.Context, to *phone.Number, msg *message.Message, cfg *config.Config) (gateway.Result, error) {
	data := msg.Data(g)

	signName := cfg.GetString("sign_name", "")
	if v, ok := data.Get("sign_name"); ok {
		if s, ok := v.(string); ok && s != "" {
			signName = s
		}
	}
	params := data.Map()
	delete(params, "sign_name")
	templateParam, err := json.Marshal(params)
	if err != nil {
		return nil, gateway.WrapError(err, "failed to encode template data")
	}

	number := to.ZeroPrefixedNumber()
	if to.InDomesticRegion() {
		number = to.Number()
	}

	query := url.Values{
		"RegionId":         {cfg.GetString("region", aliyunRegion)},
		"AccessKeyId":      {cfg.GetString("access_key_id", "")},
		"Format":           {"JSON"},
		"SignatureMethod":  {"HMAC-SHA1"},
		"SignatureVersion": {"1.0"},
		"SignatureNonce":   {nonce()},
		"Timestamp":        {now().UTC().Format("2006-01-02T15:04:05Z")},
		"Action":           {"SendSms"},
		"Version":          {aliyunVersion},
		"PhoneNumbers":     {number},
		"SignName":         {signName},
		"TemplateCode":     {msg.Template(g)},
		"TemplateParam":    {string(templateParam)},
	}
	query.Set("Signature", aliyunSign(query, cfg.GetString("access_key_secret", "")))

	g.logger.Debug("Calling Aliyun SendSms", "phone", number, "template", msg.Template(g))
	resp, err := g.client.Get(ctx, cfg.GetString("endpoint", aliyunEndpoint), query, nil)
	if err != nil {
		return nil, err
	}

	body, err := resp.JSON()
	if err != nil {
		return nil, err
	}
	if code, _ := body["Code"].(string); code != "OK" {
		return nil, providerError(body, "Message", "Code")
	}
	return body, nil
}

// aliyunSign computes the RPC signature: HMAC-SHA1 over
// "GET&%2F&" + percent-encoded canonical query, keyed by secret + "&".
func aliyunSign(query url.Values, secret string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k != "Signature" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(query.Get(k)))
	}
	stringToSign := "GET&" + percentEncode("/") + "&" + percentEncode(strings.Join(pairs, "&"))

	mac := hmac.New(sha1.New, []byte(secret+"&"))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode is RFC 3986 encoding: space is %20 and "~" is kept.
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
