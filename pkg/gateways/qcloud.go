package gateways

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

const (
	qcloudEndpoint = "https://sms.tencentcloudapi.com"
	qcloudService  = "sms"
	qcloudVersion  = "2021-01-11"
	qcloudRegion   = "ap-guangzhou"
	qcloudAlgo     = "TC3-HMAC-SHA256"
	qcloudJSON     = "application/json; charset=utf-8"
)

// QcloudGateway sends template messages through Tencent Cloud SMS (API 3.0).
// It reports the name "tencent".
// Config: sdk_app_id, secret_id, secret_key, sign_name, region.
type QcloudGateway struct {
	gateway.Base
	client *gateway.Client
	logger logger.Logger
}

// NewQcloud creates the Tencent Cloud gateway
func NewQcloud(cfg *config.Config, log logger.Logger) (gateway.Gateway, error) {
	g := &QcloudGateway{
		Base:   gateway.NewBase(NameTencent, cfg),
		logger: logger.OrDiscard(log),
	}
	if err := requireKeys(g.Name(), g.Config(), "sdk_app_id", "secret_id", "secret_key"); err != nil {
		return nil, err
	}
	g.client = gateway.NewClient(g.TransportOptions())
	return g, nil
}

type qcloudRequest struct {
	PhoneNumberSet   []string `json:"PhoneNumberSet"`
	SmsSdkAppId      string   `json:"SmsSdkAppId"`
	SignName         string   `json:"SignName,omitempty"`
	TemplateId       string   `json:"TemplateId"`
	TemplateParamSet []string `json:"TemplateParamSet"`
}

// Send calls the SendSms action. Template parameters are the data values in
// insertion order.
func (g *QcloudGateway) Send(ctx context.Context, to *phone.Number, msg *message.Message, cfg *config.Config) (gateway.Result, error) {
	number := to.UniversalNumber()
	if !to.HasIDDCode() {
		number = "+" + strconv.Itoa(phone.DefaultCountryCode) + to.Number()
	}

	payload, err := json.Marshal(qcloudRequest{
		PhoneNumberSet:   []string{number},
		SmsSdkAppId:      cfg.GetString("sdk_app_id", ""),
		SignName:         cfg.GetString("sign_name", ""),
		TemplateId:       msg.Template(g),
		TemplateParamSet: dataStrings(msg.Data(g)),
	})
	if err != nil {
		return nil, gateway.WrapError(err, "failed to encode request")
	}

	endpoint := cfg.GetString("endpoint", qcloudEndpoint)
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, gateway.WrapError(err, "invalid endpoint")
	}

	timestamp := now().Unix()
	headers := map[string]string{
		"Host":           u.Host,
		"X-TC-Action":    "SendSms",
		"X-TC-Timestamp": strconv.FormatInt(timestamp, 10),
		"X-TC-Version":   qcloudVersion,
		"X-TC-Region":    cfg.GetString("region", qcloudRegion),
		"Authorization": qcloudAuthorization(
			cfg.GetString("secret_id", ""), cfg.GetString("secret_key", ""),
			u.Host, payload, timestamp,
		),
	}

	g.logger.Debug("Calling Tencent SendSms", "phone", number, "template", msg.Template(g))
	resp, err := g.client.PostRaw(ctx, endpoint, qcloudJSON, payload, headers)
	if err != nil {
		return nil, err
	}

	body, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	response, _ := body["Response"].(map[string]any)
	if e, ok := response["Error"].(map[string]any); ok {
		return nil, gateway.NewError(stringOf(e["Message"]), e["Code"], body)
	}
	statuses, _ := response["SendStatusSet"].([]any)
	if len(statuses) == 0 {
		return nil, gateway.NewError("empty SendStatusSet", nil, body)
	}
	status, _ := statuses[0].(map[string]any)
	if code := stringOf(status["Code"]); !strings.EqualFold(code, "Ok") {
		return nil, gateway.NewError(stringOf(status["Message"]), status["Code"], body)
	}
	return body, nil
}

// qcloudAuthorization builds the TC3-HMAC-SHA256 Authorization header value.
func qcloudAuthorization(secretID, secretKey, host string, payload []byte, timestamp int64) string {
	date := time.Unix(timestamp, 0).UTC().Format("2006-01-02")

	canonicalHeaders := "content-type:" + qcloudJSON + "\nhost:" + host + "\n"
	signedHeaders := "content-type;host"
	canonicalRequest := strings.Join([]string{
		"POST", "/", "", canonicalHeaders, signedHeaders, sha256Hex(payload),
	}, "\n")

	scope := date + "/" + qcloudService + "/tc3_request"
	stringToSign := strings.Join([]string{
		qcloudAlgo, strconv.FormatInt(timestamp, 10), scope, sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	secretDate := hmacSHA256([]byte("TC3"+secretKey), date)
	secretService := hmacSHA256(secretDate, qcloudService)
	secretSigning := hmacSHA256(secretService, "tc3_request")
	signature := hex.EncodeToString(hmacSHA256(secretSigning, stringToSign))

	return qcloudAlgo + " Credential=" + secretID + "/" + scope +
		", SignedHeaders=" + signedHeaders + ", Signature=" + signature
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}
