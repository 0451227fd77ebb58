package gateways

import (
	"context"
	stderrors "errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

const awsSNSRegion = "us-east-1"

// Publisher is the subset of the SNS client the gateway uses
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AWSSNSGateway publishes text content directly to a phone number through
// Amazon SNS. Config: region, access_key_id, secret_access_key, sender_id,
// sms_type ("Transactional" or "Promotional"). Without explicit keys the
// default AWS credential chain is used.
type AWSSNSGateway struct {
	gateway.Base
	publisher Publisher
	logger    logger.Logger
}

// NewAWSSNS creates the SNS gateway with a client built from the gateway config
func NewAWSSNS(cfg *config.Config, log logger.Logger) (gateway.Gateway, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.GetString("region", awsSNSRegion)),
	}
	if id := cfg.GetString("access_key_id", ""); id != "" {
		secret := cfg.GetString("secret_access_key", "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{AccessKeyID: id, SecretAccessKey: secret, Source: "easysms"}, nil
			}),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, gateway.WrapError(err, "failed to load AWS config")
	}

	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint := cfg.GetString("endpoint", ""); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewAWSSNSWithPublisher(cfg, client, log), nil
}

// NewAWSSNSWithPublisher creates the SNS gateway around an existing publisher
func NewAWSSNSWithPublisher(cfg *config.Config, publisher Publisher, log logger.Logger) *AWSSNSGateway {
	g := &AWSSNSGateway{publisher: publisher, logger: logger.OrDiscard(log)}
	g.Base = gateway.NewBase(NameAWSSNS, cfg)
	return g
}

// Send publishes the content and returns the SNS message id
func (g *AWSSNSGateway) Send(ctx context.Context, to *phone.Number, msg *message.Message, cfg *config.Config) (gateway.Result, error) {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String(cfg.GetString("sms_type", "Transactional")),
		},
	}
	if sender := cfg.GetString("sender_id", ""); sender != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(sender),
		}
	}

	g.logger.Debug("Publishing SNS SMS", "phone", to.UniversalNumber())
	out, err := g.publisher.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to.UniversalNumber()),
		Message:           aws.String(msg.Content(g)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return nil, snsError(err)
	}
	return gateway.Result{"message_id": aws.ToString(out.MessageId)}, nil
}

// snsError keeps API error codes; anything else is a transport failure.
func snsError(err error) *gateway.Error {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		e := gateway.NewError(apiErr.ErrorMessage(), apiErr.ErrorCode(), map[string]any{
			"code":    apiErr.ErrorCode(),
			"message": apiErr.ErrorMessage(),
			"fault":   apiErr.ErrorFault().String(),
		})
		e.Cause = err
		if apiErr.ErrorFault() == smithy.FaultServer {
			return e.AsTemporary()
		}
		return e
	}
	return gateway.WrapError(err, "SNS publish failed")
}
