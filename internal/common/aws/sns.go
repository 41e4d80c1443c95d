package aws

import (
	"context"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of the SNS client the alert publisher needs.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// AlertPublisher posts operational alerts to one SNS topic.
type AlertPublisher struct {
	client   SNSAPI
	topicARN string
}

func NewAlertPublisher(client SNSAPI, topicARN string) *AlertPublisher {
	return &AlertPublisher{client: client, topicARN: topicARN}
}

func NewSNSAlertPublisher(cfg awsv2.Config, topicARN string) *AlertPublisher {
	return NewAlertPublisher(sns.NewFromConfig(cfg), topicARN)
}

// Publish sends message with string attributes for subscription filtering.
// It returns the SNS message id.
func (p *AlertPublisher) Publish(ctx context.Context, subject, message string, attrs map[string]string) (string, error) {
	input := &sns.PublishInput{
		TopicArn: awsv2.String(p.topicARN),
		Subject:  awsv2.String(subject),
		Message:  awsv2.String(message),
	}
	if len(attrs) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    awsv2.String("String"),
				StringValue: awsv2.String(v),
			}
		}
	}

	out, err := p.client.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("sns publish failed: %w", err)
	}
	return awsv2.ToString(out.MessageId), nil
}
