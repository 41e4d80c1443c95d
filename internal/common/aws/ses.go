package aws

import (
	"context"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client the mailer needs.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Mailer sends plain text and HTML mail through SES.
type Mailer struct {
	client SESAPI
	from   string
}

func NewMailer(client SESAPI, from string) *Mailer {
	return &Mailer{client: client, from: from}
}

func NewSESMailer(cfg awsv2.Config, from string) *Mailer {
	return NewMailer(ses.NewFromConfig(cfg), from)
}

func (m *Mailer) Send(ctx context.Context, to []string, subject, text, html string) error {
	if len(to) == 0 {
		return nil
	}

	body := &types.Body{
		Text: &types.Content{Data: awsv2.String(text), Charset: awsv2.String("UTF-8")},
	}
	if html != "" {
		body.Html = &types.Content{Data: awsv2.String(html), Charset: awsv2.String("UTF-8")}
	}

	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      awsv2.String(m.from),
		Destination: &types.Destination{ToAddresses: to},
		Message: &types.Message{
			Subject: &types.Content{Data: awsv2.String(subject), Charset: awsv2.String("UTF-8")},
			Body:    body,
		},
	})
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}
	return nil
}
