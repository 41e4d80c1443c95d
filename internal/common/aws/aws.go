// Package aws wraps the SES and SNS clients used for report mail and fleet alerts.
package aws

import (
	"context"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// LoadConfig resolves credentials from the default chain for region.
func LoadConfig(ctx context.Context, region string) (awsv2.Config, error) {
	return config.LoadDefaultConfig(ctx, config.WithRegion(region))
}
