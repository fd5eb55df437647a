package sqsgath

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Client is the part of *sqs.Client the gatherer uses.
type Client interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// New creates a gatherer sending run events to an SQS queue, using the
// default AWS credential chain.
func New(ctx context.Context, queueUrl string, region string, logger *slog.Logger) (*sqsGatherer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewWithClient(sqs.NewFromConfig(cfg), queueUrl, logger), nil
}

func NewWithClient(client Client, queueUrl string, logger *slog.Logger) *sqsGatherer {
	return &sqsGatherer{
		sqsClient: client,
		queueUrl:  queueUrl,
		logger:    logger,
	}
}
