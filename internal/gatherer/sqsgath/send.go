package sqsgath

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
)

const sendTimeout = 10 * time.Second

func (s *sqsGatherer) send(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("failed to marshal message", "error", err)
		return
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueUrl),
		MessageBody: aws.String(string(b)),
	}
	// FIFO queues keep one run's events in order
	if strings.HasSuffix(s.queueUrl, ".fifo") {
		input.MessageGroupId = aws.String(s.runUuid)
		input.MessageDeduplicationId = aws.String(uuid.NewString())
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if _, err := s.sqsClient.SendMessage(ctx, input); err != nil {
		s.logger.Warn("failed to send message to SQS", "queue", s.queueUrl, "error", err)
	}
}
