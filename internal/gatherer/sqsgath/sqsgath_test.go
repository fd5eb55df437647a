package sqsgath_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/programme-lv/strbench/api"
	"github.com/programme-lv/strbench/internal/gatherer/sqsgath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeClient) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGatherer_SendsEvents(t *testing.T) {
	c := &fakeClient{}
	g := sqsgath.NewWithClient(c, "https://sqs.eu-central-1.amazonaws.com/1/results", discard())
	g.StartRun(api.RunInfo{RunUuid: "r1"})
	g.FinishCell(api.CellResult{PatternLen: 2, Algorithm: "bm", Outcome: api.Error, Marker: "ERR"})
	g.FinishRun(nil)

	require.Len(t, c.inputs, 3)
	for _, in := range c.inputs {
		assert.Equal(t, "https://sqs.eu-central-1.amazonaws.com/1/results", aws.ToString(in.QueueUrl))
		assert.Nil(t, in.MessageGroupId)
	}
	var cell api.FinishCell
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(c.inputs[1].MessageBody)), &cell))
	assert.Equal(t, api.FinishCellMsg, cell.MsgType)
	assert.Equal(t, "r1", cell.RunUuid)
	assert.Equal(t, "bm", cell.Cell.Algorithm)
}

func TestGatherer_FifoQueue(t *testing.T) {
	c := &fakeClient{}
	g := sqsgath.NewWithClient(c, "https://sqs.eu-central-1.amazonaws.com/1/results.fifo", discard())
	g.StartRun(api.RunInfo{RunUuid: "r2"})
	g.StartLength(1)

	require.Len(t, c.inputs, 2)
	assert.Equal(t, "r2", aws.ToString(c.inputs[1].MessageGroupId))
	assert.NotEqual(t, aws.ToString(c.inputs[0].MessageDeduplicationId), aws.ToString(c.inputs[1].MessageDeduplicationId))
}

func TestGatherer_SendFailureIsNotFatal(t *testing.T) {
	c := &fakeClient{err: errors.New("throttled")}
	g := sqsgath.NewWithClient(c, "q", discard())
	g.FinishLength(3)
	g.FinishRun(errors.New("boom"))
	assert.Len(t, c.inputs, 2)
}
