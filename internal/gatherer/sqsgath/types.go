package sqsgath

import (
	"log/slog"

	"github.com/programme-lv/strbench/api"
	"github.com/programme-lv/strbench/internal/bench"
)

type sqsGatherer struct {
	sqsClient Client
	queueUrl  string
	logger    *slog.Logger
	runUuid   string
}

func (s *sqsGatherer) StartRun(info api.RunInfo) {
	s.runUuid = info.RunUuid
	info.Description = api.TrimToRect(info.Description, api.MaxTextHeight, api.MaxTextWidth)
	s.send(api.NewStartRun(info))
}

func (s *sqsGatherer) StartLength(patternLen int) {
	s.send(api.NewStartLength(s.runUuid, patternLen))
}

func (s *sqsGatherer) FinishCell(cell api.CellResult) {
	s.send(api.NewFinishCell(s.runUuid, cell))
}

func (s *sqsGatherer) FinishLength(patternLen int) {
	s.send(api.NewFinishLength(s.runUuid, patternLen))
}

func (s *sqsGatherer) FinishRun(err error) {
	msg := bench.ErrorMessage(err)
	if msg != nil {
		trimmed := api.TrimToRect(*msg, api.MaxTextHeight, api.MaxTextWidth)
		msg = &trimmed
	}
	s.send(api.NewFinishRun(s.runUuid, msg))
}
