package api

import (
	"strings"
	"time"
)

// MsgType is a message type for streaming responses
type MsgType string

const (
	StartRunMsg     MsgType = "run_start"
	StartLengthMsg  MsgType = "length_start"
	FinishCellMsg   MsgType = "cell_finish"
	FinishLengthMsg MsgType = "length_finish"
	FinishRunMsg    MsgType = "run_finish"
)

// Size constraints for free text in streamed messages
const (
	MaxTextHeight = 40
	MaxTextWidth  = 80
)

// Header is the common header for all streaming messages
type Header struct {
	RunUuid string  `json:"run_uuid"`
	MsgType MsgType `json:"msg_type"`
}

type StartRun struct {
	Header
	Run         RunInfo `json:"run"`
	StartedTime string  `json:"started_time"`
}

type StartLength struct {
	Header
	PatternLen int `json:"pattern_len"`
}

type FinishCell struct {
	Header
	Cell CellResult `json:"cell"`
}

type FinishLength struct {
	Header
	PatternLen int `json:"pattern_len"`
}

type FinishRun struct {
	Header
	ErrorMessage *string `json:"error_message"`
	FinishedTime string  `json:"finished_time"`
}

func NewHeader(runUuid string, msgType MsgType) Header {
	return Header{
		RunUuid: runUuid,
		MsgType: msgType,
	}
}

func NewStartRun(info RunInfo) StartRun {
	return StartRun{
		Header:      NewHeader(info.RunUuid, StartRunMsg),
		Run:         info,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewStartLength(runUuid string, patternLen int) StartLength {
	return StartLength{
		Header:     NewHeader(runUuid, StartLengthMsg),
		PatternLen: patternLen,
	}
}

func NewFinishCell(runUuid string, cell CellResult) FinishCell {
	return FinishCell{
		Header: NewHeader(runUuid, FinishCellMsg),
		Cell:   cell,
	}
}

func NewFinishLength(runUuid string, patternLen int) FinishLength {
	return FinishLength{
		Header:     NewHeader(runUuid, FinishLengthMsg),
		PatternLen: patternLen,
	}
}

func NewFinishRun(runUuid string, errorMessage *string) FinishRun {
	return FinishRun{
		Header:       NewHeader(runUuid, FinishRunMsg),
		ErrorMessage: errorMessage,
		FinishedTime: time.Now().Format(time.RFC3339),
	}
}

// TrimToRect cuts s to at most maxHeight lines of at most maxWidth bytes.
func TrimToRect(s string, maxHeight int, maxWidth int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	cut := len(lines) > maxHeight
	if cut {
		lines = lines[:maxHeight]
	}
	var res strings.Builder
	for i, line := range lines {
		if i > 0 {
			res.WriteString("\n")
		}
		if len(line) > maxWidth {
			res.WriteString(line[:maxWidth] + "[...]")
		} else {
			res.WriteString(line)
		}
	}
	if cut {
		res.WriteString("\n[...]")
	}
	return res.String()
}
