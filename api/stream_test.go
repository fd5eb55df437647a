package api_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/programme-lv/strbench/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimToRect(t *testing.T) {
	assert.Equal(t, "", api.TrimToRect("", 2, 3))
	assert.Equal(t, "ab\ncd", api.TrimToRect("ab\ncd", 2, 3))
	assert.Equal(t, "abc[...]\nd\n[...]", api.TrimToRect("abcdef\nd\ne", 2, 3))
}

func TestFinishCell_WireShape(t *testing.T) {
	msg := api.NewFinishCell("r1", api.CellResult{PatternLen: 4, Algorithm: "kmp", Outcome: api.TimedOut, Marker: "OUT", Repetitions: 2})
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	s := string(b)
	assert.True(t, strings.HasPrefix(s, `{"run_uuid":"r1","msg_type":"cell_finish"`), s)
	assert.Contains(t, s, `"outcome":"timed_out"`)
	assert.NotContains(t, s, `"stats"`)
}

func TestFinishRun_ErrorMessage(t *testing.T) {
	msg := "boom"
	b, err := json.Marshal(api.NewFinishRun("r1", &msg))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"error_message":"boom"`)

	b, err = json.Marshal(api.NewFinishRun("r1", nil))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"error_message":null`)
}
