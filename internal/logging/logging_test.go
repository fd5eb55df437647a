package logging_test

import (
	"bytes"
	"testing"

	"github.com/programme-lv/strbench/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, false)
	log.Debug("hidden")
	log.Info("shown", "algorithm", "kmp")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "algorithm=kmp")
	assert.NotContains(t, out, "\x1b[")

	buf.Reset()
	logging.New(&buf, true).Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
