package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugSuppressedWhenQuiet(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetVerbose(false)

	Debug("should not appear")
	assert.Empty(t, buf.String())
}

func TestDebugPrintedWhenVerbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetVerbose(true)
	defer SetVerbose(false)

	Debug("chunked %d segments", 3)
	assert.Contains(t, buf.String(), "[DEBUG] chunked 3 segments")
}

func TestErrorAlwaysPrinted(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetVerbose(false)

	Error("upsert failed: %s", "store down")
	assert.Contains(t, buf.String(), "[ERROR] upsert failed: store down")
}

func TestIsVerbose(t *testing.T) {
	SetVerbose(true)
	assert.True(t, IsVerbose())
	SetVerbose(false)
	assert.False(t, IsVerbose())
}
