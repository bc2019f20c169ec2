package obslog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEventRedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "corefetch-test")

	logger.RecordEvent(context.Background(), "info", "tool_invoked", map[string]string{
		"auth_token": "super-secret-value",
		"tool":       "ping",
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, redactedPlaceholder, line["auth_token"])
	assert.Equal(t, "ping", line["tool"])
}

func TestRecordEventIncludesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "corefetch-test")
	ctx := WithFields(context.Background(), Fields{RequestID: "req-1", SessionID: "sess-1", Group: "g1"})

	logger.RecordEvent(ctx, "info", "ping", nil)

	out := buf.String()
	assert.True(t, strings.Contains(out, "req-1"))
	assert.True(t, strings.Contains(out, "sess-1"))
}

type failingSink struct{}

func (failingSink) Send(map[string]any) error { return errors.New("sink unreachable") }

func TestDegradedSinkFallsBackToLocal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "corefetch-test").WithRemoteSink(failingSink{})

	logger.RecordEvent(context.Background(), "info", "ping", nil)

	assert.True(t, strings.Contains(buf.String(), "logging_sink_degraded"))
}
