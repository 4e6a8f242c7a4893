package event

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	body, err := Encode(ResponseCompleted, map[string]string{"response": "r1"})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, ResponseCompleted, got["type"])
	assert.Equal(t, map[string]any{"response": "r1"}, got["payload"])
	assert.NotEmpty(t, got["occurredAt"])
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, p.Publish(context.Background(), ResponseCompleted, map[string]int{"quizCorrect": 2}))
	assert.Contains(t, buf.String(), `"type":"survey.response.completed"`)
	assert.Contains(t, buf.String(), `quizCorrect`)
	assert.NoError(t, p.Close())
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := Encode(ResponseCompleted, make(chan int))
	assert.Error(t, err)
}
