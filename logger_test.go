package e57go

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/hupe1980/e57go/blobstore"
	"github.com/hupe1980/e57go/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLoggerRecords(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, slog.LevelDebug)

	w, err := Create(ctx, blobstore.NewMemoryStore(), WithLogger(logger))
	require.NoError(t, err)
	idx, err := w.NewData3D(Data3D{PointFields: []schema.Field{{ID: schema.CartesianX, Type: schema.Float64()}}})
	require.NoError(t, err)
	pw, err := w.OpenPointWriter(ctx, idx, NewFieldSet().Bind(schema.CartesianX, Floats([]float64{1, 2})), 2)
	require.NoError(t, err)
	_, err = pw.Transfer(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, w.Close(ctx))

	byMsg := make(map[string]map[string]any)
	for _, rec := range logRecords(t, &buf) {
		assert.Equal(t, "e57go", rec["component"])
		byMsg[rec["msg"].(string)] = rec
	}

	require.Contains(t, byMsg, "session opened")
	assert.Equal(t, "write", byMsg["session opened"]["session"])
	assert.EqualValues(t, 0, byMsg["session opened"]["data3d"])

	require.Contains(t, byMsg, "transfer completed")
	assert.EqualValues(t, 2, byMsg["transfer completed"]["records"])

	require.Contains(t, byMsg, "commit completed")
	assert.NotEmpty(t, byMsg["commit completed"]["manifest"])
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, slog.LevelWarn)
	logger.LogTransfer(context.Background(), 10, 10, nil)
	assert.Zero(t, buf.Len())

	logger.LogTransfer(context.Background(), 10, 10, ErrStorageFault)
	assert.Contains(t, buf.String(), "transfer failed")

	NoopLogger().LogCommit(context.Background(), "m", 1, 0, ErrStorageFault)
}
