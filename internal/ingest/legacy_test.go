package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhh-linglab/linkage-cli/internal/model"
)

const sampleMapping = `{'root': {'id': 'root', 'parent': None, 'message': None}, ` +
	`'n1': {'id': 'n1', 'parent': 'root', 'message': {'id': 'msg-1', 'author': {'role': 'user'}, ` +
	`'content': {'parts': ['My ID is 05122024_1645']}, 'create_time': 1733416100.0}}, ` +
	`'n2': {'id': 'n2', 'parent': 'n1', 'message': {'id': 'msg-2', 'author': {'role': 'assistant'}, ` +
	`'content': {'parts': ['Hi!']}, 'create_time': 1733416200.0}}}`

func TestReadLegacyCSV(t *testing.T) {
	csvData := "conversation_id,create_time,mapping\n" +
		"legacy-1,1733416000,\"" + sampleMapping + "\"\n"
	path := writeFile(t, "legacy.csv", []byte(csvData))

	records, skips, err := ReadLegacyCSV(path, LegacyOptions{})
	require.NoError(t, err)
	assert.Empty(t, skips)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "legacy-1", rec.ID)
	assert.Equal(t, model.SourceRecovered, rec.Source)
	assert.Equal(t, time.Unix(1733416000, 0).UTC(), rec.CreateTime)

	// Root placeholder skipped; two real turns in parent-link order.
	require.Len(t, rec.Messages, 2)
	assert.Equal(t, model.RoleUser, rec.Messages[0].Role)
	assert.Equal(t, "My ID is 05122024_1645", rec.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, rec.Messages[1].Role)
}

func TestReadLegacyCSV_RecordsDecodeFailures(t *testing.T) {
	csvData := "conversation_id,create_time,mapping\n" +
		"legacy-bad,1733416000,\"{'unterminated': \"\n" +
		"legacy-empty,1733416000,{}\n" +
		"legacy-ok,1733416000,\"" + sampleMapping + "\"\n"
	path := writeFile(t, "legacy.csv", []byte(csvData))

	records, skips, err := ReadLegacyCSV(path, LegacyOptions{})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "legacy-ok", records[0].ID)

	require.Len(t, skips, 2)
	assert.Equal(t, "legacy-bad", skips[0].Key)
	assert.Equal(t, "mapping decode failed", skips[0].Reason)
	assert.Equal(t, "legacy-empty", skips[1].Key)
	assert.Equal(t, "empty mapping", skips[1].Reason)
}

func TestReadLegacyCSV_CreateTimeFallsBackToFirstMessage(t *testing.T) {
	csvData := "conversation_id,create_time,mapping\n" +
		"legacy-1,,\"" + sampleMapping + "\"\n"
	path := writeFile(t, "legacy.csv", []byte(csvData))

	records, _, err := ReadLegacyCSV(path, LegacyOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Unix(1733416100, 0).UTC(), records[0].CreateTime)
}

func TestReadLegacyCSV_MissingMappingColumn(t *testing.T) {
	path := writeFile(t, "legacy.csv", []byte("conversation_id,create_time\n"))

	_, _, err := ReadLegacyCSV(path, LegacyOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapping")
}
