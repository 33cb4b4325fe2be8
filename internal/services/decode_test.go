package services

import (
	"encoding/json"
	"testing"

	"github.com/prudhvinik1/nurseaide/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func child(key, value string) models.SnapshotChild {
	return models.SnapshotChild{Key: key, Value: json.RawMessage(value)}
}

// TestDecodeSnapshot_Scenario decodes the dashboard's two canonical request kinds
func TestDecodeSnapshot_Scenario(t *testing.T) {
	raw := `{"a1":{"type":"Level of Discomfort","timestamp":1000,"patientID":"P1","roomNumber":"R1","discomfort_level":7},` +
		`"a2":{"type":"Call Button","timestamp":2000,"patientID":"P2","roomNumber":"R2"}}`
	snap, err := models.ParseSnapshot("requests", []byte(raw))
	require.NoError(t, err)

	records := DecodeSnapshot(snap)

	require.Len(t, records, 2)
	assert.Equal(t, "a1", records[0].ID)
	assert.Equal(t, models.DiscomfortType, records[0].Type)
	assert.Equal(t, float64(1000), records[0].Timestamp)
	assert.Equal(t, "P1", records[0].PatientID)
	assert.Equal(t, "R1", records[0].RoomNumber)
	require.NotNil(t, records[0].DiscomfortLevel)
	assert.Equal(t, 7, *records[0].DiscomfortLevel)

	assert.Equal(t, "a2", records[1].ID)
	assert.Equal(t, "Call Button", records[1].Type)
	assert.Nil(t, records[1].DiscomfortLevel)
}

// TestDecodeSnapshot_DropsMalformed keeps order and silently skips bad children
func TestDecodeSnapshot_DropsMalformed(t *testing.T) {
	snap := models.Snapshot{Path: "requests", Children: []models.SnapshotChild{
		child("k1", `{"type":"Water","timestamp":1,"patientID":"P1","roomNumber":"R1"}`),
		child("k2", `{"timestamp":2,"patientID":"P2","roomNumber":"R2"}`),
		child("k3", `{"type":"Water","timestamp":"3","patientID":"P3","roomNumber":"R3"}`),
		child("k4", `{"type":"Water","timestamp":4,"patientID":44,"roomNumber":"R4"}`),
		child("k5", `{"type":"Water","timestamp":5,"patientID":"P5"}`),
		child("k6", `"just a string"`),
		child("k7", `null`),
		child("k8", `{"type":"Bathroom","timestamp":8.5,"patientID":"P8","roomNumber":"R8"}`),
	}}

	records := DecodeSnapshot(snap)

	require.Len(t, records, 2)
	assert.Equal(t, "k1", records[0].ID)
	assert.Equal(t, "k8", records[1].ID)
	assert.Equal(t, 8.5, records[1].Timestamp)
}

func TestDecodeChild_DiscomfortLevel(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  *int
	}{
		{
			name:  "present on discomfort type",
			value: `{"type":"Level of Discomfort","timestamp":1,"patientID":"P","roomNumber":"R","discomfort_level":3}`,
			want:  intPtr(3),
		},
		{
			name:  "integral float accepted",
			value: `{"type":"Level of Discomfort","timestamp":1,"patientID":"P","roomNumber":"R","discomfort_level":9.0}`,
			want:  intPtr(9),
		},
		{
			name:  "missing on discomfort type",
			value: `{"type":"Level of Discomfort","timestamp":1,"patientID":"P","roomNumber":"R"}`,
		},
		{
			name:  "fractional rejected",
			value: `{"type":"Level of Discomfort","timestamp":1,"patientID":"P","roomNumber":"R","discomfort_level":2.5}`,
		},
		{
			name:  "string rejected",
			value: `{"type":"Level of Discomfort","timestamp":1,"patientID":"P","roomNumber":"R","discomfort_level":"5"}`,
		},
		{
			name:  "ignored on other types",
			value: `{"type":"Call Button","timestamp":1,"patientID":"P","roomNumber":"R","discomfort_level":5}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, ok := DecodeChild(child("id", tt.value))

			require.True(t, ok, "record itself is well formed")
			assert.Equal(t, tt.want, record.DiscomfortLevel)
		})
	}
}

func TestDecodeChild_UnescapesStrings(t *testing.T) {
	record, ok := DecodeChild(child("id", `{"type":"Call \"Nurse\"","timestamp":1,"patientID":"Pé","roomNumber":"R1"}`))

	require.True(t, ok)
	assert.Equal(t, `Call "Nurse"`, record.Type)
	assert.Equal(t, "Pé", record.PatientID)
}

func TestParseSnapshot_NullAndInvalid(t *testing.T) {
	snap, err := models.ParseSnapshot("requests", []byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, snap.Children)

	_, err = models.ParseSnapshot("requests", []byte(`[1,2]`))
	assert.Error(t, err)
}

func intPtr(v int) *int {
	return &v
}
