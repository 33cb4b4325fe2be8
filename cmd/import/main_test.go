package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prudhvinik1/nurseaide/internal/models"
	"github.com/prudhvinik1/nurseaide/internal/repositories"
	"github.com/prudhvinik1/nurseaide/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const export = `{
  "-Nz2": {"type":"Water","timestamp":2000,"patientID":"P2","roomNumber":"7"},
  "-Nz1": {"type":"Level of Discomfort","timestamp":1000,"patientID":"P1","roomNumber":"3","discomfort_level":4},
  "-Nz3": {"type":"Call Button","patientID":"P3"}
}`

func TestImportRecords_KeepsDocumentOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := repositories.NewRedisRequestRepository(client)
	ctx := context.Background()

	snap, err := models.ParseSnapshot("requests", []byte(export))
	require.NoError(t, err)
	records := services.DecodeSnapshot(snap)
	require.Len(t, records, 2, "child without timestamp or room is skipped")

	n, err := importRecords(ctx, repo, "requests", records)

	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := repo.Snapshot(ctx, "requests")
	require.NoError(t, err)
	imported := services.DecodeSnapshot(stored)
	require.Len(t, imported, 2)
	assert.Equal(t, "P2", imported[0].PatientID)
	assert.Equal(t, "P1", imported[1].PatientID)
	require.NotNil(t, imported[1].DiscomfortLevel)
	assert.Equal(t, 4, *imported[1].DiscomfortLevel)
}
