package assignment_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgledger/orgledger/modules/org/domain/assignment"
)

func TestDeriveStatus(t *testing.T) {
	closed := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, assignment.StatusCurrent, assignment.DeriveStatus(true, true, nil))
	assert.Equal(t, assignment.StatusTerminated, assignment.DeriveStatus(false, true, &closed))
	assert.Equal(t, assignment.StatusHistorical, assignment.DeriveStatus(false, false, &closed))
	assert.Equal(t, assignment.StatusHistorical, assignment.DeriveStatus(false, true, nil))
}

func TestVerifyChain(t *testing.T) {
	lineage := uuid.New()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := from.AddDate(0, 3, 0)

	t.Run("valid chain", func(t *testing.T) {
		links := []assignment.ChainLink{
			{LineageID: lineage, Version: 1, ValidFrom: from, ValidTo: &mid},
			{LineageID: lineage, Version: 2, IsCurrent: true, ValidFrom: mid},
		}
		require.NoError(t, assignment.VerifyChain(links))
	})

	t.Run("empty chain", func(t *testing.T) {
		require.NoError(t, assignment.VerifyChain(nil))
	})

	t.Run("version gap", func(t *testing.T) {
		links := []assignment.ChainLink{
			{LineageID: lineage, Version: 1, ValidFrom: from, ValidTo: &mid},
			{LineageID: lineage, Version: 3, IsCurrent: true, ValidFrom: mid},
		}
		require.Error(t, assignment.VerifyChain(links))
	})

	t.Run("current not latest", func(t *testing.T) {
		links := []assignment.ChainLink{
			{LineageID: lineage, Version: 1, IsCurrent: true, ValidFrom: from},
			{LineageID: lineage, Version: 2, ValidFrom: mid},
		}
		require.Error(t, assignment.VerifyChain(links))
	})

	t.Run("mixed lineages", func(t *testing.T) {
		links := []assignment.ChainLink{
			{LineageID: lineage, Version: 1, ValidFrom: from, ValidTo: &mid},
			{LineageID: uuid.New(), Version: 2, IsCurrent: true, ValidFrom: mid},
		}
		require.Error(t, assignment.VerifyChain(links))
	})

	t.Run("same-day termination", func(t *testing.T) {
		links := []assignment.ChainLink{
			{LineageID: lineage, Version: 1, ValidFrom: from, ValidTo: &from},
		}
		require.NoError(t, assignment.VerifyChain(links))
	})

	t.Run("inverted validity window", func(t *testing.T) {
		before := from.AddDate(0, -1, 0)
		links := []assignment.ChainLink{
			{LineageID: lineage, Version: 1, ValidFrom: from, ValidTo: &before},
		}
		require.Error(t, assignment.VerifyChain(links))
	})
}
