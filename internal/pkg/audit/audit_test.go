package audit

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/database/dbtest"
)

func TestGormTrailWritesRow(t *testing.T) {
	db := dbtest.Open(t)
	trail := NewGormTrail(db)

	trail.Log(context.Background(), Entry{
		Event:    EventAmountMismatch,
		Severity: SeverityHigh,
		UserID:   7,
		OrderNo:  "PV1",
		Message:  strings.Repeat("x", 300),
		Details:  map[string]interface{}{"expected": 999, "got": 1},
	})

	var rows []models.AuditLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, EventAmountMismatch, rows[0].Event)
	assert.Equal(t, "high", rows[0].Severity)
	require.NotNil(t, rows[0].UserID)
	assert.Equal(t, uint(7), *rows[0].UserID)
	assert.Len(t, rows[0].Message, 255)
	assert.JSONEq(t, `{"expected":999,"got":1}`, rows[0].DetailsJSON)
}

func TestGormTrailDefaultsSeverity(t *testing.T) {
	db := dbtest.Open(t)
	NewGormTrail(db).Log(context.Background(), Entry{Event: EventOrderPaid})

	var row models.AuditLog
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, "info", row.Severity)
	assert.Nil(t, row.UserID)
}

func TestMemoryTrailFiltersEvents(t *testing.T) {
	m := NewMemoryTrail()
	m.Log(context.Background(), Entry{Event: EventOrderPaid})
	m.Log(context.Background(), Entry{Event: EventAmountMismatch, Severity: SeverityHigh})
	m.Log(context.Background(), Entry{Event: EventOrderPaid})

	assert.Len(t, m.Entries(), 3)
	assert.Len(t, m.Events(EventOrderPaid), 2)
	assert.Empty(t, m.Events(EventStockRaceRefund))
}
