package database

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/programbi/crm-leads/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []any
	err    error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = f.values[i].(string)
		case *[]byte:
			*p = f.values[i].([]byte)
		case *bool:
			*p = f.values[i].(bool)
		case *int:
			*p = f.values[i].(int)
		case *time.Time:
			*p = f.values[i].(time.Time)
		case *sql.NullString:
			*p = f.values[i].(sql.NullString)
		case *sql.NullTime:
			*p = f.values[i].(sql.NullTime)
		}
	}
	return nil
}

func TestScanLeadMapsNullableSyncFields(t *testing.T) {
	at := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	row := fakeRow{values: []any{
		"l1", "Ana", "a@x.com", "987654321", "", []byte(`["Python","SQL"]`), "hola", "", "Web",
		"contactado", false, at,
		"error_network", sql.NullString{}, sql.NullTime{}, sql.NullString{String: "timeout", Valid: true},
		2, sql.NullTime{Time: at, Valid: true},
	}}

	lead, err := scanLead(row)

	require.NoError(t, err)
	assert.Equal(t, []string{"Python", "SQL"}, lead.Interests)
	assert.Equal(t, entity.StatusContacted, lead.Status)
	assert.Equal(t, entity.SyncErrorNetwork, lead.Sync.Status)
	assert.Nil(t, lead.Sync.RemoteID)
	assert.Nil(t, lead.Sync.SyncedAt)
	assert.Equal(t, "timeout", *lead.Sync.LastError)
	assert.Equal(t, 2, lead.Sync.Attempts)
	assert.Equal(t, at, *lead.Sync.LastAttemptAt)
}

func TestScanLeadToleratesUnknownStatus(t *testing.T) {
	row := fakeRow{values: []any{
		"l1", "", "a@x.com", "", "", []byte(`[]`), "", "", "Web",
		"archivado", false, time.Now(),
		"weird", sql.NullString{}, sql.NullTime{}, sql.NullString{}, 0, sql.NullTime{},
	}}

	lead, err := scanLead(row)

	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, lead.Status)
	assert.Equal(t, entity.SyncPending, lead.Sync.Status)
}

func TestScanLeadPropagatesNoRows(t *testing.T) {
	_, err := scanLead(fakeRow{err: sql.ErrNoRows})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestMapTemplateErrorUniqueViolation(t *testing.T) {
	err := mapTemplateError("create template", "t1", &pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, err, entity.ErrTemplateExists)

	err = mapTemplateError("create template", "t1", errors.New("conn reset"))
	assert.True(t, entity.IsStoreError(err))
	assert.Nil(t, mapTemplateError("x", "", nil))
}

func TestMigrationsEmbedded(t *testing.T) {
	script, err := migrationFiles.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(script), "pg_notify('leads_changed'")
	assert.Contains(t, string(script), "FOR EACH STATEMENT")
}

func TestMigrationNotifiesOnlyTouchedRows(t *testing.T) {
	script, err := migrationFiles.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)
	ddl := string(script)

	assert.Contains(t, ddl, "IF EXISTS (SELECT 1 FROM changed)")
	for _, trigger := range []string{
		"AFTER INSERT ON leads\n    REFERENCING NEW TABLE AS changed",
		"AFTER UPDATE ON leads\n    REFERENCING NEW TABLE AS changed",
		"AFTER DELETE ON leads\n    REFERENCING OLD TABLE AS changed",
	} {
		assert.Contains(t, ddl, trigger)
	}
	assert.NotContains(t, ddl, "INSERT OR UPDATE OR DELETE")
}
