package storage

import (
	"path/filepath"
	"testing"

	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ibm = models.ItemIdentity{Name: "IBM", ServiceName: "ELEKTRON"}

func entry(mtype, action, key string) models.DecodedRecord {
	r := models.NewRecord()
	r.Set(models.KeyService, ibm.ServiceName)
	r.Set(models.KeyRIC, ibm.Name)
	r.Set(models.KeyMType, mtype)
	r.Set(models.KeyAction, action)
	r.Set(models.KeyKey, key)
	return r
}

func newSQLite(t *testing.T) *SQLiteDB {
	t.Helper()
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBType: "sqlite", DBPath: filepath.Join(t.TempDir(), "test.db")}}
	db, err := NewSQLiteDB(cfg, logger.NewLogger(nil, "StorageTest"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

// -----------------------------------------------------------------------------

func TestSQLiteMembershipFollowsActions(t *testing.T) {
	db := newSQLite(t)

	require.NoError(t, db.SaveRecords([]models.DecodedRecord{
		models.NewItemRecord(ibm, models.MTypeRefresh),
		entry(models.MTypeImage, models.ActionAdd, "IBM.N"),
		entry(models.MTypeImage, models.ActionAdd, "IBM.O"),
	}))
	require.NoError(t, db.SaveRecords([]models.DecodedRecord{
		entry(models.MTypeUpdate, models.ActionDelete, "IBM.N"),
		entry(models.MTypeUpdate, models.ActionAdd, "IBM.L"),
		entry(models.MTypeUpdate, models.ActionUpdate, "IBM.O"),
		entry(models.MTypeUpdate, models.ActionDelete, "ABSENT"),
	}))

	keys, err := db.LoadSymbolList(ibm)
	require.NoError(t, err)
	assert.Equal(t, []string{"IBM.O", "IBM.L"}, keys)

	n, err := db.CountRecords(ibm)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestSQLiteRefreshMarkerResetsMembers(t *testing.T) {
	db := newSQLite(t)
	require.NoError(t, db.SaveRecords([]models.DecodedRecord{
		models.NewItemRecord(ibm, models.MTypeRefresh),
		entry(models.MTypeImage, models.ActionAdd, "OLD"),
	}))
	require.NoError(t, db.SaveRecords([]models.DecodedRecord{
		models.NewItemRecord(ibm, models.MTypeRefresh),
		entry(models.MTypeImage, models.ActionAdd, "NEW"),
	}))

	keys, err := db.LoadSymbolList(ibm)
	require.NoError(t, err)
	assert.Equal(t, []string{"NEW"}, keys)

	other, err := db.LoadSymbolList(models.ItemIdentity{Name: "MSFT", ServiceName: "ELEKTRON"})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteDuplicateAddKeepsOneMember(t *testing.T) {
	db := newSQLite(t)
	require.NoError(t, db.SaveRecords([]models.DecodedRecord{
		entry(models.MTypeImage, models.ActionAdd, "A"),
		entry(models.MTypeImage, models.ActionAdd, "A"),
	}))
	keys, err := db.LoadSymbolList(ibm)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, keys)
}

func TestSQLiteCleanupKeepsRecentRows(t *testing.T) {
	db := newSQLite(t)
	require.NoError(t, db.SaveRecords([]models.DecodedRecord{entry(models.MTypeImage, models.ActionAdd, "A")}))
	require.NoError(t, db.CleanupOldData(1))
	require.NoError(t, db.CleanupOldData(0))

	n, err := db.CountRecords(ibm)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUninitialisedStoreFails(t *testing.T) {
	db, err := NewSQLiteDB(&models.MConfig{}, logger.NewLogger(nil, "StorageTest"))
	require.NoError(t, err)
	assert.Error(t, db.SaveRecords([]models.DecodedRecord{entry(models.MTypeImage, models.ActionAdd, "A")}))
	assert.NoError(t, db.SaveRecords(nil))
	_, err = db.LoadSymbolList(ibm)
	assert.Error(t, err)
	assert.NoError(t, db.Close())
}

// -----------------------------------------------------------------------------

func TestPostgresDialectBinding(t *testing.T) {
	db := newPostgresDB(&models.MConfig{}, "observer", logger.NewLogger(nil, "StorageTest"))
	assert.Equal(t, `"observer"."symbol_members"`, db.membersTable())
	assert.Equal(t, "DELETE FROM t WHERE a = $1 AND b = $2", db.bind("DELETE FROM t WHERE a = ? AND b = ?"))

	lite := &recordStore{dialect: sqliteDialect}
	assert.Equal(t, "SELECT ?", lite.bind("SELECT ?"))
}

func TestFactory(t *testing.T) {
	log := logger.NewLogger(nil, "StorageTest")

	db, err := New(&models.MConfig{}, log)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteDB{}, db)

	db, err = New(&models.MConfig{Storage: models.MStorageConfig{DBType: "postgres"}}, log)
	require.NoError(t, err)
	assert.IsType(t, &PostgresDB{}, db)

	_, err = New(&models.MConfig{Storage: models.MStorageConfig{DBType: "mongo"}}, log)
	assert.Error(t, err)
}
