package dbmng

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPolicy_DenylistIgnoresAllowWrite(t *testing.T) {
	queries := []string{
		"DROP TABLE clock_records",
		"drop table clock_records",
		"TRUNCATE clock_records",
		"ALTER TABLE clock_records ADD COLUMN x INT",
		"CREATE TABLE x (id INT)",
		"GRANT ALL ON *.* TO 'x'",
		"REVOKE ALL ON *.* FROM 'x'",
		"RENAME TABLE a TO b",
		"SELECT 1; DROP TABLE clock_records",
		"SELECT 1 /*!DROP*/",
		"SELECT 'drop'",
		"SeLeCt 1;\n\tDrOp\tTABLE x",
	}
	for _, q := range queries {
		for _, allow := range []bool{false, true} {
			err := checkPolicy(q, allow)
			var api *APIError
			if assert.True(t, errors.As(err, &api), "%q allow=%v", q, allow) {
				assert.Equal(t, CodeForbiddenOperation, api.Code)
			}
		}
	}
}

func TestCheckPolicy_NamesOffendingKeyword(t *testing.T) {
	err := checkPolicy("select * from t; truncate t", true)
	assert.EqualError(t, err, "FORBIDDEN_OPERATION: operation not allowed: TRUNCATE")
}

func TestCheckPolicy_WriteGate(t *testing.T) {
	for _, q := range []string{
		"DELETE FROM records",
		"insert into clock_records (worker_name) values ('a')",
		"UPDATE clock_records SET action = 'check-out'",
	} {
		err := checkPolicy(q, false)
		var api *APIError
		if assert.True(t, errors.As(err, &api), q) {
			assert.Equal(t, CodeForbiddenOperation, api.Code)
		}
		assert.NoError(t, checkPolicy(q, true), q)
	}
}

func TestCheckPolicy_IdentifiersAreNotKeywords(t *testing.T) {
	for _, q := range []string{
		"SELECT created_at, updated_by FROM clock_records",
		"SELECT id FROM deleted_items",
		"SELECT dropped_count FROM stats",
	} {
		assert.NoError(t, checkPolicy(q, false), q)
	}
}

func TestIsProjection(t *testing.T) {
	assert.True(t, isProjection("SELECT 1"))
	assert.True(t, isProjection("  select * from t"))
	assert.True(t, isProjection("(SELECT 1)"))
	assert.True(t, isProjection("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.False(t, isProjection("SELECTED"))
	assert.False(t, isProjection("DELETE FROM t"))
	assert.False(t, isProjection("UPDATE t SET a = 1"))
}
