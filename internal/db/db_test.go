package db

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSQLStatements(t *testing.T) {
	sql := `-- header
CREATE TABLE a (id INT);

-- second
CREATE TABLE b (
    id INT
);
`
	stmts := splitSQLStatements(sql)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", stmts[0])
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b ("))
}

func TestSchemaFileSplits(t *testing.T) {
	raw, err := os.ReadFile("../../schema.sql")
	require.NoError(t, err)

	stmts := splitSQLStatements(string(raw))
	require.Len(t, stmts, 7)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
	}
}

func TestOperation(t *testing.T) {
	assert.Equal(t, "SELECT", operation("  select id FROM orders"))
	assert.Equal(t, "UPDATE", operation("UPDATE\n products SET"))
	assert.Equal(t, "COMMIT", operation("commit"))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}
