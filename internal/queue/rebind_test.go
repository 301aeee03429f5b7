package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebindPostgresPlaceholders(t *testing.T) {
	s := &Store{dialect: dialectPostgres}
	assert.Equal(t, "DELETE FROM queue WHERE id IN ($1,$2,$3)", s.rebind("DELETE FROM queue WHERE id IN (?,?,?)"))

	lite := &Store{dialect: dialectSQLite}
	assert.Equal(t, "SELECT ?", lite.rebind("SELECT ?"))
}

func TestRedactDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://user:secret@db:5432/cw": "postgres://user:***@db:5432/cw",
		"postgres://user@db/cw":             "postgres://user@db/cw",
		"host=db user=cw":                   "host=db user=cw",
	}
	for in, want := range cases {
		assert.Equal(t, want, redactDSN(in), "redactDSN(%q)", in)
	}
}

func TestSplitStatementsDropsComments(t *testing.T) {
	assert.Len(t, splitStatements(schemaSQLite), 2)
}
