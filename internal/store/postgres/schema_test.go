package postgres

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// sqlKeywords are tokens that may appear in the store queries without naming
// a column.
var sqlKeywords = map[string]bool{
	"insert": true, "into": true, "values": true, "now": true,
	"select": true, "from": true, "where": true, "and": true, "not": true,
	"order": true, "by": true, "asc": true, "limit": true,
	"update": true, "set": true, "greatest": true, "any": true,
	"on": true, "conflict": true, "do": true, "true": true, "excluded": true,
}

var identRe = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)

// loadSchemaColumns parses the embedded migration DDL into a map of table
// name to the set of columns it defines.
func loadSchemaColumns(t *testing.T) map[string]map[string]bool {
	t.Helper()

	tables := make(map[string]map[string]bool)
	tableRe := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\);`)

	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return err
		}
		data, err := fs.ReadFile(migrationsFS, path)
		if err != nil {
			return err
		}
		for _, m := range tableRe.FindAllStringSubmatch(string(data), -1) {
			table, body := m[1], m[2]
			cols := make(map[string]bool)
			for _, line := range strings.Split(body, "\n") {
				fields := strings.Fields(line)
				if len(fields) < 2 {
					continue
				}
				cols[fields[0]] = true
			}
			tables[table] = cols
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, tables)
	return tables
}

// Every column a store query references must exist in the migration DDL, so
// query/schema drift fails here instead of at the first production insert.
func TestStoreQueriesMatchSchema(t *testing.T) {
	tables := loadSchemaColumns(t)

	queries := []struct {
		name  string
		table string
		query string
	}{
		{"insert_lot", "deposit_lots", insertLotSQL},
		{"list_open_lots", "deposit_lots", listOpenLotsSQL},
		{"consume_lot", "deposit_lots", consumeLotSQL},
		{"list_consumed_lots", "deposit_lots", listConsumedLotsSQL},
		{"mark_lots_archived", "deposit_lots", markLotsArchivedSQL},
		{"insert_withdrawal", "withdrawals", insertWithdrawalSQL},
		{"list_withdrawals", "withdrawals", listWithdrawalsSQL},
		{"load_checkpoint", "scan_checkpoints", loadCheckpointSQL},
		{"save_checkpoint", "scan_checkpoints", saveCheckpointSQL},
	}

	for _, q := range queries {
		t.Run(q.name, func(t *testing.T) {
			cols, ok := tables[q.table]
			require.True(t, ok, "table %s not defined in migrations", q.table)

			for _, ident := range identRe.FindAllString(q.query, -1) {
				if len(ident) < 2 {
					continue
				}
				lower := strings.ToLower(ident)
				if sqlKeywords[lower] || lower == q.table {
					continue
				}
				require.True(t, cols[lower],
					"query %s references column %q not defined on %s (defined: %v)",
					q.name, ident, q.table, keys(cols))
			}
		})
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
