// Package querysql compiles the incremental-sync ranking query to
// parameterized SQL for the supported store dialects.
//
// CRITICAL: every compiled query carries an explicit ORDER BY so results are
// deterministic across engines and repeated calls.
// CRITICAL: values are always parameterized, never interpolated. Only
// identifiers (validated and quoted) are spliced into the SQL text.
package querysql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/argosync/internal/content"
)

// Dialect identifies the SQL flavour of a store connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// ResolveDialect maps a database/sql driver name to a dialect.
// Unknown drivers fall back to SQLite.
func ResolveDialect(driver string) Dialect {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql", "mariadb":
		return DialectMySQL
	case "postgres", "postgresql", "pq":
		return DialectPostgres
	default:
		return DialectSQLite
	}
}

// Table maps the logical revision columns onto a concrete revision table.
type Table struct {
	Name            string
	TypeColumn      string
	IDColumn        string
	RevisionColumn  string
	LangcodeColumn  string
	ChangedColumn   string
	PublishedColumn string
}

// DefaultRevisionTable is the revision table created by the store schema.
var DefaultRevisionTable = Table{
	Name:            "entity_revisions",
	TypeColumn:      "type_id",
	IDColumn:        "id",
	RevisionColumn:  "revision_id",
	LangcodeColumn:  "langcode",
	ChangedColumn:   "changed",
	PublishedColumn: "published",
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Compiler produces dialect-specific SQL.
type Compiler struct {
	Dialect Dialect
}

// NewCompiler creates a compiler for the given dialect.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{Dialect: d}
}

// CompileRanked builds the query returning, for every entity of q.TypeID, the
// revision id of its top-ranked qualifying revision, ordered by revision id.
//
// Ranking within an entity partition matches content.RankedBefore:
// NULL changed first, then changed DESC, then revision id DESC.
// The CASE expression pins NULL placement instead of relying on engine
// defaults (SQLite/MySQL sort NULL lowest, Postgres highest).
func (c *Compiler) CompileRanked(t Table, q content.UpdatedQuery) (string, []any, error) {
	cols := []string{t.Name, t.TypeColumn, t.IDColumn, t.RevisionColumn, t.LangcodeColumn, t.ChangedColumn, t.PublishedColumn}
	quoted := make([]string, len(cols))
	for i, col := range cols {
		qc, err := c.QuoteIdent(col)
		if err != nil {
			return "", nil, fmt.Errorf("compile ranked: %w", err)
		}
		quoted[i] = qc
	}
	table, typeCol, idCol, revCol, langCol, changedCol, pubCol :=
		quoted[0], quoted[1], quoted[2], quoted[3], quoted[4], quoted[5], quoted[6]

	params := []any{q.TypeID, q.Langcode, q.Since}
	publishedFilter := ""
	if q.OnlyPublished {
		publishedFilter = fmt.Sprintf("\n\t\t  AND %s = ?", pubCol)
		params = append(params, 1)
	}

	sql := fmt.Sprintf(`
		WITH ranked_revision AS (
			SELECT %[4]s AS revision_id,
			       ROW_NUMBER() OVER (
			           PARTITION BY %[3]s
			           ORDER BY CASE WHEN %[6]s IS NULL THEN 0 ELSE 1 END ASC,
			                    %[6]s DESC,
			                    %[4]s DESC
			       ) AS rn
			FROM %[1]s
			WHERE %[2]s = ?
			  AND %[5]s = ?
			  AND (%[6]s > ? OR %[6]s IS NULL)%[7]s
		)
		SELECT revision_id
		FROM ranked_revision
		WHERE rn = 1
		ORDER BY revision_id ASC`,
		table, typeCol, idCol, revCol, langCol, changedCol, publishedFilter)

	return c.Rebind(sql), params, nil
}

// QuoteIdent validates and quotes an identifier for the dialect.
func (c *Compiler) QuoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	if c.Dialect == DialectMySQL {
		return "`" + name + "`", nil
	}
	return `"` + name + `"`, nil
}

// Rebind rewrites ? placeholders into the dialect's placeholder syntax.
// Question marks inside single-quoted literals are left alone.
func (c *Compiler) Rebind(query string) string {
	if c.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
