package warehouse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HiepPham1412/lending-etl/internal/schema"
	"github.com/HiepPham1412/lending-etl/internal/storage"
)

func TestCreateTable(t *testing.T) {
	stmt := CreateTable(schema.StateDemo)
	lines := strings.Split(stmt, "\n")

	assert.Equal(t, "CREATE TABLE IF NOT EXISTS state_demo (", lines[0])
	assert.Equal(t, ")", lines[len(lines)-1])
	require.Len(t, lines, len(schema.StateDemo.Columns)+2)

	assert.Equal(t, []string{"state_code", "VARCHAR(2)", "NOT", "NULL,"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"state_name", "VARCHAR(256),"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"median_age", "DOUBLE", "PRECISION,"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"pop_white", "BIGINT"}, strings.Fields(lines[len(lines)-2]))
}

func TestCreateTableColumnOrderMatchesFiles(t *testing.T) {
	for _, d := range schema.All() {
		stmt := CreateTable(d)
		lines := strings.Split(stmt, "\n")
		var got []string
		for _, l := range lines[1 : len(lines)-1] {
			got = append(got, strings.Fields(l)[0])
		}
		assert.Equal(t, d.ColumnNames(), got, d.Name)
	}
}

func TestLoansDDLTypes(t *testing.T) {
	stmt := CreateTable(schema.Loans)
	assert.Contains(t, stmt, "loan_id")
	assert.Regexp(t, `loan_id\s+BIGINT NOT NULL`, stmt)
	assert.Regexp(t, `issue_d\s+DATE`, stmt)
	assert.Regexp(t, `term\s+INTEGER`, stmt)
	assert.Regexp(t, `descrb\s+VARCHAR\(65535\)`, stmt)
	assert.NotContains(t, stmt, " desc ")
}

func TestDropStatements(t *testing.T) {
	stmts := DropStatements(schema.All())
	require.Len(t, stmts, 7)
	assert.Equal(t, "DROP TABLE IF EXISTS loans", stmts[0])
	assert.Equal(t, "DROP TABLE IF EXISTS state_demo", stmts[6])
}

func TestCopy(t *testing.T) {
	base := "s3://lending-club-project/transformed_data"
	uri := func(d schema.Dataset) string { return storage.Join(base, d.Path) }
	stmts := CopyStatements(schema.All(), uri, "arn:aws:iam::123:role/redshift")
	require.Len(t, stmts, 7)

	assert.Equal(t, "COPY loans\n"+
		"FROM 's3://lending-club-project/transformed_data/loans/'\n"+
		"IAM_ROLE 'arn:aws:iam::123:role/redshift'\n"+
		"FORMAT AS PARQUET", stmts[0])
	assert.Equal(t, "COPY state_demo\n"+
		"FROM 's3://lending-club-project/transformed_data/demographic/state_demo.csv'\n"+
		"IAM_ROLE 'arn:aws:iam::123:role/redshift'\n"+
		"FORMAT AS CSV IGNOREHEADER 1", stmts[6])
}

func TestCopyQuotes(t *testing.T) {
	stmt := Copy(schema.Hardship, "s3://b/o'brien/hardship/", "role'x")
	assert.Contains(t, stmt, "FROM 's3://b/o''brien/hardship/'\n")
	assert.Contains(t, stmt, "IAM_ROLE 'role''x'")
}

func TestCopyRewritesHadoopSchemes(t *testing.T) {
	stmt := Copy(schema.Loans, "s3n://lending-club-project//transformed_data/loans", "role")
	assert.Contains(t, stmt, "FROM 's3://lending-club-project/transformed_data/loans/'\n")

	stmt = Copy(schema.StateDemo, "s3a://bkt/out/demographic/state_demo.csv", "role")
	assert.Contains(t, stmt, "FROM 's3://bkt/out/demographic/state_demo.csv'\n")

	stmt = Copy(schema.Loans, "/data/out/loans", "role")
	assert.Contains(t, stmt, "FROM '/data/out/loans/'\n")
}

func TestScript(t *testing.T) {
	got := Script([]string{"DROP TABLE IF EXISTS a", "DROP TABLE IF EXISTS b"})
	assert.Equal(t, "DROP TABLE IF EXISTS a;\n\nDROP TABLE IF EXISTS b;\n\n", got)
	assert.Empty(t, Script(nil))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "COPY loans", firstLine("COPY loans\nFROM 'x'"))
	assert.Equal(t, "DROP TABLE IF EXISTS a", firstLine("  DROP TABLE IF EXISTS a"))
}
