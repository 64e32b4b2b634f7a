// Package warehouse generates and runs the warehouse DDL and COPY statements for
// the published datasets.
package warehouse

import (
	"fmt"
	"strings"

	"github.com/HiepPham1412/lending-etl/internal/schema"
	"github.com/HiepPham1412/lending-etl/internal/storage"
)

// DropTable returns the statement dropping d's table.
func DropTable(d schema.Dataset) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.Name)
}

// CreateTable returns the CREATE TABLE statement for d, with the columns in file order.
func CreateTable(d schema.Dataset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", d.Name)
	for i, c := range d.Columns {
		fmt.Fprintf(&b, "    %-28s %s", c.Name, c.SQLType())
		if c.NotNull {
			b.WriteString(" NOT NULL")
		}
		if i < len(d.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// Copy returns the statement loading d from uri with the given IAM role. S3 URIs
// in the s3n and s3a schemes are rewritten to s3, the only scheme COPY reads.
func Copy(d schema.Dataset, uri, iamRole string) string {
	from := uri
	if bucket, key, err := storage.ParseS3URI(uri); err == nil {
		from = "s3://" + bucket + "/" + key
	}
	format := "FORMAT AS PARQUET"
	if d.Format == schema.CSV {
		format = "FORMAT AS CSV IGNOREHEADER 1"
	} else if !strings.HasSuffix(from, "/") {
		// Parquet datasets are directories; COPY must not also match loans_old/.
		from += "/"
	}
	return fmt.Sprintf("COPY %s\nFROM %s\nIAM_ROLE %s\n%s", d.Name, quote(from), quote(iamRole), format)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// DropStatements returns a drop for every dataset, in order.
func DropStatements(datasets []schema.Dataset) []string {
	out := make([]string, len(datasets))
	for i, d := range datasets {
		out[i] = DropTable(d)
	}
	return out
}

// CreateStatements returns a create for every dataset, in order.
func CreateStatements(datasets []schema.Dataset) []string {
	out := make([]string, len(datasets))
	for i, d := range datasets {
		out[i] = CreateTable(d)
	}
	return out
}

// CopyStatements returns a COPY for every dataset, reading from uri(d).
func CopyStatements(datasets []schema.Dataset, uri func(schema.Dataset) string, iamRole string) []string {
	out := make([]string, len(datasets))
	for i, d := range datasets {
		out[i] = Copy(d, uri(d), iamRole)
	}
	return out
}

// Script renders statements as a single SQL script.
func Script(stmts []string) string {
	var b strings.Builder
	for _, s := range stmts {
		b.WriteString(s)
		b.WriteString(";\n\n")
	}
	return b.String()
}
