package dbtable

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"
	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/format"
	"github.com/pingcap/tidb/parser/model"
)

// Dialect selects how SQL is rendered for a connection.
type Dialect int

const (
	// DialectPostgres renders with double-quoted identifiers. It also serves
	// CockroachDB and SQLite.
	DialectPostgres Dialect = iota
	DialectMySQL
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	}
	return fmt.Sprintf("Dialect(%d)", int(d))
}

type Name struct {
	Schema tree.Name
	Table  tree.Name
}

// ParseName splits "schema.table" into a Name. A name without a dot has no
// explicit schema.
func ParseName(s string) Name {
	if idx := strings.LastIndexByte(s, '.'); idx >= 0 {
		return Name{Schema: tree.Name(s[:idx]), Table: tree.Name(s[idx+1:])}
	}
	return Name{Table: tree.Name(s)}
}

func (n Name) MakeTableName() tree.TableName {
	if n.Schema == "" {
		return tree.MakeUnqualifiedTableName(n.Table)
	}
	return tree.MakeTableNameFromPrefix(tree.ObjectNamePrefix{
		SchemaName:     n.Schema,
		ExplicitSchema: true,
	}, n.Table)
}

func (n Name) NewTableName() *tree.TableName {
	tn := n.MakeTableName()
	return &tn
}

func (n Name) SafeString() string {
	if n.Schema == "" {
		return string(n.Table)
	}
	return fmt.Sprintf("%s.%s", n.Schema, n.Table)
}

func (n Name) String() string {
	return n.SafeString()
}

// SelectSQL renders a query returning the given columns of the table, in
// order. No ordering clause is added: rows are compared as multisets.
func SelectSQL(d Dialect, n Name, columns []tree.Name) (string, error) {
	if n.Table == "" {
		return "", errors.Newf("empty table name")
	}
	if len(columns) == 0 {
		return "", errors.Newf("no columns to select from %s", n.SafeString())
	}
	switch d {
	case DialectPostgres:
		f := tree.NewFmtCtx(tree.FmtSimple)
		f.FormatNode(newPGSelect(n, columns))
		return f.CloseAndGetString(), nil
	case DialectMySQL:
		var sb strings.Builder
		if err := newMySQLSelect(n, columns).Restore(format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)); err != nil {
			return "", errors.Wrapf(err, "error generating MySQL statement for %s", n.SafeString())
		}
		return sb.String(), nil
	}
	return "", errors.AssertionFailedf("unknown dialect: %s", d)
}

func newPGSelect(n Name, columns []tree.Name) *tree.Select {
	selectClause := &tree.SelectClause{
		From: tree.From{
			Tables: tree.TableExprs{n.NewTableName()},
		},
	}
	for _, col := range columns {
		selectClause.Exprs = append(
			selectClause.Exprs,
			tree.SelectExpr{
				Expr: tree.NewUnresolvedName(string(col)),
			},
		)
	}
	return &tree.Select{
		Select: selectClause,
	}
}

func newMySQLSelect(n Name, columns []tree.Name) *ast.SelectStmt {
	fields := &ast.FieldList{
		Fields: make([]*ast.SelectField, len(columns)),
	}
	for i, col := range columns {
		fields.Fields[i] = &ast.SelectField{
			Expr: &ast.ColumnNameExpr{
				Name: &ast.ColumnName{
					Name: model.NewCIStr(string(col)),
				},
			},
		}
	}
	tn := &ast.TableName{Name: model.NewCIStr(string(n.Table))}
	if n.Schema != "" {
		tn.Schema = model.NewCIStr(string(n.Schema))
	}
	return &ast.SelectStmt{
		SelectStmtOpts: &ast.SelectStmtOpts{
			SQLCache: true,
		},
		From: &ast.TableRefsClause{
			TableRefs: &ast.Join{
				Left: &ast.TableSource{
					Source: tn,
				},
			},
		},
		Fields: fields,
		Kind:   ast.SelectStmtKindSelect,
	}
}
