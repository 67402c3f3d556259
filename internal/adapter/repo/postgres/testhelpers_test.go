package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// rowStub implements pgx.Row
type rowStub struct{ scan func(dest ...any) error }

func (r rowStub) Scan(dest ...any) error { return r.scan(dest...) }

// rowsStub implements pgx.Rows over a fixed grid of values.
type rowsStub struct {
	rows [][]any
	idx  int
	err  error
}

func (r *rowsStub) Close()                                       {}
func (r *rowsStub) Err() error                                   { return r.err }
func (r *rowsStub) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *rowsStub) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rowsStub) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}
func (r *rowsStub) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d dest for %d values", len(dest), len(row))
	}
	for i, v := range row {
		if err := assign(dest[i], v); err != nil {
			return err
		}
	}
	return nil
}
func (r *rowsStub) Values() ([]any, error) { return nil, nil }
func (r *rowsStub) RawValues() [][]byte    { return nil }
func (r *rowsStub) Conn() *pgx.Conn        { return nil }

// assign copies v into the pointer dest, converting compatible types.
func assign(dest any, v any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return errors.New("scan dest must be a non-nil pointer")
	}
	elem := dv.Elem()
	if v == nil {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}
	sv := reflect.ValueOf(v)
	switch {
	case sv.Type().AssignableTo(elem.Type()):
		elem.Set(sv)
	case sv.Type().ConvertibleTo(elem.Type()):
		elem.Set(sv.Convert(elem.Type()))
	default:
		return fmt.Errorf("cannot scan %T into %T", v, dest)
	}
	return nil
}

// txStub implements pgx.Tx with pluggable QueryRow/Exec behavior.
type txStub struct {
	queryRow   func(sql string, args ...any) pgx.Row
	exec       func(sql string, args ...any) (pgconn.CommandTag, error)
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *txStub) Begin(_ context.Context) (pgx.Tx, error) { return t, nil }
func (t *txStub) Commit(_ context.Context) error {
	t.committed = true
	return t.commitErr
}
func (t *txStub) Rollback(_ context.Context) error {
	t.rolledBack = true
	return nil
}
func (t *txStub) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *txStub) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *txStub) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *txStub) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *txStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.exec == nil {
		return pgconn.CommandTag{}, nil
	}
	return t.exec(sql, args...)
}
func (t *txStub) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return &rowsStub{}, nil
}
func (t *txStub) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if t.queryRow == nil {
		return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
	}
	return t.queryRow(sql, args...)
}
func (t *txStub) Conn() *pgx.Conn { return nil }

// poolStub implements postgres.PgxPool for tests.
// Defined in a shared helper so multiple *_test.go files can reuse it
// without redefinitions.
type poolStub struct {
	exec     func(sql string, args ...any) (pgconn.CommandTag, error)
	queryRow func(sql string, args ...any) pgx.Row
	query    func(sql string, args ...any) (pgx.Rows, error)
	beginTx  func() (pgx.Tx, error)

	execSQL  []string
	execArgs [][]any
}

func (p *poolStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execSQL = append(p.execSQL, sql)
	p.execArgs = append(p.execArgs, args)
	if p.exec == nil {
		return pgconn.CommandTag{}, nil
	}
	return p.exec(sql, args...)
}

func (p *poolStub) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if p.queryRow == nil {
		return rowStub{scan: func(_ ...any) error { return errors.New("no row configured") }}
	}
	return p.queryRow(sql, args...)
}

func (p *poolStub) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if p.query == nil {
		return &rowsStub{}, nil
	}
	return p.query(sql, args...)
}

func (p *poolStub) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	if p.beginTx == nil {
		return nil, errors.New("no tx configured")
	}
	return p.beginTx()
}

// tag builds a CommandTag with the given rows-affected count.
func tag(verb string, n int) pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("%s %d", verb, n))
}

// scanFrom builds a rowStub scan func that assigns the given values.
func scanFrom(values []any) func(dest ...any) error {
	return func(dest ...any) error {
		if len(dest) != len(values) {
			return fmt.Errorf("scan: %d dest for %d values", len(dest), len(values))
		}
		for i, v := range values {
			if err := assign(dest[i], v); err != nil {
				return err
			}
		}
		return nil
	}
}
