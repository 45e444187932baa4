package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGDetail is the postgres side of a failure, from either driver.
type PGDetail struct {
	SQLState   string `json:"sqlstate"`
	Class      string `json:"class,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Transient reports whether postgres expects the statement to succeed on
// retry: serialization failures, deadlocks and dropped connections.
func (d *PGDetail) Transient() bool {
	if d == nil {
		return false
	}
	switch d.SQLState {
	case "40001", "40P01":
		return true
	}
	return d.Class == "connection_exception"
}

// Diagnostic is the log-only description of an error. It never reaches clients.
type Diagnostic struct {
	Message string
	Code    Code
	Chain   []string
	PG      *PGDetail
}

var sqlStateClasses = map[string]string{
	"08": "connection_exception",
	"22": "data_exception",
	"23": "integrity_constraint_violation",
	"25": "invalid_transaction_state",
	"40": "transaction_rollback",
	"42": "syntax_error_or_access_rule_violation",
	"53": "insufficient_resources",
	"57": "operator_intervention",
}

// Describe unwraps err into a Diagnostic.
func Describe(err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}
	d := Diagnostic{Message: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.PG = postgresDetail(err)
	return d
}

// Fields flattens the diagnostic for structured logging, leaving out empty
// values.
func (d Diagnostic) Fields() map[string]any {
	fields := map[string]any{"error": d.Message}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if len(d.Chain) > 1 {
		fields["error_chain"] = d.Chain
	}
	if d.PG == nil {
		return fields
	}
	fields["pg_sqlstate"] = d.PG.SQLState
	for key, value := range map[string]string{
		"pg_class":      d.PG.Class,
		"pg_constraint": d.PG.Constraint,
		"pg_table":      d.PG.Table,
		"pg_column":     d.PG.Column,
		"pg_detail":     d.PG.Detail,
		"pg_message":    d.PG.Message,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

func postgresDetail(err error) *PGDetail {
	var detail *PGDetail
	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stdErrors.As(err, &pgxErr):
		detail = &PGDetail{
			SQLState:   pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	case stdErrors.As(err, &pqErr):
		detail = &PGDetail{
			SQLState:   string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	default:
		return nil
	}
	if len(detail.SQLState) >= 2 {
		detail.Class = sqlStateClasses[detail.SQLState[:2]]
	}
	return detail
}
