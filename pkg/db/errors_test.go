package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "recurly_accounts_account_code_key"}
	wrapped := fmt.Errorf("insert: %w", pgErr)

	if !IsUniqueViolation(wrapped, "") {
		t.Fatalf("expected wrapped pg error to be detected")
	}
	if !IsUniqueViolation(wrapped, "recurly_accounts_account_code_key") {
		t.Fatalf("expected matching constraint to be detected")
	}
	if IsUniqueViolation(wrapped, "users_email_key") {
		t.Fatalf("different constraint should not match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("foreign key violations are not unique violations")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: recurly_accounts.account_code"), "") {
		t.Fatalf("expected sqlite message to be detected")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil is not a violation")
	}
}
