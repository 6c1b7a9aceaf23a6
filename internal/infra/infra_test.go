package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "restaurant_tables_number_key"})
	other := &pgconn.PgError{Code: "23503", ConstraintName: "orders_table_id_fkey"}

	if !IsUniqueViolation(dup, "") || !IsUniqueViolation(dup, "restaurant_tables_number_key") {
		t.Fatal("wrapped unique violation not detected")
	}
	if IsUniqueViolation(dup, "cash_registers_one_open") {
		t.Fatal("constraint name must match when given")
	}
	if IsUniqueViolation(other, "") || IsUniqueViolation(errors.New("boom"), "") {
		t.Fatal("non-unique errors must not match")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	missing := fmt.Errorf("insert order: %w", &pgconn.PgError{Code: "23503", ConstraintName: "orders_customer_id_fkey"})
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "orders_customer_id_fkey"}

	if !IsForeignKeyViolation(missing, "") || !IsForeignKeyViolation(missing, "orders_customer_id_fkey") {
		t.Fatal("wrapped foreign key violation not detected")
	}
	if IsForeignKeyViolation(missing, "orders_table_id_fkey") {
		t.Fatal("constraint name must match when given")
	}
	if IsForeignKeyViolation(dup, "") || IsForeignKeyViolation(errors.New("boom"), "") {
		t.Fatal("other errors must not match")
	}
}

func TestFirebaseTokenRole(t *testing.T) {
	cases := []struct {
		token *FirebaseToken
		want  string
	}{
		{&FirebaseToken{UID: "u1", Claims: map[string]interface{}{"role": "admin"}}, "admin"},
		{&FirebaseToken{UID: "u1", Claims: map[string]interface{}{"role": 3}}, ""},
		{&FirebaseToken{UID: "u1"}, ""},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := tc.token.Role(); got != tc.want {
			t.Errorf("Role() = %q, want %q", got, tc.want)
		}
	}
}
