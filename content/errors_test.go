package content

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
		{name: "sqlite busy", err: sqlite3.Error{Code: sqlite3.ErrBusy}, want: true},
		{name: "sqlite locked wrapped", err: fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrLocked}), want: true},
		{name: "sqlite constraint", err: sqlite3.Error{Code: sqlite3.ErrConstraint}, want: false},
		{name: "pg deadlock", err: &pq.Error{Code: "40P01"}, want: true},
		{name: "pg lock timeout", err: &pq.Error{Code: "55P03"}, want: true},
		{name: "pg serialization", err: fmt.Errorf("commit: %w", &pq.Error{Code: "40001"}), want: true},
		{name: "pg unique", err: &pq.Error{Code: "23505"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "sqlite unique", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, want: true},
		{name: "sqlite primary key", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, want: true},
		{name: "sqlite not null", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, want: false},
		{name: "pg unique", err: &pq.Error{Code: "23505"}, want: true},
		{name: "other", err: errors.New("nope"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		err      error
		category goerrors.Category
		code     string
	}{
		{name: "item not found", err: itemNotFound(id), category: goerrors.CategoryNotFound, code: TextCodeItemNotFound},
		{name: "tag not found", err: tagNotFound(7), category: goerrors.CategoryNotFound, code: TextCodeTagNotFound},
		{name: "tag inactive", err: tagInactive(7), category: goerrors.CategoryValidation, code: TextCodeTagInactive},
		{name: "relation exists", err: relationExists(id, 7), category: goerrors.CategoryConflict, code: TextCodeRelationExists},
		{name: "relation not found", err: relationNotFound(id, 7), category: goerrors.CategoryNotFound, code: TextCodeRelationNotFound},
		{name: "title exists", err: titleExists("A"), category: goerrors.CategoryConflict, code: TextCodeTitleExists},
		{name: "lock conflict", err: lockConflict("op", 3, errors.New("busy")), category: goerrors.CategoryConflict, code: TextCodeLockConflict},
		{name: "store failure", err: storeFailure("op", errors.New("disk")), category: goerrors.CategoryInternal, code: TextCodeStoreFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var typed *goerrors.Error
			if !errors.As(tt.err, &typed) {
				t.Fatalf("expected *errors.Error, got %T", tt.err)
			}
			if typed.Category != tt.category {
				t.Errorf("expected category %v, got %v", tt.category, typed.Category)
			}
			if typed.TextCode != tt.code {
				t.Errorf("expected text code %q, got %q", tt.code, typed.TextCode)
			}
		})
	}
}

func TestStoreFailure_KeepsTypedErrors(t *testing.T) {
	original := itemNotFound(uuid.New())

	if got := storeFailure("get", original); got != original {
		t.Errorf("expected typed errors to pass through unchanged")
	}
}

func TestLockConflict_Unwraps(t *testing.T) {
	cause := &pq.Error{Code: "55P03"}
	err := lockConflict("create new version", 3, cause)

	var pgErr *pq.Error
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected the cause to be reachable")
	}
	if !IsLockConflict(err) {
		t.Errorf("expected IsLockConflict")
	}
}
