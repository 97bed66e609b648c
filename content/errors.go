package content

import (
	"errors"
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Text codes attached to the errors returned by the store.
const (
	TextCodeItemNotFound     = "ITEM_NOT_FOUND"
	TextCodeTagNotFound      = "TAG_NOT_FOUND"
	TextCodeValidation       = "VALIDATION_FAILED"
	TextCodeTagInactive      = "TAG_INACTIVE"
	TextCodeRelationExists   = "TAG_RELATION_EXISTS"
	TextCodeRelationNotFound = "TAG_RELATION_NOT_FOUND"
	TextCodeTitleExists      = "TITLE_EXISTS"
	TextCodeLockConflict     = "LOCK_CONFLICT"
	TextCodeStoreFailure     = "STORE_FAILURE"
)

func itemNotFound(id ItemID) error {
	return goerrors.New(fmt.Sprintf("script %s not found", id), goerrors.CategoryNotFound).
		WithTextCode(TextCodeItemNotFound).
		WithMetadata(map[string]any{"id": id.String()})
}

func tagNotFound(id TagID) error {
	return goerrors.New(fmt.Sprintf("tag %d not found", id), goerrors.CategoryNotFound).
		WithTextCode(TextCodeTagNotFound).
		WithMetadata(map[string]any{"tag_id": id})
}

func tagInactive(id TagID) error {
	return goerrors.NewValidation("cannot associate an inactive tag",
		goerrors.FieldError{Field: "tag", Message: "tag is not active", Value: id},
	).WithTextCode(TextCodeTagInactive)
}

func relationExists(itemID ItemID, tagID TagID) error {
	return goerrors.New("tag relation already exists", goerrors.CategoryConflict).
		WithTextCode(TextCodeRelationExists).
		WithMetadata(map[string]any{"item_id": itemID.String(), "tag_id": tagID})
}

func relationNotFound(itemID ItemID, tagID TagID) error {
	return goerrors.New(fmt.Sprintf("script %s has no tag %d", itemID, tagID), goerrors.CategoryNotFound).
		WithTextCode(TextCodeRelationNotFound).
		WithMetadata(map[string]any{"item_id": itemID.String(), "tag_id": tagID})
}

func titleExists(title string) error {
	return goerrors.New(fmt.Sprintf("title %q already has versions", title), goerrors.CategoryConflict).
		WithTextCode(TextCodeTitleExists).
		WithMetadata(map[string]any{"title": title})
}

func lockConflict(op string, attempts int, err error) error {
	return goerrors.Wrap(err, goerrors.CategoryConflict, fmt.Sprintf("%s: gave up after %d attempts", op, attempts)).
		WithTextCode(TextCodeLockConflict).
		WithMetadata(map[string]any{"op": op, "attempts": attempts})
}

func storeFailure(op string, err error) error {
	var typed *goerrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, op+" failed").
		WithTextCode(TextCodeStoreFailure)
}

// fromValidation turns ozzo field errors into a field-keyed validation error.
func fromValidation(err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "validation failed to run")
	}

	names := make([]string, 0, len(fieldErrs))
	for name := range fieldErrs {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]goerrors.FieldError, 0, len(names))
	for _, name := range names {
		fields = append(fields, goerrors.FieldError{Field: name, Message: fieldErrs[name].Error()})
	}
	return goerrors.NewValidation("invalid script", fields...).WithTextCode(TextCodeValidation)
}

func asError(err error) (*goerrors.Error, bool) {
	var typed *goerrors.Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsNotFound reports whether err is a missing item or tag.
func IsNotFound(err error) bool {
	e, ok := asError(err)
	return ok && e.Category == goerrors.CategoryNotFound
}

// IsValidation reports whether err is a field validation failure.
func IsValidation(err error) bool {
	e, ok := asError(err)
	return ok && e.Category == goerrors.CategoryValidation
}

// IsConflict reports whether err is a duplicate relation, an existing title
// or an exhausted retry budget.
func IsConflict(err error) bool {
	e, ok := asError(err)
	return ok && e.Category == goerrors.CategoryConflict
}

// IsTagInactive reports whether err rejects an inactive tag.
func IsTagInactive(err error) bool {
	e, ok := asError(err)
	return ok && e.TextCode == TextCodeTagInactive
}

// IsDuplicateRelation reports whether err rejects an existing (item, tag) pair.
func IsDuplicateRelation(err error) bool {
	e, ok := asError(err)
	return ok && e.TextCode == TextCodeRelationExists
}

// IsRelationNotFound reports whether err names an (item, tag) pair that is
// not related.
func IsRelationNotFound(err error) bool {
	e, ok := asError(err)
	return ok && e.TextCode == TextCodeRelationNotFound
}

// IsLockConflict reports whether err is an exhausted retry budget.
func IsLockConflict(err error) bool {
	e, ok := asError(err)
	return ok && e.TextCode == TextCodeLockConflict
}

// ValidationFields returns the field-keyed messages of a validation error.
func ValidationFields(err error) map[string]string {
	e, ok := asError(err)
	if !ok || e.Category != goerrors.CategoryValidation {
		return nil
	}
	out := make(map[string]string, len(e.ValidationErrors))
	for _, fe := range e.ValidationErrors {
		out[fe.Field] = fe.Message
	}
	return out
}

// IsTransient reports whether err is a retryable store condition: SQLite
// busy/locked, or a Postgres deadlock, lock timeout or serialization failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40P01", "55P03", "40001":
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// lostRaceError marks a version insert that collided on (title, version).
type lostRaceError struct{ err error }

func (e *lostRaceError) Error() string { return "version already taken: " + e.err.Error() }
func (e *lostRaceError) Unwrap() error { return e.err }
