package untis

import (
	"errors"
	"fmt"
)

// ParseErrorKind enumerates the ways a timetable payload can be rejected.
type ParseErrorKind string

const (
	ParseMissingField        ParseErrorKind = "MISSING_FIELD"
	ParseTypeMismatch        ParseErrorKind = "TYPE_MISMATCH"
	ParseUnknownEnumValue    ParseErrorKind = "UNKNOWN_ENUM_VALUE"
	ParseUnresolvedReference ParseErrorKind = "UNRESOLVED_REFERENCE"
	ParseMalformedValue      ParseErrorKind = "MALFORMED_VALUE"
	ParseUnknownElementKind  ParseErrorKind = "UNKNOWN_ELEMENT_KIND"
)

// ParseError reports a single reason the timetable payload could not be
// decoded. Extraction is fail-fast: the first ParseError aborts the whole
// parse and no partial period list is returned.
type ParseError struct {
	Kind    ParseErrorKind
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: field '%s'", e.Kind, e.Field)
}

func missingField(field string) *ParseError {
	return &ParseError{Kind: ParseMissingField, Field: field, Message: fmt.Sprintf("field '%s' missing in timetable payload", field)}
}

func typeMismatch(field, want string) *ParseError {
	return &ParseError{Kind: ParseTypeMismatch, Field: field, Message: fmt.Sprintf("field '%s' is not of type '%s'", field, want)}
}

func unknownEnumValue(field, value string) *ParseError {
	return &ParseError{Kind: ParseUnknownEnumValue, Field: field, Message: fmt.Sprintf("field '%s' holds unknown value %q", field, value)}
}

func unresolvedReference(kind string, id int64) *ParseError {
	return &ParseError{Kind: ParseUnresolvedReference, Field: "id", Message: fmt.Sprintf("%s with id %d has not been found in the catalog", kind, id)}
}

func malformedValue(field, detail string) *ParseError {
	return &ParseError{Kind: ParseMalformedValue, Field: field, Message: fmt.Sprintf("field '%s' holds a malformed value: %s", field, detail)}
}

func unknownElementKind(tag int64) *ParseError {
	return &ParseError{Kind: ParseUnknownElementKind, Field: "type", Message: fmt.Sprintf("unknown element type %d on period element", tag)}
}

// ErrNoTimetable marks a payload whose elementPeriods map has no entry for
// the requesting person.
var ErrNoTimetable = errors.New("no timetable found for this person")

// ErrInvalidCredentials marks an authenticate call the upstream rejected.
var ErrInvalidCredentials = errors.New("webuntis rejected the credentials")
