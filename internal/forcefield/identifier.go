package forcefield

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedIdentifier indicates an identifier that does not follow
	// Exponent:Elem=<e>,AMom=<m>,...,Con=0 and cannot be classified.
	ErrMalformedIdentifier = errors.New("forcefield: malformed parameter identifier")

	// ErrContraction indicates a classifiable exponent whose contraction
	// field is missing or nonzero.
	ErrContraction = errors.New("forcefield: more than one contraction coefficient")
)

// IdentifierError reports a problem with the identifier of one parameter.
type IdentifierError struct {
	Index int
	ID    string
	Err   error
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("parameter %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e *IdentifierError) Unwrap() error { return e.Err }

// ExponentKey is the classification of a basis-set exponent parameter.
type ExponentKey struct {
	Elem   string
	AMom   string
	Con    string
	Fields map[string]string
}

// Group returns the element + angular momentum key shared by fused exponents.
func (k ExponentKey) Group() string { return k.Elem + "_" + k.AMom }

// ParseExponentID parses identifiers like Exponent:Elem=H,AMom=D,Bas=0,Con=0.
// An error wrapping ErrContraction still comes with a usable key; one wrapping
// ErrMalformedIdentifier does not.
func ParseExponentID(id string) (ExponentKey, error) {
	if !strings.Contains(id, "Exponent") || len(strings.Fields(id)) != 1 {
		return ExponentKey{}, fmt.Errorf("%w: expected Exponent:Elem=H,AMom=D,Bas=0,Con=0", ErrMalformedIdentifier)
	}
	_, body, ok := strings.Cut(id, ":")
	if !ok || body == "" {
		return ExponentKey{}, fmt.Errorf("%w: missing field list", ErrMalformedIdentifier)
	}

	fields := make(map[string]string)
	for _, kv := range strings.Split(body, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return ExponentKey{}, fmt.Errorf("%w: field %q is not key=value", ErrMalformedIdentifier, kv)
		}
		fields[k] = v
	}

	key := ExponentKey{Elem: fields["Elem"], AMom: fields["AMom"], Con: fields["Con"], Fields: fields}
	if key.Elem == "" || key.AMom == "" {
		return ExponentKey{}, fmt.Errorf("%w: Elem and AMom are required", ErrMalformedIdentifier)
	}
	if con, ok := fields["Con"]; !ok || con != "0" {
		return key, fmt.Errorf("%w: Con=%q", ErrContraction, con)
	}
	return key, nil
}
