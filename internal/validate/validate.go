// Package validate implements busobj.NameValidator: the D-Bus grammar
// checks for object paths, interface/member names, and type signatures
// (spec.md §1, "Signature and name validators"), built on
// github.com/go-playground/validator/v10 the same way the daemon's own
// configuration structs are validated.
package validate

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	objectPathRe  = regexp.MustCompile(`^/$|^(/[A-Za-z0-9_]+)+$`)
	nameSegRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	ifaceRe       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)
	basicTypeCodeRe = regexp.MustCompile(`^[` + basicTypeCodes + `]$`)
)

// basicTypeCodes are the single-character D-Bus basic type codes
// (D-Bus Specification §Marshaling, "Summary of D-Bus types").
const basicTypeCodes = "ybnqiuxtdsogh"

// Validator implements busobj.NameValidator. It registers its grammar
// checks as named validator.Validate rules (`validate:"dbus_object_path"`,
// `dbus_interface`, `dbus_member`) for use in struct tags; its Is* methods
// check strings read off the wire directly.
type Validator struct {
	v *validator.Validate
}

// New constructs a Validator with the D-Bus grammar rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("dbus_object_path", func(fl validator.FieldLevel) bool {
		return objectPathRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("dbus_interface", func(fl validator.FieldLevel) bool {
		return ifaceRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("dbus_member", func(fl validator.FieldLevel) bool {
		return nameSegRe.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// IsObjectPath reports whether s is a well-formed D-Bus object path.
func (vd *Validator) IsObjectPath(s string) bool {
	return objectPathRe.MatchString(s)
}

// IsInterfaceName reports whether s is a well-formed interface name: at
// least two dot-separated segments, each a valid identifier.
func (vd *Validator) IsInterfaceName(s string) bool {
	return len(s) <= 255 && ifaceRe.MatchString(s)
}

// IsMemberName reports whether s is a well-formed method/property/signal
// member name.
func (vd *Validator) IsMemberName(s string) bool {
	return len(s) <= 255 && nameSegRe.MatchString(s)
}

// IsBasicType reports whether s is exactly one basic D-Bus type code.
func (vd *Validator) IsBasicType(s string) bool {
	return len(s) == 1 && basicTypeCodeRe.MatchString(s)
}

// IsSignatureSingle reports whether s is exactly one complete type
// (basic, container, or struct), as required for a PROPERTY entry.
func (vd *Validator) IsSignatureSingle(s string) bool {
	rest, ok := consumeCompleteType(s)
	return ok && rest == ""
}

// IsSignatureValid reports whether s is zero or more complete types
// concatenated, as required for method in/result signatures.
func (vd *Validator) IsSignatureValid(s string) bool {
	for s != "" {
		rest, ok := consumeCompleteType(s)
		if !ok {
			return false
		}
		s = rest
	}
	return true
}

// consumeCompleteType consumes exactly one complete type from the front
// of s, returning what remains and whether it succeeded. It implements
// the D-Bus Specification's signature grammar closely enough to reject
// malformed input without a full parser: balanced STRUCT parens, one
// element type per ARRAY, balanced DICT_ENTRY braces with exactly two
// element types.
func consumeCompleteType(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	switch s[0] {
	case 'a':
		return consumeCompleteType(s[1:])
	case '(':
		rest := s[1:]
		for {
			if rest == "" {
				return "", false
			}
			if rest[0] == ')' {
				return rest[1:], true
			}
			next, ok := consumeCompleteType(rest)
			if !ok {
				return "", false
			}
			rest = next
		}
	case '{':
		rest := s[1:]
		key, ok := consumeCompleteType(rest)
		if !ok || len(rest) == len(key) {
			return "", false
		}
		val, ok := consumeCompleteType(key)
		if !ok {
			return "", false
		}
		if val == "" || val[0] != '}' {
			return "", false
		}
		return val[1:], true
	case ')', '}':
		return "", false
	default:
		for i := 0; i < len(basicTypeCodes); i++ {
			if s[0] == basicTypeCodes[i] {
				return s[1:], true
			}
		}
		if s[0] == 'v' {
			return s[1:], true
		}
		return "", false
	}
}
