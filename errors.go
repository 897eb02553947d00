// Package oleobj extracts embedded OLE objects from Microsoft Office legacy
// binary documents and from OLE-wrapped streams inside modern Office Open
// XML containers and RTF.
//
// The package is organized around the OLE Structured Storage stack: a
// compound-file reader (see the cfb subpackage), a set of embedded-object
// record decoders (this package), a BIFF8 RC4 decryption pipeline (see
// biffcrypt), and an extraction policy that ties them together (see
// extract).
package oleobj

import "fmt"

// Kind classifies the reason an operation failed. Every error this module
// returns can be inspected with errors.As against *Error to recover one of
// these values.
type Kind int

const (
	// Format means the outer container is not a compound file at all
	// (bad magic, unsupported version).
	Format Kind = iota
	// CorruptFile means the outer shape is valid but the internals are
	// inconsistent: a short read, a cycle in a sector chain, an unknown
	// record layout where one is required.
	CorruptFile
	// NotFound means a named stream or storage is absent.
	NotFound
	// Disposed means a handle was used after its owning compound file
	// was closed.
	Disposed
	// DuplicateItem means the write path attempted to add a
	// colliding name.
	DuplicateItem
	// PasswordProtected means a BIFF8 FilePass record is present and no
	// valid password was supplied.
	PasswordProtected
	// ExcelConfiguration means an encryption scheme is present but
	// unsupported (XOR obfuscation, CryptoAPI v2/v3, Agile).
	ExcelConfiguration
	// ObjectTypeNotSupported means a recognized container holds an
	// unknown embedded type (e.g. an unexpected AnsiUserType).
	ObjectTypeNotSupported
	// FileTypeNotSupported means the input is not a format this module
	// handles at all (e.g. plain text).
	FileTypeNotSupported
)

func (k Kind) String() string {
	switch k {
	case Format:
		return "format"
	case CorruptFile:
		return "corrupt-file"
	case NotFound:
		return "not-found"
	case Disposed:
		return "disposed"
	case DuplicateItem:
		return "duplicate-item"
	case PasswordProtected:
		return "password-protected"
	case ExcelConfiguration:
		return "excel-configuration"
	case ObjectTypeNotSupported:
		return "object-type-not-supported"
	case FileTypeNotSupported:
		return "file-type-not-supported"
	default:
		return "unknown"
	}
}

// Error is the error type returned across this module's public surface.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errf builds an *Error of the given kind, wrapping err if non-nil.
func Errf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}
