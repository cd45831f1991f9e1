package fulltext

import (
	"fmt"

	amanerrors "github.com/aman-cerp/segmentindex/internal/errors"
)

// wrapIO wraps an mmap/open/flush failure as a surfaced IO error.
func wrapIO(message string, cause error) error {
	if cause == nil {
		return nil
	}
	return amanerrors.IndexErrorWithCode(amanerrors.ErrCodeIndexIO, message, cause)
}

// errFormatVersion reports an unknown magic or version at open; fatal.
func errFormatVersion(message string) error {
	return amanerrors.IndexErrorWithCode(amanerrors.ErrCodeIndexFormat, message, nil)
}

// errMutationOnImmutable is returned (never panicked) by IndexDocument and
// GetVocabMut: the mmap layer is write-once by design.
var errMutationOnImmutable = amanerrors.IndexErrorWithCode(
	amanerrors.ErrCodeIndexImmutable,
	"mutation attempted on immutable mmap full-text index",
	nil,
)

// outOfBounds panics: an out-of-range access here is a programmer bug in a
// caller that already guarantees bounds (spec: OutOfBounds is asserted, not
// returned). Query paths never call this; they use the Option-like get()
// helpers which resolve out-of-range to "absent" instead.
func outOfBounds(what string, idx, length int) {
	panic(fmt.Sprintf("fulltext: %s index %d out of bounds (len %d)", what, idx, length))
}
