package css

import (
	"errors"
	"fmt"
)

var (
	// ErrUnterminatedComment is fatal, minification is aborted and no output
	// is produced.
	ErrUnterminatedComment = errors.New("unterminated comment")
	// ErrIncompleteSelector reports block which has no valid {} pairing or
	// has empty body. Block is dropped.
	ErrIncompleteSelector = errors.New("incomplete selector")
	// ErrIncompleteDeclaration reports property:value candidate without
	// separator, property or value. Declaration is dropped.
	ErrIncompleteDeclaration = errors.New("incomplete declaration")
	// ErrMalformedValue reports value fragment which could not be tokenized.
	// Fragment is kept as is.
	ErrMalformedValue = errors.New("malformed value")
)

// CommentError carries position of the comment opening marker which has no
// matching terminator.
type CommentError struct {
	Offset int
}

func (e *CommentError) Error() string {
	return fmt.Sprintf("%s at offset %d", ErrUnterminatedComment, e.Offset)
}

func (e *CommentError) Unwrap() error {
	return ErrUnterminatedComment
}
