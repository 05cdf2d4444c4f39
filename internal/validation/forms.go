package validation

import (
	"context"
	"strings"

	"kinship/internal/models"
)

// Limits shared by the form validators and the schema.
const (
	MaxUsernameLength = 50
	MaxPasswordLength = 50
	MaxHeaderLength   = 255
)

// Messages reported by the built-in validators.
const (
	MsgUsernameRequired        = "Please provide a value for Username"
	MsgUsernameTooLong         = "Username must not be more than 50 characters long"
	MsgUsernameTaken           = "The provided Username is already in use by another account"
	MsgPasswordRequired        = "Please provide a value for Password"
	MsgPasswordTooLong         = "Password must not be more than 50 characters long"
	MsgPasswordComplexity      = `Password must contain at least 1 lowercase letter, uppercase letter, number, and special character (i.e. "!@#$%^&*")`
	MsgConfirmPasswordRequired = "Please provide a value for Confirm Password"
	MsgConfirmPasswordTooLong  = "Confirm Password must not be more than 50 characters long"
	MsgConfirmPasswordMismatch = "Confirm Password does not match Password"
	MsgCommentRequired         = "Please provide value for the Comment field."
	MsgCommentTooLong          = "Comment cannot be more than 255 characters long"
	MsgCommentPostInvalid      = "Please provide a valid post for the Comment"
	MsgHeaderRequired          = "Please provide a value for Header"
	MsgHeaderTooLong           = "Header must not be more than 255 characters long"
	MsgContentRequired         = "Please provide a value for Content"
	MsgLoginFailed             = "Login failed for the provided username and password"
)

// UsernameExistsFunc reports whether a username is already registered.
type UsernameExistsFunc func(ctx context.Context, username string) (bool, error)

// SignUpValidator checks username, password and confirmPassword. exists backs
// the uniqueness rule; the unique index on users.username remains the final
// guard against concurrent sign-ups.
func SignUpValidator(exists UsernameExistsFunc) *Validator {
	return New(
		Field("username",
			NotEmpty(MsgUsernameRequired),
			MaxLength(MaxUsernameLength, MsgUsernameTooLong),
			Custom(func(ctx context.Context, value string, _ Form) (bool, error) {
				if strings.TrimSpace(value) == "" {
					return true, nil
				}
				taken, err := exists(ctx, value)
				return !taken, err
			}, MsgUsernameTaken),
		),
		Field("password",
			NotEmpty(MsgPasswordRequired),
			MaxLength(MaxPasswordLength, MsgPasswordTooLong),
			Matches(PasswordPattern, MsgPasswordComplexity),
		),
		Field("confirmPassword",
			NotEmpty(MsgConfirmPasswordRequired),
			MaxLength(MaxPasswordLength, MsgConfirmPasswordTooLong),
			Equals("password", MsgConfirmPasswordMismatch),
		),
	)
}

// LoginValidator only checks presence; credential checks happen afterwards.
func LoginValidator() *Validator {
	return New(
		Field("username", NotEmpty(MsgUsernameRequired)),
		Field("password", NotEmpty(MsgPasswordRequired)),
	)
}

// CommentValidator checks a comment body and the post it is attached to.
func CommentValidator() *Validator {
	return New(
		Field("content",
			NotEmpty(MsgCommentRequired),
			MaxLength(models.MaxCommentLength, MsgCommentTooLong),
		),
		Field("postId", PositiveInt(MsgCommentPostInvalid)),
	)
}

// PostValidator checks the header and content of a new post.
func PostValidator() *Validator {
	return New(
		Field("header",
			NotEmpty(MsgHeaderRequired),
			MaxLength(MaxHeaderLength, MsgHeaderTooLong),
		),
		Field("content", NotEmpty(MsgContentRequired)),
	)
}
