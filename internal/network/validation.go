package network

import (
	"fmt"
	"regexp"

	apperrors "socialnet/pkg/errors"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_']+$`)

// ValidUsername reports whether username is non-empty and contains only
// letters, digits, underscores, and apostrophes
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// ValidateUsername returns an ErrInvalidUsername describing why username is rejected
func ValidateUsername(username string) error {
	if username == "" {
		return apperrors.NewInvalidUsername(username, "username cannot be blank")
	}
	if usernamePattern.MatchString(username) {
		return nil
	}
	for _, r := range username {
		if !isUsernameRune(r) {
			return apperrors.NewInvalidUsername(username, fmt.Sprintf("illegal character %q", r))
		}
	}
	return apperrors.NewInvalidUsername(username, "only letters, digits, underscores, and apostrophes are allowed")
}

// ValidateFriendship rejects a friendship between a user and themself
func ValidateFriendship(user1, user2 string) error {
	if user1 == user2 {
		return apperrors.NewInvalidUsername(user1, "a user cannot befriend themself")
	}
	return nil
}

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '\'':
		return true
	}
	return false
}
