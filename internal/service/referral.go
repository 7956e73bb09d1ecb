package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
)

// ErrBadReferral is returned for a malformed shared-by token. Callers log
// and drop it; a bad referral never blocks an attempt.
var ErrBadReferral = errors.New("malformed referral token")

// EncodeReferral produces the opaque shared-by token embedded in share
// links: the sharing user's id, base64url encoded.
func EncodeReferral(userID int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(userID)))
}

// DecodeReferral reverses EncodeReferral. The decoded value must be a
// plain numeric user id.
func DecodeReferral(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadReferral, err)
	}
	if _, err := strconv.Atoi(string(raw)); err != nil {
		return "", fmt.Errorf("%w: not a user id", ErrBadReferral)
	}
	return string(raw), nil
}
