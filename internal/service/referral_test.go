package service

import (
	"errors"
	"testing"
)

func TestReferralRoundTrip(t *testing.T) {
	token := EncodeReferral(42)
	decoded, err := DecodeReferral(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != "42" {
		t.Fatalf("expected 42, got %q", decoded)
	}
}

func TestDecodeReferralRejectsGarbage(t *testing.T) {
	cases := []string{
		"%%%not-base64%%%",
		"aGVsbG8",             // decodes to "hello", not a user id
		EncodeReferral(1) + "!",
	}
	for _, tc := range cases {
		if _, err := DecodeReferral(tc); !errors.Is(err, ErrBadReferral) {
			t.Fatalf("token %q: expected ErrBadReferral, got %v", tc, err)
		}
	}
}
