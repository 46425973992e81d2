/*
Package randx provides functions for generating unique identifiers.

It is primarily used to generate UUID message and correlation identifiers and
short Base62 suffixes for avatar object keys.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// AvatarSuffixLength is the fixed length of the random part of an avatar object key.
	AvatarSuffixLength = 8
)

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// CorrelationID generates a UUID v4 string used to match an optimistic send
// against the confirmed message the store eventually delivers.
func CorrelationID() string {
	return uuid.New().String()
}

// IsValidID checks that the given string parses as a UUID. Used to validate
// client-supplied message and correlation identifiers.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// AvatarSuffix generates a Base62 suffix for avatar object keys using a
// cryptographically secure random number generator (crypto/rand).
func AvatarSuffix() (string, error) {
	result := make([]byte, AvatarSuffixLength)

	for i := range AvatarSuffixLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for avatar key: %v", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}
