package restyle

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

var ErrHexStringTooShort = errors.New("hex encoded byte slice is too short for hash")

// DecodeHashHex decodes a hex encoded object id. Unlike [plumbing.NewHash]
// it rejects malformed or truncated input instead of zero filling the hash.
func DecodeHashHex(str string) (plumbing.Hash, error) {
	var h plumbing.Hash

	raw, err := hex.DecodeString(str)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to decode %q as an object id: %w", str, err)
	}
	if len(raw) < len(h) {
		return plumbing.ZeroHash, fmt.Errorf("%w: %q", ErrHexStringTooShort, str)
	}

	copy(h[:], raw)

	return h, nil
}
