package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// LocatorScheme prefixes every content locator.
const LocatorScheme = "ipfs://"

var (
	ErrNotFound          = errors.New("storage: not found")
	ErrInvalidLocator    = errors.New("storage: invalid locator")
	ErrCIDMismatch       = errors.New("storage: cid mismatch")
	ErrAllGatewaysFailed = errors.New("storage: all gateways failed")
)

// ParseLocator validates an "ipfs://<cid>" locator and returns its CID.
func ParseLocator(locator string) (cid.Cid, error) {
	if !strings.HasPrefix(locator, LocatorScheme) {
		return cid.Undef, fmt.Errorf("%w: missing %s scheme", ErrInvalidLocator, LocatorScheme)
	}
	id, err := cid.Decode(strings.TrimPrefix(locator, LocatorScheme))
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	return id, nil
}

// IsLocator reports whether locator is a well-formed content locator.
func IsLocator(locator string) bool {
	_, err := ParseLocator(locator)
	return err == nil
}

// FormatLocator returns the locator of id.
func FormatLocator(id cid.Cid) string {
	return LocatorScheme + id.String()
}

// ComputeCID returns the CIDv1 (raw codec, sha2-256) of data.
func ComputeCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Verify checks data against id. Only raw-codec CIDs address the bytes
// directly; other codecs (UnixFS files behind a gateway) are accepted as is.
func Verify(id cid.Cid, data []byte) error {
	if id.Type() != cid.Raw {
		return nil
	}
	got, err := id.Prefix().Sum(data)
	if err != nil {
		return fmt.Errorf("failed to hash content: %w", err)
	}
	if !got.Equals(id) {
		return ErrCIDMismatch
	}
	return nil
}
