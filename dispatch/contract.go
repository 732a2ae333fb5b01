package dispatch

import (
	"maps"
	"slices"

	"github.com/wippyai/view-bridge/errors"
)

// ContractSource reports the producer's build-time identifiers.
type ContractSource interface {
	ContractVersion() uint32
	Checksum(fn string) uint16
}

// Contract is the consumer's compiled-in expectation of the producer.
type Contract struct {
	Checksums map[string]uint16
	Version   uint32
}

// Verify compares c against src. Functions are checked in name order so
// the reported mismatch is deterministic.
func (c Contract) Verify(src ContractSource) error {
	if got := src.ContractVersion(); got != c.Version {
		return errors.ContractMismatch("contract version %d, want %d", got, c.Version)
	}
	for _, fn := range slices.Sorted(maps.Keys(c.Checksums)) {
		want := c.Checksums[fn]
		if got := src.Checksum(fn); got != want {
			e := errors.ContractMismatch("checksum %#04x, want %#04x", got, want)
			e.Function = fn
			return e
		}
	}
	return nil
}
