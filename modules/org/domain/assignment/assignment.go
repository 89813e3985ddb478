package assignment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("assignment not found")

// Status is derived from a version's position in its lineage, never stored.
type Status string

const (
	StatusCurrent    Status = "CURRENT"
	StatusTerminated Status = "TERMINATED"
	StatusHistorical Status = "HISTORICAL"
)

// DeriveStatus classifies one version of a lineage. latest reports whether
// the version carries the highest version number in the chain.
func DeriveStatus(isCurrent, latest bool, validTo *time.Time) Status {
	switch {
	case isCurrent:
		return StatusCurrent
	case latest && validTo != nil:
		return StatusTerminated
	default:
		return StatusHistorical
	}
}

// ChainLink is the subset of a version row needed to verify lineage shape.
type ChainLink struct {
	LineageID uuid.UUID
	Version   int
	IsCurrent bool
	ValidFrom time.Time
	ValidTo   *time.Time
}

// VerifyChain checks the structural invariants of a lineage: versions are
// contiguous from 1, at most one version is current, and the current version
// (if any) is the latest. links must be ordered by ascending version.
func VerifyChain(links []ChainLink) error {
	if len(links) == 0 {
		return nil
	}
	lineageID := links[0].LineageID
	currents := 0
	for i, l := range links {
		if l.LineageID != lineageID {
			return fmt.Errorf("lineage %s: link %d belongs to lineage %s", lineageID, i, l.LineageID)
		}
		if l.Version != i+1 {
			return fmt.Errorf("lineage %s: expected version %d, got %d", lineageID, i+1, l.Version)
		}
		if l.IsCurrent {
			currents++
			if i != len(links)-1 {
				return fmt.Errorf("lineage %s: version %d is current but not latest", lineageID, l.Version)
			}
		}
		if l.ValidTo != nil && l.ValidTo.Before(l.ValidFrom) {
			return fmt.Errorf("lineage %s: version %d has valid_to before valid_from", lineageID, l.Version)
		}
	}
	if currents > 1 {
		return fmt.Errorf("lineage %s: %d current versions", lineageID, currents)
	}
	return nil
}
