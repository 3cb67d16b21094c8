/*
Package availability answers "which resources are free at day D, hour
H" for the reception scheduling grid.

PURPOSE:
  Warehouse receptions and transport pickups share a weekly Mon-Fri
  grid of ten one-hour slots. Occupied slots are flat records; this
  package folds them into a busy index and derives per-slot
  availability against the resource catalog, without mutating the
  input.

KEY CONCEPTS IN THIS FILE (types.go):
  - ResourceType: closed enum, Warehouse or Transport
  - OccupiedSlot: a (day, hour, resource) tuple marking unavailability
  - Catalog: the named warehouses to subtract busy sets from
  - SlotAvailability: the derived free/busy answer for one cell

RESOURCE SEMANTICS:
  Warehouse is a set of named sub-resources; a slot is selectable while
  at least one warehouse remains free. Transport is a single shared
  resource; a slot is either free or fully occupied.

SEE ALSO:
  - index.go: BusyIndex construction and lookups
  - calendar/week.go: The week and hour-slot tables the grid uses
*/
package availability

import (
	"errors"
	"fmt"

	"github.com/ferrex/backoffice-engine/calendar"
)

// =============================================================================
// RESOURCE TYPE - Closed enum
// =============================================================================

type ResourceType string

const (
	ResourceWarehouse ResourceType = "warehouse"
	ResourceTransport ResourceType = "transport"
)

func (r ResourceType) Valid() bool {
	return r == ResourceWarehouse || r == ResourceTransport
}

// ParseResourceType rejects values outside the closed enum.
func ParseResourceType(s string) (ResourceType, error) {
	rt := ResourceType(s)
	if !rt.Valid() {
		return "", &UnknownResourceTypeError{Value: s}
	}
	return rt, nil
}

// =============================================================================
// OCCUPIED SLOT - Static busy record
// =============================================================================

type OccupiedSlot struct {
	ID         string
	Type       ResourceType
	Date       calendar.TimePoint
	Hour       string // "08:00".."17:00"
	ResourceID string // required for warehouse slots, ignored for transport
}

// Catalog lists the bookable sub-resources.
type Catalog struct {
	Warehouses []string
}

// =============================================================================
// SLOT AVAILABILITY - Derived, ephemeral
// =============================================================================

// SlotAvailability is the answer for one (day, hour) cell.
type SlotAvailability struct {
	Date      calendar.TimePoint
	Hour      string
	Available bool
	// Resources lists the free warehouses. Always empty for transport,
	// which has no sub-resource breakdown.
	Resources []string
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnknownResourceType is wrapped by UnknownResourceTypeError.
	ErrUnknownResourceType = errors.New("unknown resource type")

	// ErrSlotOccupied is returned when reserving an already busy slot.
	ErrSlotOccupied = errors.New("slot occupied")
)

type UnknownResourceTypeError struct {
	Value string
}

func (e *UnknownResourceTypeError) Error() string {
	return fmt.Sprintf("unknown resource type %q (want %q or %q)", e.Value, ResourceWarehouse, ResourceTransport)
}

func (e *UnknownResourceTypeError) Unwrap() error { return ErrUnknownResourceType }
