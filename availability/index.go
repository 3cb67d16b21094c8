/*
index.go - Busy index construction and availability lookups

PURPOSE:
  Folds the flat occupied-slot list into a lookup structure keyed by
  (day, hour), then answers availability queries against the catalog.
  Duplicate occupied records collapse; rebuilding from the same input
  always yields the same index.

SEE ALSO:
  - types.go: Input and output structures
  - grid.go: Whole-week grid assembly
*/
package availability

import (
	"sort"

	"github.com/ferrex/backoffice-engine/calendar"
)

// =============================================================================
// BUSY INDEX
// =============================================================================

type slotKey struct {
	Day  string // ISO day
	Hour string
}

// BusyIndex answers occupancy queries for one resource type. Build it
// once per request from the current occupied-slot list; it holds no
// reference to the input and never goes stale behind the caller's back.
type BusyIndex struct {
	resourceType ResourceType
	warehouses   map[slotKey]map[string]struct{}
	transport    map[slotKey]struct{}
}

// BuildBusyIndex folds occupied slots of the given resource type into
// an index. Slots of other types are ignored, as are warehouse slots
// missing a resource id. Duplicates collapse to a single entry.
func BuildBusyIndex(slots []OccupiedSlot, resourceType ResourceType) (*BusyIndex, error) {
	if !resourceType.Valid() {
		return nil, &UnknownResourceTypeError{Value: string(resourceType)}
	}

	idx := &BusyIndex{
		resourceType: resourceType,
		warehouses:   make(map[slotKey]map[string]struct{}),
		transport:    make(map[slotKey]struct{}),
	}
	for _, s := range slots {
		if s.Type != resourceType {
			continue
		}
		key := slotKey{Day: s.Date.ISODay(), Hour: s.Hour}
		switch resourceType {
		case ResourceWarehouse:
			if s.ResourceID == "" {
				continue
			}
			set, ok := idx.warehouses[key]
			if !ok {
				set = make(map[string]struct{})
				idx.warehouses[key] = set
			}
			set[s.ResourceID] = struct{}{}
		case ResourceTransport:
			idx.transport[key] = struct{}{}
		}
	}
	return idx, nil
}

// ResourceType returns the type this index was built for.
func (idx *BusyIndex) ResourceType() ResourceType { return idx.resourceType }

// IsBusy reports full occupancy of a (day, hour) cell: for transport,
// whether the shared resource is taken; for warehouses, whether the
// named one is.
func (idx *BusyIndex) IsBusy(date calendar.TimePoint, hour, resourceID string) bool {
	key := slotKey{Day: date.ISODay(), Hour: hour}
	if idx.resourceType == ResourceTransport {
		_, busy := idx.transport[key]
		return busy
	}
	_, busy := idx.warehouses[key][resourceID]
	return busy
}

// Available derives the free resources of a (day, hour) cell.
//
// Warehouse: the catalog minus the busy set, selectable while
// non-empty. Transport: an empty resource list with the free flag.
func (idx *BusyIndex) Available(date calendar.TimePoint, hour string, catalog Catalog) SlotAvailability {
	key := slotKey{Day: date.ISODay(), Hour: hour}
	slot := SlotAvailability{Date: date, Hour: hour}

	if idx.resourceType == ResourceTransport {
		_, busy := idx.transport[key]
		slot.Available = !busy
		return slot
	}

	busy := idx.warehouses[key]
	free := make([]string, 0, len(catalog.Warehouses))
	for _, wh := range catalog.Warehouses {
		if _, taken := busy[wh]; !taken {
			free = append(free, wh)
		}
	}
	sort.Strings(free)
	slot.Resources = free
	slot.Available = len(free) > 0
	return slot
}
