package orderboard

import (
	"sort"

	"github.com/andrescamacho/artifacts-go/internal/domain/game"
	"github.com/andrescamacho/artifacts-go/internal/domain/orders"
)

// Bucket ranks claimable orders by what the ordered item is. Lower wins.
type Bucket int

const (
	BucketTool     Bucket = 0
	BucketResource Bucket = 1
	BucketWeapon   Bucket = 2
	BucketGear     Bucket = 3
)

// BucketFor classifies an ordered item for claim prioritization
func BucketFor(catalog *game.Catalog, itemCode string) Bucket {
	item := catalog.Item(itemCode)
	if item == nil {
		return BucketGear
	}
	switch {
	case item.IsTool():
		return BucketTool
	case item.Type == "resource" || item.Type == "consumable":
		return BucketResource
	case item.Type == "weapon":
		return BucketWeapon
	default:
		return BucketGear
	}
}

// SortForClaim orders claim candidates by bucket, then creation time, then id
func SortForClaim(catalog *game.Catalog, list []*orders.Order) {
	sort.SliceStable(list, func(i, j int) bool {
		bi, bj := BucketFor(catalog, list[i].ItemCode), BucketFor(catalog, list[j].ItemCode)
		if bi != bj {
			return bi < bj
		}
		if list[i].CreatedAtMs != list[j].CreatedAtMs {
			return list[i].CreatedAtMs < list[j].CreatedAtMs
		}
		return list[i].ID < list[j].ID
	})
}
