package pipeline

import "github.com/InfiniteXqz/roblox-rap-updater/adapters"

// Predicate decides whether a catalog record belongs in the result set.
// It must be pure; it is evaluated once per record.
type Predicate func(adapters.CatalogItem) bool

var limitedTags = []string{"Limited", "LimitedUnique"}

// CreatorPredicate accepts limited items made by the given creator, matched
// either by exact name or by creator target id.
func CreatorPredicate(creatorName string, creatorTargetID int64) Predicate {
	return func(it adapters.CatalogItem) bool {
		return madeBy(it, creatorName, creatorTargetID) && IsLimited(it)
	}
}

// ListingPredicate is the discovery filter for runs that verify details
// afterwards. Listing records often omit the creator or restriction fields;
// such records are kept and the details stage decides. Fields that are
// present must still match.
func ListingPredicate(creatorName string, creatorTargetID int64) Predicate {
	return func(it adapters.CatalogItem) bool {
		if it.CreatorName != "" || it.CreatorTargetID != 0 {
			if !madeBy(it, creatorName, creatorTargetID) {
				return false
			}
		}
		return len(it.ItemRestrictions) == 0 || IsLimited(it)
	}
}

func madeBy(it adapters.CatalogItem, creatorName string, creatorTargetID int64) bool {
	byName := creatorName != "" && it.CreatorName == creatorName
	byID := creatorTargetID > 0 && it.CreatorTargetID == creatorTargetID
	return byName || byID
}

// IsLimited reports whether the record carries a limited restriction tag.
func IsLimited(it adapters.CatalogItem) bool {
	for _, r := range it.ItemRestrictions {
		for _, tag := range limitedTags {
			if r == tag {
				return true
			}
		}
	}
	return false
}
