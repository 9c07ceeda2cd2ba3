package domain

import "fmt"

// Address identifies an account or an asset collection.
type Address string

type ListingKey struct {
	Collection Address
	AssetID    uint64
}

func (k ListingKey) String() string {
	return fmt.Sprintf("%s#%d", k.Collection, k.AssetID)
}

// Listing is an offer to sell one asset. The zero value is the unlisted
// sentinel: a key is listed iff Price > 0.
type Listing struct {
	Price  uint64
	Seller Address
}

func (l Listing) Active() bool {
	return l.Price > 0
}

type ListingRecord struct {
	Key     ListingKey
	Listing Listing
}
