package domain

// ShopProfile is a snapshot of shop identity and billing data. It is replaced wholesale
// on every fetch and never mutated after construction.
//
// JSON keys match the shop_details object the logistics partner expects.
type ShopProfile struct {
	Name              string         `json:"name" bson:"name"`
	ID                string         `json:"id" bson:"id"`
	Email             string         `json:"email" bson:"email"`
	PrimaryDomainHost string         `json:"primaryDomain" bson:"primaryDomain"`
	BillingAddress    map[string]any `json:"billingAddress" bson:"billingAddress"`
}

// NewShopProfile builds a profile, defaulting a nil billing address to an empty map.
func NewShopProfile(name, id, email, host string, billing map[string]any) *ShopProfile {
	if billing == nil {
		billing = map[string]any{}
	}
	return &ShopProfile{
		Name:              name,
		ID:                id,
		Email:             email,
		PrimaryDomainHost: host,
		BillingAddress:    billing,
	}
}

// Loaded reports whether the profile is usable for channel validation.
func (p *ShopProfile) Loaded() bool {
	return p != nil && p.Name != ""
}
