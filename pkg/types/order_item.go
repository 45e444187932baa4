package types

// ItemCustomization is a single option chosen for an order line.
type ItemCustomization struct {
	Name       string `json:"name"`
	Option     string `json:"option"`
	PriceCents int64  `json:"price_cents"`
}

type ItemCustomizations []ItemCustomization

// ItemVariant is the selected product variant for an order line.
type ItemVariant struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}
