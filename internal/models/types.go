package models

import "time"

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// SalePriceInfo mirrors the marketplace "sale_price" object of the newer prices API
type SalePriceInfo struct {
	RegularAmount float64 `json:"regular_amount"`
	Amount        float64 `json:"amount"`
}

// Listing is one marketplace listing enriched with the seller's own cost inputs.
// The analytics packages only read it.
type Listing struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Price         float64        `json:"price"`
	OriginalPrice *float64       `json:"original_price,omitempty"`
	BasePrice     *float64       `json:"base_price,omitempty"`
	SalePriceInfo *SalePriceInfo `json:"sale_price,omitempty"`
	Currency      string         `json:"currency_id,omitempty"`
	ListingTypeID string         `json:"listing_type_id,omitempty"`
	Status        string         `json:"status,omitempty"`
	SoldQuantity  int            `json:"sold_quantity,omitempty"`
	InventoryID   string         `json:"inventory_id,omitempty"`
	Tags          []string       `json:"tags,omitempty"`

	// Marketplace fees
	ListingFeeAmount  *float64 `json:"listing_fee_amount,omitempty"`
	SaleFeePercentage *float64 `json:"sale_fee_percentage,omitempty"`
	SaleFeeFixed      *float64 `json:"sale_fee_fixed,omitempty"`
	SaleFeeAmount     *float64 `json:"sale_fee_amount,omitempty"`

	// Seller-entered costs
	ProductCost     Amount `json:"product_cost"`
	ShippingCost    Amount `json:"shipping_cost"`
	TaxesPercent    Amount `json:"taxes_percent"`
	AdsCostPercent  Amount `json:"ads_cost_percent"`
	AdditionalFees  Amount `json:"additional_fees"`
	AdditionalNotes string `json:"additional_notes,omitempty"`

	// Shipping of the listing itself
	LogisticType string `json:"logistic_type,omitempty"`
	FreeShipping bool   `json:"free_shipping"`

	// Catalog
	CatalogListing            bool          `json:"catalog_listing"`
	CatalogProductID          string        `json:"catalog_product_id,omitempty"`
	CatalogStatus             CatalogStatus `json:"catalog_status,omitempty"`
	CatalogVisitShare         string        `json:"catalog_visit_share,omitempty"`
	CatalogCompetitorsSharing *int          `json:"catalog_competitors_sharing,omitempty"`
	CatalogPriceToWin         *float64      `json:"catalog_price_to_win,omitempty"`
}

type CompetitorSeller struct {
	ID                int64  `json:"id"`
	Nickname          string `json:"nickname"`
	ReputationLevelID string `json:"reputation_level_id,omitempty"`
	PowerSellerStatus string `json:"power_seller_status,omitempty"`
	TransactionsTotal int    `json:"transactions_total"`
}

type CompetitorShipping struct {
	FreeShipping bool     `json:"free_shipping"`
	Mode         string   `json:"mode,omitempty"`
	LogisticType string   `json:"logistic_type,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// CompetitorOffer is another seller's offer on the same catalog product
type CompetitorOffer struct {
	ItemID        string             `json:"item_id"`
	Title         string             `json:"title"`
	Price         float64            `json:"price"`
	OriginalPrice *float64           `json:"original_price,omitempty"`
	SoldQuantity  *int               `json:"sold_quantity,omitempty"`
	Seller        CompetitorSeller   `json:"seller"`
	Shipping      CompetitorShipping `json:"shipping"`
	Permalink     string             `json:"permalink,omitempty"`
	URL           string             `json:"url,omitempty"`
	ManualURL     string             `json:"manual_url,omitempty"`
}

// IntegrationToken is the stored marketplace credential of one integration.
// Records are deactivated on disconnect, never deleted.
type IntegrationToken struct {
	IntegrationID  string    `json:"integration_id"`
	AccessToken    string    `json:"-"`
	RefreshToken   string    `json:"-"`
	TokenType      string    `json:"token_type"`
	ExpiresAt      time.Time `json:"expires_at"`
	Scope          string    `json:"scope,omitempty"`
	ExternalUserID string    `json:"external_user_id,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Expired reports whether the access token is past its expiry at now
func (t IntegrationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Event represents an integration lifecycle event in the audit log
type Event struct {
	Offset        int64  `json:"offset"`
	Timestamp     string `json:"timestamp"`
	EventType     string `json:"eventType"`
	IntegrationID string `json:"integrationId"`
	Detail        string `json:"detail,omitempty"`
}

// EventsResponse represents the response for the events endpoint
type EventsResponse struct {
	Events     []Event `json:"events"`
	NextOffset int64   `json:"nextOffset"`
	HasMore    bool    `json:"hasMore"`
	Count      int     `json:"count"`
}

// EventType constants
const (
	EventTypeAuthorizationStarted = "authorization_started"
	EventTypeConnected            = "connected"
	EventTypeTokenRefreshed       = "token_refreshed"
	EventTypeRefreshFailed        = "refresh_failed"
	EventTypeDisconnected         = "disconnected"
)
