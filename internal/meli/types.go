package meli

// TokenResponse is the OAuth token endpoint payload
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	UserID       int64  `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

type SellerReputation struct {
	LevelID           string `json:"level_id"`
	PowerSellerStatus string `json:"power_seller_status"`
	Transactions      struct {
		Total int `json:"total"`
	} `json:"transactions"`
}

// User is the subset of /users/{id} and /users/me the service reads
type User struct {
	ID               int64            `json:"id"`
	Nickname         string           `json:"nickname"`
	Email            string           `json:"email,omitempty"`
	FirstName        string           `json:"first_name,omitempty"`
	LastName         string           `json:"last_name,omitempty"`
	SellerReputation SellerReputation `json:"seller_reputation"`
}

type productItem struct {
	ItemID        string   `json:"item_id"`
	Title         string   `json:"title"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"original_price"`
	SoldQuantity  *int     `json:"sold_quantity"`
	SellerID      int64    `json:"seller_id"`
	Permalink     string   `json:"permalink"`
	Shipping      struct {
		FreeShipping bool     `json:"free_shipping"`
		Mode         string   `json:"mode"`
		LogisticType string   `json:"logistic_type"`
		Tags         []string `json:"tags"`
	} `json:"shipping"`
}

type productItemsResponse struct {
	Results []productItem `json:"results"`
}
