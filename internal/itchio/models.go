package itchio

// User is the itch.io account that published a game.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	URL         string `json:"url"`
}

// AuthorName returns the display name, falling back to the username.
func (u User) AuthorName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Game is one purchasable item in the catalog.
type Game struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	ShortText      string   `json:"short_text,omitempty"`
	URL            string   `json:"url"`
	Type           string   `json:"type"`
	Classification string   `json:"classification"`
	CreatedAt      string   `json:"created_at"`
	PublishedAt    string   `json:"published_at,omitempty"`
	MinPrice       int64    `json:"min_price,omitempty"`
	Traits         []string `json:"traits,omitempty"`
	User           User     `json:"user"`
}

// OwnedKey is a purchase record granting download access to a game.
type OwnedKey struct {
	ID         int64 `json:"id"`
	GameID     int64 `json:"game_id"`
	PurchaseID int64 `json:"purchase_id,omitempty"`
	Downloads  int64 `json:"downloads"`
	Game       Game  `json:"game"`
}

// Upload is one downloadable file attached to a game.
type Upload struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	GameID   int64  `json:"game_id"`
}

type ownedKeysResponse struct {
	OwnedKeys []OwnedKey `json:"owned_keys"`
	Page      int        `json:"page"`
	PerPage   int        `json:"per_page"`
}

type uploadsResponse struct {
	Uploads []Upload `json:"uploads"`
}
