package entity

// Score is one rating left on return. Never updated after creation.
type Score struct {
	ID     int64   `json:"id"`
	Value  float64 `json:"value"`
	UserID int64   `json:"user_id"`
	BookID int64   `json:"book_id"`
}
