package lending

type UserSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type PresentBook struct {
	Name string `json:"name"`
}

type PastBook struct {
	Name      string  `json:"name"`
	UserScore float64 `json:"userScore"`
}

type UserBooks struct {
	Present []PresentBook `json:"present"`
	Past    []PastBook    `json:"past"`
}

type UserView struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Books UserBooks `json:"books"`
}

type BookSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type BookView struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}
