package domain

// Service is one entry of the static service catalog.
type Service struct {
	ID               string   `json:"id"`
	Slug             string   `json:"slug"`
	Title            string   `json:"title"`
	ShortDescription string   `json:"shortDescription"`
	Description      string   `json:"description"`
	Image            string   `json:"image"`
	MetaTitle        string   `json:"metaTitle"`
	MetaDescription  string   `json:"metaDescription"`
	IsMainService    bool     `json:"isMainService"`
	ParentService    string   `json:"parentService,omitempty"`
	SubServices      []string `json:"subServices,omitempty"`
}
