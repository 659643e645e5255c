package catalog

// gameResponse mirrors the fields of a catalog game record that are used here.
type gameResponse struct {
	ID                        int64    `json:"id"`
	Slug                      string   `json:"slug"`
	Name                      string   `json:"name"`
	Released                  *string  `json:"released"`
	TBA                       bool     `json:"tba"`
	Metacritic                *int     `json:"metacritic"`
	Rating                    *float64 `json:"rating"`
	RatingsCount              *int     `json:"ratings_count"`
	BackgroundImage           *string  `json:"background_image"`
	BackgroundImageAdditional *string  `json:"background_image_additional"`
	DescriptionRaw            *string  `json:"description_raw"`
}

type searchResponse struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []gameResponse `json:"results"`
}
