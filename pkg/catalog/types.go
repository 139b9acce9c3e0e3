package catalog

// Entry is a single catalog item that resolved an image.
type Entry struct {
	Name  string `json:"name"`
	Image string `json:"image"`
	ID    int    `json:"id"`
}

// Reference is a summary item from the list endpoint.
type Reference struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Page is the outcome of one list call plus its detail lookups.
type Page struct {
	Offset  int
	Entries []Entry
	// Total is the endpoint-reported catalog size. It is informational only.
	Total int
	// Requested is the number of references the list call returned.
	Requested int
}

type listResponse struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  []Reference `json:"results"`
}

type detailResponse struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Sprites sprites `json:"sprites"`
}

type sprites struct {
	FrontDefault *string `json:"front_default"`
	Other        struct {
		OfficialArtwork struct {
			FrontDefault *string `json:"front_default"`
		} `json:"official-artwork"`
	} `json:"other"`
}

// image returns the primary sprite, falling back to the official artwork.
func (s sprites) image() string {
	if s.FrontDefault != nil && *s.FrontDefault != "" {
		return *s.FrontDefault
	}
	if art := s.Other.OfficialArtwork.FrontDefault; art != nil && *art != "" {
		return *art
	}
	return ""
}
