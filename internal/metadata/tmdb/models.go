package tmdb

// ErrorResponse is TMDB's error body.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// FindResponse is the result of /find/{external_id}.
type FindResponse struct {
	MovieResults []FindResult `json:"movie_results"`
	TVResults    []FindResult `json:"tv_results"`
}

// FindResult identifies a title found by external ID.
type FindResult struct {
	ID int `json:"id"`
}

// MovieDetails is the subset of /movie/{id} the resolver reads.
type MovieDetails struct {
	ID            int          `json:"id"`
	Title         string       `json:"title"`
	OriginalTitle string       `json:"original_title"`
	Translations  Translations `json:"translations"`
}

// TVDetails is the subset of /tv/{id} the resolver reads.
type TVDetails struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	OriginalName string       `json:"original_name"`
	Translations Translations `json:"translations"`
}

// Translations is appended to details with append_to_response=translations.
type Translations struct {
	Translations []Translation `json:"translations"`
}

// Translation is one localized variant of a title.
type Translation struct {
	ISO3166 string `json:"iso_3166_1"`
	ISO639  string `json:"iso_639_1"`
	Data    struct {
		Title string `json:"title"`
		Name  string `json:"name"`
	} `json:"data"`
}

// english returns the English title, preferring the US translation.
func (t Translations) english() string {
	var fallback string
	for _, tr := range t.Translations {
		if tr.ISO639 != "en" {
			continue
		}
		title := tr.Data.Title
		if title == "" {
			title = tr.Data.Name
		}
		if title == "" {
			continue
		}
		if tr.ISO3166 == "US" {
			return title
		}
		if fallback == "" {
			fallback = title
		}
	}
	return fallback
}
