package model

// StatuteMatch is a legal provision retrieved for one claim
type StatuteMatch struct {
	ClaimType     string  `json:"claim_type"`     // Claim the match was retrieved for
	ArticleNumber *string `json:"article_number"` // null when the provision has no article number
	Category      string  `json:"category"`       // Statute category (e.g. "labor", "contract")
	Content       string  `json:"content"`        // Provision text, truncated
	Similarity    float64 `json:"similarity"`     // Cosine similarity in [0,1]
}

// Article returns the article number or an empty string
func (m StatuteMatch) Article() string {
	if m.ArticleNumber == nil {
		return ""
	}
	return *m.ArticleNumber
}

// Provision is a stored legal provision
type Provision struct {
	ID            string    `json:"id" yaml:"id,omitempty"`
	ArticleNumber *string   `json:"article_number" yaml:"article_number,omitempty"`
	Category      string    `json:"category" yaml:"category"`
	Title         string    `json:"title,omitempty" yaml:"title,omitempty"`
	Content       string    `json:"content" yaml:"content"`
	Embedding     []float32 `json:"-" yaml:"-"`
}

// SourceKey identifies a provision for upserts
func (p Provision) SourceKey() string {
	if p.ArticleNumber != nil && *p.ArticleNumber != "" {
		return p.Category + ":" + *p.ArticleNumber
	}
	return p.Category + ":" + p.Title
}
