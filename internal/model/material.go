package model

// CategoryQuiz is the reserved category marking a material as an assessment.
// Assessments award their credit on an explicit claim, not on first open.
const CategoryQuiz = "quiz"

// Material is a piece of published content: a reading or, when its category
// is CategoryQuiz, an assessment.
type Material struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Content    string `json:"content"`
	CreatedAt  string `json:"createdAt"`
	YoutubeURL string `json:"youtubeUrl,omitempty"`
}

// IsQuiz reports whether the material is an assessment.
func (m Material) IsQuiz() bool {
	return m.Category == CategoryQuiz
}
