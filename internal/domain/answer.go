package domain

// AnswerModel is the optional structured form of a knowledge base answer.
type AnswerModel struct {
	Title          string `json:"title"`
	Subtitle       string `json:"subtitle"`
	ImageURL       string `json:"imageUrl"`
	Description    string `json:"description"`
	RedirectionURL string `json:"redirectionUrl"`
}

// PreviousQuestion is the knowledge base context carried between follow-up turns.
type PreviousQuestion struct {
	ID        int      `json:"id"`
	Questions []string `json:"questions"`
	Answer    string   `json:"answer,omitempty"`
}
