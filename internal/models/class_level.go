package models

// ClassLevel is one grade in the ordered class sequence.
type ClassLevel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}
