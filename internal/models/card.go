package models

import "time"

// CardDocument is a processed card agreement stored in the document store.
type CardDocument struct {
	Name           string    `json:"card_name" db:"name"`
	SourceFile     string    `json:"source_file" db:"source_file"`
	FullTextLength int       `json:"full_text_length" db:"full_text_length"`
	NumChunks      int       `json:"num_chunks" db:"num_chunks"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
