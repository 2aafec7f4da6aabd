package domain

import "errors"

var ErrBookNotFound = errors.New("book not found")

type Book struct {
	ID          string  `db:"id" json:"id"`
	Title       string  `db:"title" json:"title"`
	Author      string  `db:"author" json:"author"`
	ISBN        string  `db:"isbn" json:"isbn"`
	Category    string  `db:"category" json:"category"`
	Description *string `db:"description" json:"description,omitempty"`
	ImageURL    *string `db:"image_url" json:"imageUrl,omitempty"`
	Available   int     `db:"available" json:"available"`
	Quantity    int     `db:"quantity" json:"quantity"`
}
