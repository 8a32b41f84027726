package model

// Category is a fixed reference tag for grouping posts.
type Category struct {
	ID   int64
	Name string
}

// DefaultCategories is the seed list written on first startup.
var DefaultCategories = []string{
	"General",
	"Technology",
	"Travel",
	"Food",
	"Lifestyle",
}
