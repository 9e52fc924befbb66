package models

type Category struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Color string `json:"color" db:"color"`
}

// ContentItem is an external record (article, page) an event can link to.
type ContentItem struct {
	ID        int64  `json:"id" db:"id"`
	Title     string `json:"title" db:"title"`
	Status    string `json:"status" db:"status"`
	Permalink string `json:"permalink" db:"permalink"`
}

const ContentStatusPublish = "publish"

// IsPublished reports whether the item may be linked from the calendar
func (c *ContentItem) IsPublished() bool {
	return c.Status == ContentStatusPublish
}
