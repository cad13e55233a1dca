package domain

import "time"

// Contact form sources.
const (
	SourceWebsite  = "website"
	SourceCallback = "callback"
)

// Attachment is an uploaded file held fully in memory.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the attachment size in bytes.
func (a Attachment) Size() int64 {
	return int64(len(a.Data))
}

// Lead is a persisted contact form submission.
type Lead struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Phone     string    `db:"phone"`
	Email     string    `db:"email"`
	Message   string    `db:"message"`
	Source    string    `db:"source"`
	FileCount int       `db:"file_count"`
	CreatedAt time.Time `db:"created_at"`
}
