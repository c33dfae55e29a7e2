package domain

import "time"

// ArchivedPost is a raw post kept in the archive collection so source
// material survives edits on the blog side.
type ArchivedPost struct {
	Link       string    `bson:"link"`
	Title      string    `bson:"title"`
	Date       string    `bson:"date"`
	Content    string    `bson:"content"`
	Text       string    `bson:"text"` // plain text extracted from Content
	Host       string    `bson:"host"`
	ArchivedAt time.Time `bson:"archived_at"`
}
