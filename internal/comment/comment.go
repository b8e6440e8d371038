// Package comment defines the comment thread model anchored to document nodes.
package comment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TimeLayout is the ISO-8601 form used for createdAt on the wire and on disk.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// MaxContentLength caps the comment body in runes.
const MaxContentLength = 10000

// Common errors.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("comment not found")
)

// Author identifies who wrote a comment.
type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// GuestAuthor returns the identity used when the caller supplies none.
func GuestAuthor() Author {
	return Author{
		ID:     "user-guest",
		Name:   "Guest User",
		Avatar: "",
	}
}

// Comment is a single comment with its nested replies.
type Comment struct {
	ID        string
	NodeID    string
	Author    Author
	Content   string
	CreatedAt time.Time
	Replies   []Comment
}

// wireComment is the JSON shape of a Comment.
type wireComment struct {
	ID        string    `json:"id"`
	NodeID    string    `json:"nodeId"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt string    `json:"createdAt"`
	Replies   []Comment `json:"replies"`
}

// MarshalJSON encodes createdAt with millisecond precision and replies as an array.
func (c Comment) MarshalJSON() ([]byte, error) {
	replies := c.Replies
	if replies == nil {
		replies = []Comment{}
	}

	return json.Marshal(wireComment{
		ID:        c.ID,
		NodeID:    c.NodeID,
		Author:    c.Author,
		Content:   c.Content,
		CreatedAt: c.CreatedAt.UTC().Format(TimeLayout),
		Replies:   replies,
	})
}

// UnmarshalJSON accepts any RFC 3339 createdAt value.
func (c *Comment) UnmarshalJSON(data []byte) error {
	var w wireComment
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var createdAt time.Time

	if w.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, w.CreatedAt)
		if err != nil {
			return fmt.Errorf("comment %q: createdAt: %w", w.ID, err)
		}

		createdAt = t.UTC()
	}

	replies := w.Replies
	if replies == nil {
		replies = []Comment{}
	}

	*c = Comment{
		ID:        w.ID,
		NodeID:    w.NodeID,
		Author:    w.Author,
		Content:   w.Content,
		CreatedAt: createdAt,
		Replies:   replies,
	}

	return nil
}

// New builds a top-level comment for nodeID. A nil author means the guest identity.
// nodeID and content are stored exactly as given.
func New(nodeID, content string, author *Author, now time.Time) (Comment, error) {
	if strings.TrimSpace(nodeID) == "" {
		return Comment{}, fmt.Errorf("%w: nodeId is required", ErrValidation)
	}

	if strings.TrimSpace(content) == "" {
		return Comment{}, fmt.Errorf("%w: content is required", ErrValidation)
	}

	if utf8.RuneCountInString(content) > MaxContentLength {
		return Comment{}, fmt.Errorf("%w: content exceeds %d characters", ErrValidation, MaxContentLength)
	}

	a := GuestAuthor()
	if author != nil {
		a = *author
	}

	return Comment{
		ID:        uuid.New().String(),
		NodeID:    nodeID,
		Author:    a,
		Content:   content,
		CreatedAt: now.UTC().Truncate(time.Millisecond),
		Replies:   []Comment{},
	}, nil
}

// Clone returns a deep copy of c.
func (c Comment) Clone() Comment {
	out := c
	out.Replies = make([]Comment, len(c.Replies))

	for i, r := range c.Replies {
		out.Replies[i] = r.Clone()
	}

	return out
}
