package model

import (
	"time"

	"github.com/google/uuid"
)

// StatusUpdateSource records how an update entered the system.
type StatusUpdateSource string

const (
	SourceSlackDialog        StatusUpdateSource = "slack_dialog"
	SourceSlackMessage       StatusUpdateSource = "slack_message"
	SourceSlackSharedMessage StatusUpdateSource = "slack_shared_message"
)

type StatusUpdateImage struct {
	UUID        string
	URL         string
	Filename    string
	Title       string
	Description string
}

func NewStatusUpdateImage(url, filename, title, description string) StatusUpdateImage {
	return StatusUpdateImage{
		UUID:        uuid.NewString(),
		URL:         url,
		Filename:    filename,
		Title:       title,
		Description: description,
	}
}

// StatusUpdate is the core content entity. Teams, Projects and Images are
// always fully populated on reads; the author fields come from Slack and
// are not foreign keys.
type StatusUpdate struct {
	UUID       string
	Text       string
	IsMarkdown bool
	Source     StatusUpdateSource

	DiscussLink string
	Published   bool
	Deleted     bool

	AuthorSlackUserID   string
	AuthorSlackUserName string

	CreatedAt time.Time

	Company *Company
	Type    *StatusUpdateType

	Teams    []Team
	Projects []Project
	Images   []StatusUpdateImage
}

func NewStatusUpdate(text string, source StatusUpdateSource, company *Company) *StatusUpdate {
	return &StatusUpdate{
		UUID:      uuid.NewString(),
		Text:      text,
		Source:    source,
		Company:   company,
		CreatedAt: time.Now().UTC(),
	}
}
