package model

import "github.com/google/uuid"

type StatusUpdateReaction struct {
	UUID    string
	Emoji   string
	Name    string
	Company *Company
	Deleted bool
}

func NewStatusUpdateReaction(emoji, name string, company *Company) *StatusUpdateReaction {
	return &StatusUpdateReaction{
		UUID:    uuid.NewString(),
		Emoji:   emoji,
		Name:    name,
		Company: company,
	}
}
