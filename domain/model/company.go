package model

import "github.com/google/uuid"

// Company is the tenant root. One row per Slack workspace using the bot.
type Company struct {
	UUID        string
	SlackTeamID string
	Name        string
}

func NewCompany(name, slackTeamID string) *Company {
	return &Company{
		UUID:        uuid.NewString(),
		Name:        name,
		SlackTeamID: slackTeamID,
	}
}
