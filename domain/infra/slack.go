package infra

import "github.com/slack-go/slack"

type SlackAPI interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	UpdateMessage(channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error)
	PostEphemeral(channelID, userID string, options ...slack.MsgOption) (string, error)
	OpenView(triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error)
	PublishView(userID string, view slack.HomeTabViewRequest, hash string) (*slack.ViewResponse, error)
	AuthTest() (*slack.AuthTestResponse, error)
	GetUserInfo(userID string) (*slack.User, error)
	GetTeamInfo() (*slack.TeamInfo, error)
}
