package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/slacktest"
	"github.com/stretchr/testify/assert"
	"github.com/updateme/updateme/domain/infra"
	"github.com/updateme/updateme/domain/model"
	gomock "go.uber.org/mock/gomock"
)

func newTestHandler(t *testing.T) (*Handler, *MockSlackAPI) {
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SMTP_HOST", "")

	ctrl := gomock.NewController(t)

	handler, err := NewHandler()
	assert.NoError(t, err)

	mockClient := NewMockSlackAPI(ctrl)
	handler.client = mockClient
	return handler, mockClient
}

func TestHandler_getOrCreateCompany(t *testing.T) {
	handler, mockClient := newTestHandler(t)

	mockClient.EXPECT().GetTeamInfo().Return(&slack.TeamInfo{Name: "Acme"}, nil).Times(1)

	company, err := handler.getOrCreateCompany("T0001")
	assert.NoError(t, err)
	assert.Equal(t, "Acme", company.Name)
	assert.Equal(t, "T0001", company.SlackTeamID)

	// Second call resolves the existing company without touching Slack.
	again, err := handler.getOrCreateCompany("T0001")
	assert.NoError(t, err)
	assert.Equal(t, company.UUID, again.UUID)

	// Onboarding seeds departments, teams, projects, types and reactions.
	departments, err := handler.ds.ReadDepartments(company.UUID, "")
	assert.NoError(t, err)
	assert.NotEmpty(t, departments)

	teams, err := handler.ds.ReadTeams(company.UUID, "", "")
	assert.NoError(t, err)
	assert.NotEmpty(t, teams)

	types, err := handler.ds.ReadStatusUpdateTypes(company.UUID, "")
	assert.NoError(t, err)
	assert.NotEmpty(t, types)

	reactions, err := handler.ds.ReadStatusUpdateReactions(company.UUID)
	assert.NoError(t, err)
	assert.NotEmpty(t, reactions)
}

func TestHandler_handleChannelMessage(t *testing.T) {
	handler, mockClient := newTestHandler(t)

	originalChannel := statusChannel
	statusChannel = "C0001"
	defer func() { statusChannel = originalChannel }()

	mockClient.EXPECT().GetTeamInfo().Return(&slack.TeamInfo{Name: "Acme"}, nil).Times(1)
	mockClient.EXPECT().GetUserInfo("U0001").
		Return(&slack.User{Name: "alice", RealName: "Alice"}, nil).Times(1)
	mockClient.EXPECT().PostMessage("C0001", gomock.Any(), gomock.Any()).
		Return("C0001", "111.222", nil).Times(1)

	handler.handleChannelMessage("T0001", &slackevents.MessageEvent{
		Channel: "C0001",
		User:    "U0001",
		Text:    "shipped the importer",
	})

	companies, err := handler.ds.ReadCompanies("", "T0001")
	assert.NoError(t, err)
	assert.Len(t, companies, 1)

	source := model.SourceSlackMessage
	draft, err := handler.ds.ReadLastUnpublishedStatusUpdate(companies[0].UUID, "U0001", 0, &source)
	assert.NoError(t, err)
	assert.NotNil(t, draft)
	assert.Equal(t, "shipped the importer", draft.Text)
	assert.Equal(t, "Alice", draft.AuthorSlackUserName)
	assert.False(t, draft.Published)
}

func TestHandler_handleChannelMessage_ignoresOtherChannels(t *testing.T) {
	handler, _ := newTestHandler(t)

	originalChannel := statusChannel
	statusChannel = "C0001"
	defer func() { statusChannel = originalChannel }()

	// No mock expectations: a message outside the status channel is dropped
	// before any Slack or datastore call.
	handler.handleChannelMessage("T0001", &slackevents.MessageEvent{
		Channel: "C9999",
		User:    "U0001",
		Text:    "off topic",
	})
}

func TestHandler_saveStatusUpdateFromDialog(t *testing.T) {
	handler, mockClient := newTestHandler(t)

	mockClient.EXPECT().GetTeamInfo().Return(&slack.TeamInfo{Name: "Acme"}, nil).Times(1)
	mockClient.EXPECT().GetUserInfo("U0001").
		Return(&slack.User{Name: "alice", RealName: "Alice"}, nil).Times(1)
	mockClient.EXPECT().PublishView("U0001", gomock.Any(), "").
		Return(&slack.ViewResponse{}, nil).AnyTimes()

	company, err := handler.getOrCreateCompany("T0001")
	assert.NoError(t, err)

	teams, err := handler.ds.ReadTeams(company.UUID, "", "")
	assert.NoError(t, err)
	assert.NotEmpty(t, teams)
	projects, err := handler.ds.ReadProjects(company.UUID, "")
	assert.NoError(t, err)
	assert.NotEmpty(t, projects)
	types, err := handler.ds.ReadStatusUpdateTypes(company.UUID, "")
	assert.NoError(t, err)
	assert.NotEmpty(t, types)

	callback := &slack.InteractionCallback{
		User: slack.User{ID: "U0001"},
	}
	callback.View.CallbackID = "status_update_modal"
	callback.View.State = &slack.ViewState{
		Values: map[string]map[string]slack.BlockAction{
			"update_text_block": {
				"update_text_input": {Value: "released v2 of the billing service"},
			},
			"update_link_block": {
				"update_link_input": {Value: "https://example.com/thread"},
			},
			"update_type_block": {
				"update_type_select": {SelectedOption: slack.OptionBlockObject{Value: types[0].UUID}},
			},
			"update_teams_block": {
				"update_teams_select": {SelectedOptions: []slack.OptionBlockObject{{Value: teams[0].UUID}}},
			},
			"update_projects_block": {
				"update_projects_select": {SelectedOptions: []slack.OptionBlockObject{{Value: projects[0].UUID}}},
			},
		},
	}

	err = handler.saveStatusUpdateFromDialog(company, callback)
	assert.NoError(t, err)

	source := model.SourceSlackDialog
	draft, err := handler.ds.ReadLastUnpublishedStatusUpdate(company.UUID, "U0001", 0, &source)
	assert.NoError(t, err)
	assert.NotNil(t, draft)
	assert.Equal(t, "released v2 of the billing service", draft.Text)
	assert.Equal(t, "https://example.com/thread", draft.DiscussLink)
	assert.Equal(t, types[0].UUID, draft.Type.UUID)
	assert.Len(t, draft.Teams, 1)
	assert.Equal(t, teams[0].UUID, draft.Teams[0].UUID)
	assert.Len(t, draft.Projects, 1)
}

func TestHandler_publishAndDeleteBlockActions(t *testing.T) {
	handler, mockClient := newTestHandler(t)

	mockClient.EXPECT().GetTeamInfo().Return(&slack.TeamInfo{Name: "Acme"}, nil).Times(1)
	mockClient.EXPECT().PublishView("U0001", gomock.Any(), "").
		Return(&slack.ViewResponse{}, nil).AnyTimes()

	company, err := handler.getOrCreateCompany("T0001")
	assert.NoError(t, err)

	update := model.NewStatusUpdate("draft to publish", model.SourceSlackDialog, company)
	update.AuthorSlackUserID = "U0001"
	assert.NoError(t, handler.ds.InsertStatusUpdate(update))

	callback := &slack.InteractionCallback{User: slack.User{ID: "U0001"}}
	err = handler.handleBlockAction(company, callback, &slack.BlockAction{
		ActionID: "publish_update",
		Value:    update.UUID,
	})
	assert.NoError(t, err)

	published, err := handler.ds.ReadStatusUpdate(company.UUID, update.UUID)
	assert.NoError(t, err)
	assert.True(t, published.Published)

	err = handler.handleBlockAction(company, callback, &slack.BlockAction{
		ActionID: "delete_update",
		Value:    update.UUID,
	})
	assert.NoError(t, err)

	deleted, err := handler.ds.ReadStatusUpdate(company.UUID, update.UUID)
	assert.NoError(t, err)
	assert.True(t, deleted.Deleted)
}

func TestHandler_addDepartmentSubmission(t *testing.T) {
	handler, mockClient := newTestHandler(t)

	mockClient.EXPECT().GetTeamInfo().Return(&slack.TeamInfo{Name: "Acme"}, nil).Times(1)
	mockClient.EXPECT().PublishView("U0001", gomock.Any(), "").
		Return(&slack.ViewResponse{}, nil).AnyTimes()

	company, err := handler.getOrCreateCompany("T0001")
	assert.NoError(t, err)

	callback := &slack.InteractionCallback{User: slack.User{ID: "U0001"}}
	callback.View.CallbackID = "add_department_modal"
	callback.View.State = &slack.ViewState{
		Values: map[string]map[string]slack.BlockAction{
			"department_name_block": {
				"department_name_input": {Value: "Operations"},
			},
		},
	}

	assert.NoError(t, handler.handleViewSubmission(company, callback))
	// Submitting the same name twice must not create a duplicate.
	assert.NoError(t, handler.handleViewSubmission(company, callback))

	departments, err := handler.ds.ReadDepartments(company.UUID, "Operations")
	assert.NoError(t, err)
	assert.Len(t, departments, 1)
}

func TestHandler_deleteTeamMenu(t *testing.T) {
	handler, mockClient := newTestHandler(t)

	mockClient.EXPECT().GetTeamInfo().Return(&slack.TeamInfo{Name: "Acme"}, nil).Times(1)
	mockClient.EXPECT().PublishView("U0001", gomock.Any(), "").
		Return(&slack.ViewResponse{}, nil).AnyTimes()

	company, err := handler.getOrCreateCompany("T0001")
	assert.NoError(t, err)

	teams, err := handler.ds.ReadTeams(company.UUID, "", "")
	assert.NoError(t, err)
	assert.NotEmpty(t, teams)
	team := teams[0]

	update := model.NewStatusUpdate("team update", model.SourceSlackDialog, company)
	update.AuthorSlackUserID = "U0001"
	update.Teams = []model.Team{team}
	assert.NoError(t, handler.ds.InsertStatusUpdate(update))

	err = handler.handleTeamMenu(company, "U0001", "delete_"+team.UUID)
	assert.NoError(t, err)

	gone, err := handler.ds.ReadTeam(company.UUID, team.UUID)
	assert.NoError(t, err)
	assert.True(t, gone.Deleted)

	orphaned, err := handler.ds.ReadStatusUpdate(company.UUID, update.UUID)
	assert.NoError(t, err)
	assert.True(t, orphaned.Deleted)
}

func TestDigestSubject(t *testing.T) {
	subject := digestSubject("Acme", time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, "Acme status updates for the week of August 28", subject)
}

func TestHandler_publishHomeTab_SlackTest(t *testing.T) {
	var publishedViews []map[string]interface{}
	server := slacktest.NewTestServer(func(c slacktest.Customize) {
		c.Handle("/views.publish", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				t.Errorf("failed to read body: %v", err)
			}
			var payload map[string]interface{}
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Errorf("failed to unmarshal views.publish payload: %v", err)
			}
			publishedViews = append(publishedViews, payload)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok": true}`))
		}))
	})

	go server.Start()
	defer server.Stop()

	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SMTP_HOST", "")

	handler, err := NewHandler()
	assert.NoError(t, err)
	handler.client = slack.New(
		"dummy-token",
		slack.OptionAPIURL(server.GetAPIURL()),
	)

	company := model.NewCompany("Acme", "T0001")
	assert.NoError(t, handler.ds.InsertCompany(company))
	assert.NoError(t, infra.CreateInitialData(handler.ds, company))

	err = handler.publishHomeTab(company, "U0001")
	assert.NoError(t, err)

	assert.Len(t, publishedViews, 1)
	viewJSON, _ := json.Marshal(publishedViews[0]["view"])
	assert.True(t, strings.Contains(string(viewJSON), "share_status_update"),
		"home tab should contain the share button")
	assert.True(t, strings.Contains(string(viewJSON), "home_tab_configuration"),
		"home tab should contain the tab switcher")
}
