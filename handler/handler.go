package handler

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/updateme/updateme/domain/infra"
	"github.com/updateme/updateme/domain/model"
	"github.com/updateme/updateme/email"
)

var statusChannel = os.Getenv("STATUS_CHANNEL")

const (
	tabMyUpdates      = "my_updates"
	tabCompanyUpdates = "company_updates"
	tabConfiguration  = "configuration"

	configTabDepartments = "departments"
	configTabTeams       = "teams"
	configTabProjects    = "projects"
)

type Handler struct {
	client        infra.SlackAPI
	ds            infra.Datastore
	prefs         infra.PreferenceStore
	ai            *infra.OpenAI
	mailer        *email.Mailer
	userInfoCache *ttlcache.Cache[string, *slack.User]
	botID         string

	// Guards company find-or-create during onboarding; two Slack events for
	// the same workspace may arrive concurrently.
	companyMu sync.Mutex
}

func NewHandler() (*Handler, error) {
	ds, err := infra.NewDatastore()
	if err != nil {
		return nil, err
	}

	var prefs infra.PreferenceStore = ds
	if os.Getenv("PREFERENCES_DRIVER") == "dynamodb" {
		dynamo, err := infra.NewDynamoPreferences()
		if err != nil {
			return nil, err
		}
		prefs = dynamo
	}

	ai, err := infra.NewOpenAI()
	if err != nil {
		return nil, err
	}

	mailer, err := email.NewMailerFromEnv()
	if err != nil {
		return nil, err
	}

	api := slack.New(os.Getenv("SLACK_BOT_TOKEN"))
	h := &Handler{
		client:        api,
		ds:            ds,
		prefs:         prefs,
		ai:            ai,
		mailer:        mailer,
		userInfoCache: ttlcache.New(ttlcache.WithTTL[string, *slack.User](24 * time.Hour)),
	}
	go h.userInfoCache.Start()
	return h, nil
}

func (h *Handler) Handle() error {
	webApi := slack.New(
		os.Getenv("SLACK_BOT_TOKEN"),
		slack.OptionAppLevelToken(os.Getenv("SLACK_APP_TOKEN")),
	)
	socketMode := socketmode.New(
		webApi,
	)
	authTest, authTestErr := webApi.AuthTest()
	if authTestErr != nil {
		fmt.Fprintf(os.Stderr, "SLACK_BOT_TOKEN is invalid: %v\n", authTestErr)
		os.Exit(1)
	}
	h.botID = authTest.UserID

	go func() {
		for envelope := range socketMode.Events {
			switch envelope.Type {
			case socketmode.EventTypeEventsAPI:
				socketMode.Ack(*envelope.Request)
				eventPayload, ok := envelope.Data.(slackevents.EventsAPIEvent)
				if !ok {
					slog.Error("Failed to cast to EventsAPIEvent")
					continue
				}
				h.handleCallBack(&eventPayload)
			case socketmode.EventTypeInteractive:
				socketMode.Ack(*envelope.Request)
				callback, ok := envelope.Data.(slack.InteractionCallback)
				if !ok {
					slog.Error("Failed to cast to InteractionCallback")
					continue
				}
				h.handleInteractions(&callback)
			default:
				socketMode.Debugf("Skipped: %v", envelope.Type)
			}
		}
	}()

	return socketMode.Run()
}

func (h *Handler) handleCallBack(event *slackevents.EventsAPIEvent) {
	switch event.Type {
	case slackevents.CallbackEvent:
		innerEvent := event.InnerEvent
		switch ev := innerEvent.Data.(type) {
		case *slackevents.AppHomeOpenedEvent:
			company, err := h.getOrCreateCompany(event.TeamID)
			if err != nil {
				slog.Error("getOrCreateCompany failed", slog.Any("err", err))
				return
			}
			if err := h.publishHomeTab(company, ev.User); err != nil {
				slog.Error("publishHomeTab failed", slog.Any("err", err))
			}
		case *slackevents.MessageEvent:
			h.handleChannelMessage(event.TeamID, ev)
		}
	default:
		slog.Warn("Unsupported EventsAPIEvent type", slog.Any("type", event.Type))
	}
}

// handleChannelMessage captures a plain message in the status channel as an
// unpublished status update and replaces it with an editable preview.
func (h *Handler) handleChannelMessage(slackTeamID string, ev *slackevents.MessageEvent) {
	if statusChannel == "" || ev.Channel != statusChannel {
		return
	}
	if ev.BotID != "" || ev.SubType != "" || ev.User == h.botID {
		return
	}

	company, err := h.getOrCreateCompany(slackTeamID)
	if err != nil {
		slog.Error("getOrCreateCompany failed", slog.Any("err", err))
		return
	}

	update := model.NewStatusUpdate(ev.Text, model.SourceSlackMessage, company)
	update.IsMarkdown = true
	update.AuthorSlackUserID = ev.User
	if user, err := h.getUserInfo(ev.User); err == nil {
		update.AuthorSlackUserName = getUserPreferredName(user)
	} else {
		slog.Error("GetUserInfo failed", slog.Any("err", err))
	}

	if err := h.ds.InsertStatusUpdate(update); err != nil {
		slog.Error("InsertStatusUpdate failed", slog.Any("err", err))
		return
	}

	teams, err := h.ds.ReadTeams(company.UUID, "", "")
	if err != nil {
		slog.Error("ReadTeams failed", slog.Any("err", err))
		return
	}
	projects, err := h.ds.ReadProjects(company.UUID, "")
	if err != nil {
		slog.Error("ReadProjects failed", slog.Any("err", err))
		return
	}
	types, err := h.ds.ReadStatusUpdateTypes(company.UUID, "")
	if err != nil {
		slog.Error("ReadStatusUpdateTypes failed", slog.Any("err", err))
		return
	}

	if _, _, err := h.client.PostMessage(
		ev.Channel,
		slack.MsgOptionText(update.Text, false),
		slack.MsgOptionBlocks(statusUpdatePreviewBlocks(update, teams, projects, types)...),
	); err != nil {
		slog.Error("Failed to post status update preview", slog.Any("err", err))
	}
}

func (h *Handler) handleInteractions(callback *slack.InteractionCallback) {
	company, err := h.getOrCreateCompany(callback.Team.ID)
	if err != nil {
		slog.Error("getOrCreateCompany failed", slog.Any("err", err))
		return
	}

	switch callback.Type {
	case slack.InteractionTypeBlockActions:
		if len(callback.ActionCallback.BlockActions) < 1 {
			return
		}
		action := callback.ActionCallback.BlockActions[0]
		if err := h.handleBlockAction(company, callback, action); err != nil {
			slog.Error("handleBlockAction failed",
				slog.String("action", action.ActionID), slog.Any("err", err))
		}
	case slack.InteractionTypeViewSubmission:
		if err := h.handleViewSubmission(company, callback); err != nil {
			slog.Error("handleViewSubmission failed",
				slog.String("callback_id", callback.View.CallbackID), slog.Any("err", err))
		}
	}
}

func (h *Handler) handleBlockAction(company *model.Company, callback *slack.InteractionCallback, action *slack.BlockAction) error {
	userID := callback.User.ID

	switch action.ActionID {
	case "home_tab_my_updates", "home_tab_company_updates", "home_tab_configuration":
		prefs, err := h.getOrCreatePreferences(userID)
		if err != nil {
			return err
		}
		prefs.ActiveTab = strings.TrimPrefix(action.ActionID, "home_tab_")
		if err := h.prefs.InsertSlackUserPreferences(prefs); err != nil {
			return err
		}
		return h.publishHomeTab(company, userID)

	case "configuration_tab_departments", "configuration_tab_teams", "configuration_tab_projects":
		prefs, err := h.getOrCreatePreferences(userID)
		if err != nil {
			return err
		}
		prefs.ActiveTab = tabConfiguration
		prefs.ActiveConfigurationTab = strings.TrimPrefix(action.ActionID, "configuration_tab_")
		if err := h.prefs.InsertSlackUserPreferences(prefs); err != nil {
			return err
		}
		return h.publishHomeTab(company, userID)

	case "home_team_filter_changed", "home_department_filter_changed", "home_project_filter_changed":
		prefs, err := h.getOrCreatePreferences(userID)
		if err != nil {
			return err
		}
		value := action.SelectedOption.Value
		if value == "all" {
			value = ""
		}
		switch action.ActionID {
		case "home_team_filter_changed":
			prefs.ActiveTeamUUID = value
		case "home_department_filter_changed":
			prefs.ActiveDepartmentUUID = value
		case "home_project_filter_changed":
			prefs.ActiveProjectUUID = value
		}
		if err := h.prefs.InsertSlackUserPreferences(prefs); err != nil {
			return err
		}
		return h.publishHomeTab(company, userID)

	case "share_status_update":
		return h.openStatusUpdateDialog(company, callback.TriggerID, userID)

	case "publish_update":
		published, err := h.ds.PublishStatusUpdate(company.UUID, action.Value)
		if err != nil {
			return err
		}
		if !published {
			slog.Warn("Status update not found for publishing",
				slog.String("uuid", action.Value), slog.String("company", company.UUID))
		}
		return h.publishHomeTab(company, userID)

	case "delete_update":
		if err := h.ds.DeleteStatusUpdate(company.UUID, action.Value); err != nil {
			return err
		}
		return h.publishHomeTab(company, userID)

	case "preview_publish_clicked":
		published, err := h.ds.PublishStatusUpdate(company.UUID, action.Value)
		if err != nil {
			return err
		}
		if !published {
			slog.Warn("Status update not found for publishing", slog.String("uuid", action.Value))
			return nil
		}
		update, err := h.ds.ReadStatusUpdate(company.UUID, action.Value)
		if err != nil {
			return err
		}
		if update == nil {
			return nil
		}
		_, _, _, err = h.client.UpdateMessage(
			callback.Channel.ID,
			callback.Message.Timestamp,
			slack.MsgOptionText(update.Text, false),
			slack.MsgOptionBlocks(statusUpdatePublishedBlocks(update)...),
		)
		return err

	case "preview_discard_clicked":
		if err := h.ds.DeleteStatusUpdate(company.UUID, action.Value); err != nil {
			return err
		}
		_, _, _, err := h.client.UpdateMessage(
			callback.Channel.ID,
			callback.Message.Timestamp,
			slack.MsgOptionText("Status update discarded.", false),
		)
		return err

	case "preview_team_selected", "preview_project_selected", "preview_type_selected":
		return h.updatePreviewSelections(company, callback, action)

	case "add_department_clicked":
		_, err := h.client.OpenView(callback.TriggerID, addDepartmentModal())
		return err

	case "add_team_clicked":
		departments, err := h.ds.ReadDepartments(company.UUID, "")
		if err != nil {
			return err
		}
		_, err = h.client.OpenView(callback.TriggerID, addTeamModal(departments))
		return err

	case "add_project_clicked":
		_, err := h.client.OpenView(callback.TriggerID, addProjectModal())
		return err

	case "department_menu_clicked":
		return h.handleDepartmentMenu(company, userID, action.SelectedOption.Value)

	case "team_menu_clicked":
		return h.handleTeamMenu(company, userID, action.SelectedOption.Value)

	case "project_menu_clicked":
		return h.handleProjectMenu(company, userID, action.SelectedOption.Value)
	}

	return nil
}

// updatePreviewSelections re-reads the selector state of a channel preview
// message and saves the updated team/project/type associations.
func (h *Handler) updatePreviewSelections(company *model.Company, callback *slack.InteractionCallback, action *slack.BlockAction) error {
	updateUUID := action.BlockID[strings.LastIndex(action.BlockID, ":")+1:]
	update, err := h.ds.ReadStatusUpdate(company.UUID, updateUUID)
	if err != nil {
		return err
	}
	if update == nil {
		slog.Warn("Status update not found for preview selection", slog.String("uuid", updateUUID))
		return nil
	}
	if callback.BlockActionState == nil {
		return nil
	}

	for _, blockState := range callback.BlockActionState.Values {
		for actionID, state := range blockState {
			switch actionID {
			case "preview_team_selected":
				update.Teams = nil
				for _, option := range state.SelectedOptions {
					team, err := h.ds.ReadTeam(company.UUID, option.Value)
					if err != nil {
						return err
					}
					if team != nil {
						update.Teams = append(update.Teams, *team)
					}
				}
			case "preview_project_selected":
				update.Projects = nil
				for _, option := range state.SelectedOptions {
					project, err := h.ds.ReadProject(company.UUID, option.Value)
					if err != nil {
						return err
					}
					if project != nil {
						update.Projects = append(update.Projects, *project)
					}
				}
			case "preview_type_selected":
				update.Type = nil
				if state.SelectedOption.Value != "" {
					t, err := h.ds.ReadStatusUpdateType(company.UUID, state.SelectedOption.Value)
					if err != nil {
						return err
					}
					update.Type = t
				}
			}
		}
	}

	return h.ds.InsertStatusUpdate(update)
}

func (h *Handler) handleDepartmentMenu(company *model.Company, userID, value string) error {
	if !strings.HasPrefix(value, "delete_") {
		return nil
	}
	departmentUUID := strings.TrimPrefix(value, "delete_")
	department, err := h.ds.ReadDepartment(company.UUID, departmentUUID)
	if err != nil {
		return err
	}
	if department == nil {
		slog.Warn("Department not found", slog.String("uuid", departmentUUID))
		return nil
	}
	teams, err := h.ds.ReadTeams(company.UUID, "", department.UUID)
	if err != nil {
		return err
	}
	for _, team := range teams {
		if err := h.ds.DeleteTeam(company.UUID, team.UUID); err != nil {
			return err
		}
	}
	if err := h.ds.DeleteDepartment(company.UUID, department.UUID); err != nil {
		return err
	}
	return h.publishHomeTab(company, userID)
}

func (h *Handler) handleTeamMenu(company *model.Company, userID, value string) error {
	if !strings.HasPrefix(value, "delete_") {
		return nil
	}
	teamUUID := strings.TrimPrefix(value, "delete_")
	team, err := h.ds.ReadTeam(company.UUID, teamUUID)
	if err != nil {
		return err
	}
	if team == nil {
		slog.Warn("Team not found", slog.String("uuid", teamUUID))
		return nil
	}
	if err := h.ds.DeleteTeamStatusUpdates(company.UUID, team.UUID); err != nil {
		return err
	}
	if err := h.ds.DeleteTeam(company.UUID, team.UUID); err != nil {
		return err
	}
	return h.publishHomeTab(company, userID)
}

func (h *Handler) handleProjectMenu(company *model.Company, userID, value string) error {
	if !strings.HasPrefix(value, "delete_") {
		return nil
	}
	projectUUID := strings.TrimPrefix(value, "delete_")
	if err := h.ds.DeleteProject(company.UUID, projectUUID); err != nil {
		return err
	}
	return h.publishHomeTab(company, userID)
}

func (h *Handler) handleViewSubmission(company *model.Company, callback *slack.InteractionCallback) error {
	userID := callback.User.ID

	switch callback.View.CallbackID {
	case "status_update_modal":
		return h.saveStatusUpdateFromDialog(company, callback)

	case "add_department_modal":
		name := strings.TrimSpace(viewInputValue(callback, "department_name_block", "department_name_input"))
		if name == "" {
			return fmt.Errorf("department name is empty")
		}
		existing, err := h.ds.ReadDepartments(company.UUID, name)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			if err := h.ds.InsertDepartment(model.NewDepartment(name, company)); err != nil {
				return err
			}
		}
		return h.publishHomeTab(company, userID)

	case "add_team_modal":
		name := strings.TrimSpace(viewInputValue(callback, "team_name_block", "team_name_input"))
		if name == "" {
			return fmt.Errorf("team name is empty")
		}
		departmentUUID := viewSelectedValue(callback, "team_department_block", "team_department_select")
		department, err := h.ds.ReadDepartment(company.UUID, departmentUUID)
		if err != nil {
			return err
		}
		if department == nil {
			return fmt.Errorf("department not found: %s", departmentUUID)
		}
		existing, err := h.ds.ReadTeams(company.UUID, name, department.UUID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			if err := h.ds.InsertTeam(model.NewTeam(name, department)); err != nil {
				return err
			}
		}
		return h.publishHomeTab(company, userID)

	case "add_project_modal":
		name := strings.TrimSpace(viewInputValue(callback, "project_name_block", "project_name_input"))
		if name == "" {
			return fmt.Errorf("project name is empty")
		}
		existing, err := h.ds.ReadProjects(company.UUID, name)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			if err := h.ds.InsertProject(model.NewProject(name, company)); err != nil {
				return err
			}
		}
		return h.publishHomeTab(company, userID)
	}

	return nil
}

func (h *Handler) openStatusUpdateDialog(company *model.Company, triggerID, userID string) error {
	source := model.SourceSlackDialog
	draft, err := h.ds.ReadLastUnpublishedStatusUpdate(company.UUID, userID, 0, &source)
	if err != nil {
		return err
	}

	teams, err := h.ds.ReadTeams(company.UUID, "", "")
	if err != nil {
		return err
	}
	projects, err := h.ds.ReadProjects(company.UUID, "")
	if err != nil {
		return err
	}
	types, err := h.ds.ReadStatusUpdateTypes(company.UUID, "")
	if err != nil {
		return err
	}

	_, err = h.client.OpenView(triggerID, statusUpdateDialogView(draft, teams, projects, types))
	return err
}

func (h *Handler) saveStatusUpdateFromDialog(company *model.Company, callback *slack.InteractionCallback) error {
	userID := callback.User.ID

	text := strings.TrimSpace(viewInputValue(callback, "update_text_block", "update_text_input"))
	if text == "" {
		return fmt.Errorf("status update text is empty")
	}

	var update *model.StatusUpdate
	if existingUUID := callback.View.PrivateMetadata; existingUUID != "" {
		existing, err := h.ds.ReadStatusUpdate(company.UUID, existingUUID)
		if err != nil {
			return err
		}
		update = existing
	}
	if update == nil {
		update = model.NewStatusUpdate(text, model.SourceSlackDialog, company)
	}
	update.Text = text
	update.IsMarkdown = true
	update.AuthorSlackUserID = userID
	if user, err := h.getUserInfo(userID); err == nil {
		update.AuthorSlackUserName = getUserPreferredName(user)
	} else {
		slog.Error("GetUserInfo failed", slog.Any("err", err))
	}
	update.DiscussLink = strings.TrimSpace(viewInputValue(callback, "update_link_block", "update_link_input"))

	update.Type = nil
	if typeUUID := viewSelectedValue(callback, "update_type_block", "update_type_select"); typeUUID != "" {
		t, err := h.ds.ReadStatusUpdateType(company.UUID, typeUUID)
		if err != nil {
			return err
		}
		update.Type = t
	}

	update.Teams = nil
	for _, teamUUID := range viewSelectedValues(callback, "update_teams_block", "update_teams_select") {
		team, err := h.ds.ReadTeam(company.UUID, teamUUID)
		if err != nil {
			return err
		}
		if team != nil {
			update.Teams = append(update.Teams, *team)
		}
	}

	update.Projects = nil
	for _, projectUUID := range viewSelectedValues(callback, "update_projects_block", "update_projects_select") {
		project, err := h.ds.ReadProject(company.UUID, projectUUID)
		if err != nil {
			return err
		}
		if project != nil {
			update.Projects = append(update.Projects, *project)
		}
	}

	if err := h.ds.InsertStatusUpdate(update); err != nil {
		return err
	}
	return h.publishHomeTab(company, userID)
}

// getOrCreateCompany resolves the tenant for a Slack workspace, onboarding
// it with seed data on first contact.
func (h *Handler) getOrCreateCompany(slackTeamID string) (*model.Company, error) {
	if slackTeamID == "" {
		return nil, fmt.Errorf("slack team ID is empty")
	}

	h.companyMu.Lock()
	defer h.companyMu.Unlock()

	companies, err := h.ds.ReadCompanies("", slackTeamID)
	if err != nil {
		return nil, fmt.Errorf("ReadCompanies failed: %w", err)
	}
	if len(companies) > 0 {
		return &companies[0], nil
	}

	name := slackTeamID
	if info, err := h.client.GetTeamInfo(); err == nil {
		name = info.Name
	} else {
		slog.Error("GetTeamInfo failed", slog.Any("err", err))
	}

	company := model.NewCompany(name, slackTeamID)
	if err := h.ds.InsertCompany(company); err != nil {
		return nil, fmt.Errorf("InsertCompany failed: %w", err)
	}
	if err := infra.CreateInitialData(h.ds, company); err != nil {
		return nil, fmt.Errorf("CreateInitialData failed: %w", err)
	}
	slog.Info("Onboarded new company",
		slog.String("slack_team_id", slackTeamID), slog.String("uuid", company.UUID))
	return company, nil
}

func (h *Handler) getOrCreatePreferences(userID string) (*model.SlackUserPreferences, error) {
	prefs, err := h.prefs.ReadSlackUserPreferences(userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = &model.SlackUserPreferences{
			UserID:                 userID,
			ActiveTab:              tabMyUpdates,
			ActiveConfigurationTab: configTabDepartments,
		}
		if err := h.prefs.InsertSlackUserPreferences(prefs); err != nil {
			return nil, err
		}
	}
	return prefs, nil
}

func (h *Handler) getUserInfo(userID string) (*slack.User, error) {
	cacheKey := "user_" + userID
	if user := h.userInfoCache.Get(cacheKey); user != nil {
		return user.Value(), nil
	}
	user, err := h.client.GetUserInfo(userID)
	if err != nil {
		return nil, err
	}
	h.userInfoCache.Set(cacheKey, user, ttlcache.DefaultTTL)
	return user, nil
}

func getUserPreferredName(user *slack.User) string {
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName
	}
	if user.RealName != "" {
		return user.RealName
	}
	return user.Name
}

// StartDigestScheduler wakes up daily and sends the email digest on the
// configured weekday (DIGEST_DAY, 0=Sunday..6=Saturday, default Friday).
func (h *Handler) StartDigestScheduler() {
	dayStr := os.Getenv("DIGEST_DAY")
	if dayStr == "" {
		dayStr = "5"
	}
	desiredDay, err := strconv.Atoi(dayStr)
	if err != nil || desiredDay < 0 || desiredDay > 6 {
		slog.Error("Invalid DIGEST_DAY", slog.Any("day", dayStr))
		return
	}

	go func() {
		for {
			now := time.Now().UTC()
			nextRun := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.UTC)
			if now.After(nextRun) {
				nextRun = nextRun.Add(24 * time.Hour)
			}

			sleepDuration := time.Until(nextRun)
			slog.Info("Next digest check", slog.Any("next", nextRun), slog.Any("sleep", sleepDuration))
			time.Sleep(sleepDuration)

			now = time.Now().UTC()
			if int(now.Weekday()) == desiredDay {
				slog.Info("Digest time has come, sending digests")
				h.sendDigests()
			}
		}
	}()
}

func (h *Handler) sendDigests() {
	if h.mailer == nil {
		slog.Info("No SMTP configuration, skip digest")
		return
	}
	recipients := parseCSV(os.Getenv("DIGEST_RECIPIENTS"))
	if len(recipients) == 0 {
		slog.Warn("No DIGEST_RECIPIENTS set, skip digest")
		return
	}

	companies, err := h.ds.ReadCompanies("", "")
	if err != nil {
		slog.Error("ReadCompanies failed", slog.Any("err", err))
		return
	}

	for _, company := range companies {
		if err := h.sendCompanyDigest(&company, recipients); err != nil {
			slog.Error("sendCompanyDigest failed",
				slog.String("company", company.Name), slog.Any("err", err))
		}
	}
}

func (h *Handler) sendCompanyDigest(company *model.Company, recipients []string) error {
	after := time.Now().UTC().AddDate(0, 0, -7)
	filter := infra.DefaultStatusUpdateFilter()
	filter.CreatedAfter = &after
	updates, err := h.ds.ReadStatusUpdates(company.UUID, filter)
	if err != nil {
		return fmt.Errorf("ReadStatusUpdates failed: %w", err)
	}
	if len(updates) == 0 {
		slog.Info("No published updates this week, skip digest", slog.String("company", company.Name))
		return nil
	}

	body := email.ComposeDigest(updates)
	if h.ai != nil {
		summary, err := h.ai.GenerateDigestSummary(updates)
		if err != nil {
			slog.Error("GenerateDigestSummary failed", slog.Any("err", err))
		} else if summary != "" {
			body = "<p>" + summary + "</p>" + body
		}
	}

	subject := digestSubject(company.Name, time.Now().UTC())
	if err := h.mailer.Send(recipients, subject, body); err != nil {
		return err
	}
	slog.Info("Digest sent", slog.String("company", company.Name), slog.Int("updates", len(updates)))
	return nil
}

func digestSubject(companyName string, now time.Time) string {
	return fmt.Sprintf("%s status updates for the week of %s",
		companyName, now.Format("January 2"))
}

func parseCSV(csv string) []string {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func viewInputValue(callback *slack.InteractionCallback, blockID, actionID string) string {
	if callback.View.State == nil {
		return ""
	}
	return callback.View.State.Values[blockID][actionID].Value
}

func viewSelectedValue(callback *slack.InteractionCallback, blockID, actionID string) string {
	if callback.View.State == nil {
		return ""
	}
	return callback.View.State.Values[blockID][actionID].SelectedOption.Value
}

func viewSelectedValues(callback *slack.InteractionCallback, blockID, actionID string) []string {
	if callback.View.State == nil {
		return nil
	}
	var values []string
	for _, option := range callback.View.State.Values[blockID][actionID].SelectedOptions {
		values = append(values, option.Value)
	}
	return values
}
