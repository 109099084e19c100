package handler

import (
	"fmt"

	"github.com/slack-go/slack"
	"github.com/updateme/updateme/domain/infra"
	"github.com/updateme/updateme/domain/model"
	"github.com/updateme/updateme/utils"
)

func (h *Handler) publishHomeTab(company *model.Company, userID string) error {
	prefs, err := h.getOrCreatePreferences(userID)
	if err != nil {
		return err
	}

	blocks := []slack.Block{
		slack.NewActionBlock(
			"home_tabs",
			tabButton("home_tab_my_updates", "📝 My updates", prefs.ActiveTab == tabMyUpdates),
			tabButton("home_tab_company_updates", "🏢 Company updates", prefs.ActiveTab == tabCompanyUpdates),
			tabButton("home_tab_configuration", "⚙️ Configuration", prefs.ActiveTab == tabConfiguration),
		),
		slack.NewDividerBlock(),
	}

	var tabBlocks []slack.Block
	switch prefs.ActiveTab {
	case tabCompanyUpdates:
		tabBlocks, err = h.companyUpdatesBlocks(company, prefs)
	case tabConfiguration:
		tabBlocks, err = h.configurationBlocks(company, prefs)
	default:
		tabBlocks, err = h.myUpdatesBlocks(company, userID)
	}
	if err != nil {
		return err
	}
	blocks = append(blocks, tabBlocks...)

	view := slack.HomeTabViewRequest{
		Type:   slack.VTHomeTab,
		Blocks: slack.Blocks{BlockSet: blocks},
	}
	if _, err := h.client.PublishView(userID, view, ""); err != nil {
		return fmt.Errorf("PublishView failed: %w", err)
	}
	return nil
}

func tabButton(actionID, label string, active bool) *slack.ButtonBlockElement {
	button := slack.NewButtonBlockElement(
		actionID,
		actionID,
		slack.NewTextBlockObject("plain_text", label, true, false),
	)
	if active {
		button = button.WithStyle(slack.StylePrimary)
	}
	return button
}

func (h *Handler) myUpdatesBlocks(company *model.Company, userID string) ([]slack.Block, error) {
	filter := infra.StatusUpdateFilter{
		AuthorSlackUserID: userID,
		Deleted:           infra.BoolFilterFalse,
	}
	updates, err := h.ds.ReadStatusUpdates(company.UUID, filter)
	if err != nil {
		return nil, err
	}

	blocks := []slack.Block{
		slack.NewActionBlock(
			"my_updates_actions",
			slack.NewButtonBlockElement(
				"share_status_update",
				"share_status_update",
				slack.NewTextBlockObject("plain_text", "✏️ Share a status update", true, false),
			).WithStyle(slack.StylePrimary),
		),
		slack.NewDividerBlock(),
	}

	if len(updates) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", "You have not shared any status updates yet.", false, false),
			nil, nil,
		))
		return blocks, nil
	}

	for _, update := range updates {
		blocks = append(blocks, statusUpdateBlocks(&update)...)
		if !update.Published {
			blocks = append(blocks, slack.NewActionBlock(
				"draft_actions:"+update.UUID,
				slack.NewButtonBlockElement(
					"publish_update",
					update.UUID,
					slack.NewTextBlockObject("plain_text", "🚀 Publish", true, false),
				).WithStyle(slack.StylePrimary),
				slack.NewButtonBlockElement(
					"delete_update",
					update.UUID,
					slack.NewTextBlockObject("plain_text", "🗑 Delete", true, false),
				).WithStyle(slack.StyleDanger),
			))
		}
		blocks = append(blocks, slack.NewDividerBlock())
	}
	return blocks, nil
}

func (h *Handler) companyUpdatesBlocks(company *model.Company, prefs *model.SlackUserPreferences) ([]slack.Block, error) {
	departments, err := h.ds.ReadDepartments(company.UUID, "")
	if err != nil {
		return nil, err
	}
	teams, err := h.ds.ReadTeams(company.UUID, "", "")
	if err != nil {
		return nil, err
	}
	projects, err := h.ds.ReadProjects(company.UUID, "")
	if err != nil {
		return nil, err
	}

	filter := infra.DefaultStatusUpdateFilter()
	if prefs.ActiveTeamUUID != "" {
		filter.FromTeams = []string{prefs.ActiveTeamUUID}
	}
	if prefs.ActiveDepartmentUUID != "" {
		filter.FromDepartments = []string{prefs.ActiveDepartmentUUID}
	}
	if prefs.ActiveProjectUUID != "" {
		filter.FromProjects = []string{prefs.ActiveProjectUUID}
	}
	updates, err := h.ds.ReadStatusUpdates(company.UUID, filter)
	if err != nil {
		return nil, err
	}

	departmentOptions := []*slack.OptionBlockObject{allOption("All departments")}
	for _, department := range departments {
		departmentOptions = append(departmentOptions, slack.NewOptionBlockObject(department.UUID,
			slack.NewTextBlockObject("plain_text", department.Name, false, false), nil))
	}
	teamOptions := []*slack.OptionBlockObject{allOption("All teams")}
	for _, team := range teams {
		teamOptions = append(teamOptions, slack.NewOptionBlockObject(team.UUID,
			slack.NewTextBlockObject("plain_text", teamLabel(team), false, false), nil))
	}
	projectOptions := []*slack.OptionBlockObject{allOption("All projects")}
	for _, project := range projects {
		projectOptions = append(projectOptions, slack.NewOptionBlockObject(project.UUID,
			slack.NewTextBlockObject("plain_text", project.Name, false, false), nil))
	}

	blocks := []slack.Block{
		slack.NewActionBlock(
			"company_updates_filters",
			filterSelect("home_department_filter_changed", "Department", departmentOptions, prefs.ActiveDepartmentUUID),
			filterSelect("home_team_filter_changed", "Team", teamOptions, prefs.ActiveTeamUUID),
			filterSelect("home_project_filter_changed", "Project", projectOptions, prefs.ActiveProjectUUID),
		),
		slack.NewDividerBlock(),
	}

	if len(updates) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", "No published status updates match the current filters.", false, false),
			nil, nil,
		))
		return blocks, nil
	}

	for _, update := range updates {
		blocks = append(blocks, statusUpdateBlocks(&update)...)
		blocks = append(blocks, slack.NewDividerBlock())
	}
	return blocks, nil
}

func allOption(label string) *slack.OptionBlockObject {
	return slack.NewOptionBlockObject("all",
		slack.NewTextBlockObject("plain_text", label, false, false), nil)
}

func filterSelect(actionID, placeholder string, options []*slack.OptionBlockObject, selectedValue string) *slack.SelectBlockElement {
	element := &slack.SelectBlockElement{
		Type:        slack.OptTypeStatic,
		ActionID:    actionID,
		Options:     options,
		Placeholder: slack.NewTextBlockObject("plain_text", placeholder, false, false),
	}
	for _, option := range options {
		if option.Value == selectedValue {
			element.InitialOption = option
		}
	}
	return element
}

func teamLabel(team model.Team) string {
	if team.Department != nil {
		return team.Department.Name + " / " + team.Name
	}
	return team.Name
}

// statusUpdateBlocks renders a single status update for the home tab.
func statusUpdateBlocks(update *model.StatusUpdate) []slack.Block {
	var header string
	if update.Type != nil {
		header = "*" + update.Type.Name + "*"
	}
	if len(update.Projects) > 0 {
		names := make([]string, 0, len(update.Projects))
		for _, project := range update.Projects {
			names = append(names, project.Name)
		}
		if header != "" {
			header += " "
		}
		header += "@ " + utils.JoinStringsWithCommas(names)
	}
	if !update.Published {
		if header != "" {
			header += " "
		}
		header += "_(draft)_"
	}

	blocks := []slack.Block{}
	if header != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", header, false, false),
			nil, nil,
		))
	}
	blocks = append(blocks, slack.NewSectionBlock(
		slack.NewTextBlockObject("mrkdwn", update.Text, false, false),
		nil, nil,
	))
	if update.DiscussLink != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("<%s|Discussion>", update.DiscussLink), false, false),
			nil, nil,
		))
	}

	context := fmt.Sprintf("Shared by *%s* on %s",
		update.AuthorSlackUserName, update.CreatedAt.Format("Monday, January 2"))
	if len(update.Teams) > 0 {
		names := make([]string, 0, len(update.Teams))
		for _, team := range update.Teams {
			names = append(names, team.Name)
		}
		suffix := " team"
		if len(update.Teams) > 1 {
			suffix = " teams"
		}
		context += " on behalf of " + utils.JoinStringsWithCommas(names) + suffix
	}
	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject("mrkdwn", context, false, false),
	))
	return blocks
}

func (h *Handler) configurationBlocks(company *model.Company, prefs *model.SlackUserPreferences) ([]slack.Block, error) {
	blocks := []slack.Block{
		slack.NewActionBlock(
			"configuration_tabs",
			tabButton("configuration_tab_departments", "Departments", prefs.ActiveConfigurationTab == configTabDepartments),
			tabButton("configuration_tab_teams", "Teams", prefs.ActiveConfigurationTab == configTabTeams),
			tabButton("configuration_tab_projects", "Projects", prefs.ActiveConfigurationTab == configTabProjects),
		),
		slack.NewDividerBlock(),
	}

	switch prefs.ActiveConfigurationTab {
	case configTabTeams:
		teams, err := h.ds.ReadTeams(company.UUID, "", "")
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, addButtonBlock("add_team_clicked", "➕ Add team"))
		for _, team := range teams {
			blocks = append(blocks, configItemBlock(teamLabel(team), "team_menu_clicked", team.UUID))
		}
	case configTabProjects:
		projects, err := h.ds.ReadProjects(company.UUID, "")
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, addButtonBlock("add_project_clicked", "➕ Add project"))
		for _, project := range projects {
			blocks = append(blocks, configItemBlock(project.Name, "project_menu_clicked", project.UUID))
		}
	default:
		departments, err := h.ds.ReadDepartments(company.UUID, "")
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, addButtonBlock("add_department_clicked", "➕ Add department"))
		for _, department := range departments {
			blocks = append(blocks, configItemBlock(department.Name, "department_menu_clicked", department.UUID))
		}
	}
	return blocks, nil
}

func addButtonBlock(actionID, label string) *slack.ActionBlock {
	return slack.NewActionBlock(
		actionID+"_block",
		slack.NewButtonBlockElement(
			actionID,
			actionID,
			slack.NewTextBlockObject("plain_text", label, true, false),
		),
	)
}

func configItemBlock(name, menuActionID, uuid string) *slack.SectionBlock {
	menu := slack.NewOverflowBlockElement(
		menuActionID,
		slack.NewOptionBlockObject("delete_"+uuid,
			slack.NewTextBlockObject("plain_text", "Delete", false, false), nil),
	)
	return slack.NewSectionBlock(
		slack.NewTextBlockObject("mrkdwn", name, false, false),
		nil,
		slack.NewAccessory(menu),
	)
}

func statusUpdateDialogView(draft *model.StatusUpdate, teams []model.Team, projects []model.Project, types []model.StatusUpdateType) slack.ModalViewRequest {
	typeOptions := make([]*slack.OptionBlockObject, 0, len(types))
	for _, t := range types {
		typeOptions = append(typeOptions, slack.NewOptionBlockObject(t.UUID,
			slack.NewTextBlockObject("plain_text", t.Name, false, false), nil))
	}
	teamOptions := make([]*slack.OptionBlockObject, 0, len(teams))
	for _, team := range teams {
		teamOptions = append(teamOptions, slack.NewOptionBlockObject(team.UUID,
			slack.NewTextBlockObject("plain_text", teamLabel(team), false, false), nil))
	}
	projectOptions := make([]*slack.OptionBlockObject, 0, len(projects))
	for _, project := range projects {
		projectOptions = append(projectOptions, slack.NewOptionBlockObject(project.UUID,
			slack.NewTextBlockObject("plain_text", project.Name, false, false), nil))
	}

	typeSelect := &slack.SelectBlockElement{
		Type:        slack.OptTypeStatic,
		ActionID:    "update_type_select",
		Options:     typeOptions,
		Placeholder: slack.NewTextBlockObject("plain_text", "Pick a type", false, false),
	}
	teamsSelect := &slack.MultiSelectBlockElement{
		Type:        slack.MultiOptTypeStatic,
		ActionID:    "update_teams_select",
		Options:     teamOptions,
		Placeholder: slack.NewTextBlockObject("plain_text", "Pick teams", false, false),
	}
	projectsSelect := &slack.MultiSelectBlockElement{
		Type:        slack.MultiOptTypeStatic,
		ActionID:    "update_projects_select",
		Options:     projectOptions,
		Placeholder: slack.NewTextBlockObject("plain_text", "Pick projects", false, false),
	}
	textInput := &slack.PlainTextInputBlockElement{
		Type:        slack.METPlainTextInput,
		ActionID:    "update_text_input",
		Multiline:   true,
		Placeholder: slack.NewTextBlockObject("plain_text", "What do you want to share?", false, false),
	}
	linkInput := &slack.PlainTextInputBlockElement{
		Type:        slack.METPlainTextInput,
		ActionID:    "update_link_input",
		Placeholder: slack.NewTextBlockObject("plain_text", "https://...", false, false),
	}

	var privateMetadata string
	if draft != nil {
		privateMetadata = draft.UUID
		textInput.InitialValue = draft.Text
		linkInput.InitialValue = draft.DiscussLink
		if draft.Type != nil {
			for _, option := range typeOptions {
				if option.Value == draft.Type.UUID {
					typeSelect.InitialOption = option
				}
			}
		}
		for _, team := range draft.Teams {
			for _, option := range teamOptions {
				if option.Value == team.UUID {
					teamsSelect.InitialOptions = append(teamsSelect.InitialOptions, option)
				}
			}
		}
		for _, project := range draft.Projects {
			for _, option := range projectOptions {
				if option.Value == project.UUID {
					projectsSelect.InitialOptions = append(projectsSelect.InitialOptions, option)
				}
			}
		}
	}

	blocks := slack.Blocks{
		BlockSet: []slack.Block{
			&slack.InputBlock{
				Type:    slack.MBTInput,
				BlockID: "update_type_block",
				Label: &slack.TextBlockObject{
					Type: "plain_text",
					Text: "Type",
				},
				Element:  typeSelect,
				Optional: true,
			},
			&slack.InputBlock{
				Type:    slack.MBTInput,
				BlockID: "update_teams_block",
				Label: &slack.TextBlockObject{
					Type: "plain_text",
					Text: "On behalf of teams",
				},
				Element:  teamsSelect,
				Optional: true,
			},
			&slack.InputBlock{
				Type:    slack.MBTInput,
				BlockID: "update_projects_block",
				Label: &slack.TextBlockObject{
					Type: "plain_text",
					Text: "Projects",
				},
				Element:  projectsSelect,
				Optional: true,
			},
			&slack.InputBlock{
				Type:    slack.MBTInput,
				BlockID: "update_text_block",
				Label: &slack.TextBlockObject{
					Type: "plain_text",
					Text: "Status update",
				},
				Element: textInput,
			},
			&slack.InputBlock{
				Type:    slack.MBTInput,
				BlockID: "update_link_block",
				Label: &slack.TextBlockObject{
					Type: "plain_text",
					Text: "Discussion link",
				},
				Element:  linkInput,
				Optional: true,
			},
		},
	}

	return slack.ModalViewRequest{
		Type:            slack.ViewType("modal"),
		Title:           slack.NewTextBlockObject("plain_text", "✏️ Share a status update", true, false),
		CallbackID:      "status_update_modal",
		Submit:          slack.NewTextBlockObject("plain_text", "Save", false, false),
		Close:           slack.NewTextBlockObject("plain_text", "Cancel", false, false),
		Blocks:          blocks,
		PrivateMetadata: privateMetadata,
	}
}

func addDepartmentModal() slack.ModalViewRequest {
	return namedEntityModal("add_department_modal", "Add department",
		"department_name_block", "department_name_input", nil)
}

func addProjectModal() slack.ModalViewRequest {
	return namedEntityModal("add_project_modal", "Add project",
		"project_name_block", "project_name_input", nil)
}

func addTeamModal(departments []model.Department) slack.ModalViewRequest {
	options := make([]*slack.OptionBlockObject, 0, len(departments))
	for _, department := range departments {
		options = append(options, slack.NewOptionBlockObject(department.UUID,
			slack.NewTextBlockObject("plain_text", department.Name, false, false), nil))
	}
	extra := []slack.Block{
		&slack.InputBlock{
			Type:    slack.MBTInput,
			BlockID: "team_department_block",
			Label: &slack.TextBlockObject{
				Type: "plain_text",
				Text: "Department",
			},
			Element: &slack.SelectBlockElement{
				Type:        slack.OptTypeStatic,
				ActionID:    "team_department_select",
				Options:     options,
				Placeholder: slack.NewTextBlockObject("plain_text", "Pick a department", false, false),
			},
		},
	}
	return namedEntityModal("add_team_modal", "Add team",
		"team_name_block", "team_name_input", extra)
}

func namedEntityModal(callbackID, title, nameBlockID, nameActionID string, extraBlocks []slack.Block) slack.ModalViewRequest {
	blocks := []slack.Block{
		&slack.InputBlock{
			Type:    slack.MBTInput,
			BlockID: nameBlockID,
			Label: &slack.TextBlockObject{
				Type: "plain_text",
				Text: "Name",
			},
			Element: &slack.PlainTextInputBlockElement{
				Type:     slack.METPlainTextInput,
				ActionID: nameActionID,
			},
		},
	}
	blocks = append(blocks, extraBlocks...)

	return slack.ModalViewRequest{
		Type:       slack.ViewType("modal"),
		Title:      slack.NewTextBlockObject("plain_text", title, false, false),
		CallbackID: callbackID,
		Submit:     slack.NewTextBlockObject("plain_text", "Save", false, false),
		Close:      slack.NewTextBlockObject("plain_text", "Cancel", false, false),
		Blocks:     slack.Blocks{BlockSet: blocks},
	}
}

// statusUpdatePreviewBlocks renders a captured channel message as an
// editable draft: selectors to classify it plus publish/discard buttons.
func statusUpdatePreviewBlocks(update *model.StatusUpdate, teams []model.Team, projects []model.Project, types []model.StatusUpdateType) []slack.Block {
	typeOptions := make([]*slack.OptionBlockObject, 0, len(types))
	for _, t := range types {
		typeOptions = append(typeOptions, slack.NewOptionBlockObject(t.UUID,
			slack.NewTextBlockObject("plain_text", t.Name, false, false), nil))
	}
	teamOptions := make([]*slack.OptionBlockObject, 0, len(teams))
	for _, team := range teams {
		teamOptions = append(teamOptions, slack.NewOptionBlockObject(team.UUID,
			slack.NewTextBlockObject("plain_text", teamLabel(team), false, false), nil))
	}
	projectOptions := make([]*slack.OptionBlockObject, 0, len(projects))
	for _, project := range projects {
		projectOptions = append(projectOptions, slack.NewOptionBlockObject(project.UUID,
			slack.NewTextBlockObject("plain_text", project.Name, false, false), nil))
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn",
				fmt.Sprintf("*%s* wants to share a status update:", update.AuthorSlackUserName), false, false),
			nil, nil,
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", ">>> "+update.Text, false, false),
			nil, nil,
		),
		slack.NewActionBlock(
			"preview_selects:"+update.UUID,
			&slack.SelectBlockElement{
				Type:        slack.OptTypeStatic,
				ActionID:    "preview_type_selected",
				Options:     typeOptions,
				Placeholder: slack.NewTextBlockObject("plain_text", "Type", false, false),
			},
			&slack.MultiSelectBlockElement{
				Type:        slack.MultiOptTypeStatic,
				ActionID:    "preview_team_selected",
				Options:     teamOptions,
				Placeholder: slack.NewTextBlockObject("plain_text", "Teams", false, false),
			},
			&slack.MultiSelectBlockElement{
				Type:        slack.MultiOptTypeStatic,
				ActionID:    "preview_project_selected",
				Options:     projectOptions,
				Placeholder: slack.NewTextBlockObject("plain_text", "Projects", false, false),
			},
		),
		slack.NewActionBlock(
			"preview_buttons:"+update.UUID,
			slack.NewButtonBlockElement(
				"preview_publish_clicked",
				update.UUID,
				slack.NewTextBlockObject("plain_text", "🚀 Publish", true, false),
			).WithStyle(slack.StylePrimary),
			slack.NewButtonBlockElement(
				"preview_discard_clicked",
				update.UUID,
				slack.NewTextBlockObject("plain_text", "🗑 Discard", true, false),
			).WithStyle(slack.StyleDanger),
		),
	}
	return blocks
}

// statusUpdatePublishedBlocks replaces the preview once a draft has been
// published, dropping the selectors and buttons.
func statusUpdatePublishedBlocks(update *model.StatusUpdate) []slack.Block {
	return statusUpdateBlocks(update)
}
