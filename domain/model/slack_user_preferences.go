package model

// SlackUserPreferences keeps per-user UI state for the app home. Filter
// selections are stored as UUID strings and re-resolved through the
// datastore when rendering, so views never see stale sub-entities.
type SlackUserPreferences struct {
	UserID string

	ActiveTab              string
	ActiveConfigurationTab string

	ActiveTeamUUID       string
	ActiveDepartmentUUID string
	ActiveProjectUUID    string
}
