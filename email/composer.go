package email

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/updateme/updateme/domain/model"
	"github.com/updateme/updateme/utils"
)

func hsc(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func dayAsHTML(day time.Time) string {
	return fmt.Sprintf(`
        <div class="share-day-header" style="margin:0px;padding:0px;background-color:#fff;">
            <h2>%s</h2>
        </div>
`, day.Format("Monday, January 2"))
}

func statusUpdateAsHTML(update model.StatusUpdate) string {
	text := hsc(update.Text)
	text = strings.ReplaceAll(text, "\n", "<br />")

	var header string
	if update.Type != nil {
		header = "<b>" + hsc(update.Type.Name) + "</b> "
	}
	if len(update.Projects) > 0 {
		names := make([]string, 0, len(update.Projects))
		for _, project := range update.Projects {
			names = append(names, hsc(project.Name))
		}
		header += "@ " + utils.JoinStringsWithCommas(names)
	}

	var onBehalf string
	if len(update.Teams) > 0 {
		names := make([]string, 0, len(update.Teams))
		for _, team := range update.Teams {
			names = append(names, "<b>"+hsc(team.Name)+"</b>")
		}
		suffix := " team"
		if len(update.Teams) > 1 {
			suffix = " teams"
		}
		onBehalf = " on behalf of " + utils.JoinStringsWithCommas(names) + suffix
	}

	var attachments string
	if len(update.Images) > 0 {
		var items strings.Builder
		for _, image := range update.Images {
			title := image.Title
			if title == "" {
				title = image.Filename
			}
			items.WriteString("<li><a href='" + image.URL + "' target='_blank'>" + hsc(title) + "</a>")
			if image.Description != "" {
				items.WriteString(" - <i>" + hsc(image.Description) + "</i>")
			}
			items.WriteString("</li>")
		}
		attachments = "<b>Attachments:</b><ul>" + items.String() + "</ul>"
	}

	var discuss string
	if update.DiscussLink != "" {
		discuss = fmt.Sprintf(`<a href="%s" target="_blank">Discussion</a><br />`, update.DiscussLink)
	}

	return fmt.Sprintf(`
    <div style="margin:0px;padding:0px;">
        <div style="padding:5px">%s</div>
        <div style="padding:5px">
            <ul>
                <li>
                    %s<br />%s%s
                    <sub>Shared by <b>%s</b>%s</sub>
                </li>
            </ul>
        </div>
    </div>
`, header, text, discuss, attachments, hsc(update.AuthorSlackUserName), onBehalf)
}

// ComposeDigest renders published status updates as an HTML digest, grouped
// by calendar day in descending order. Days without updates inside the
// covered range still get a header, matching the original report layout.
func ComposeDigest(updates []model.StatusUpdate) string {
	if len(updates) == 0 {
		return ""
	}

	grouped := map[time.Time][]model.StatusUpdate{}
	for _, update := range updates {
		day := update.CreatedAt.Truncate(24 * time.Hour)
		grouped[day] = append(grouped[day], update)
	}

	days := make([]time.Time, 0, len(grouped))
	for day := range grouped {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	var updatesHTML strings.Builder
	for day := days[0]; !day.Before(days[len(days)-1]); day = day.AddDate(0, 0, -1) {
		updatesHTML.WriteString(dayAsHTML(day))
		if group, ok := grouped[day]; ok {
			updatesHTML.WriteString(`<div class="share-status-update-group" style="margin:0px;padding:0px;">`)
			for _, update := range group {
				updatesHTML.WriteString(statusUpdateAsHTML(update))
			}
			updatesHTML.WriteString(`</div>`)
		}
	}

	return fmt.Sprintf(`<!DOCTYPE html>
    <html>
        <body style="background-color:#eef;">
            <div style="margin:0px auto;max-width:600px;padding:0px;">
                <div style="height:20px;"></div>
                <div style="background-color:#66f;padding:10px">
                    <h1 style="color:#fff;margin:0px;">Your status update digest</h1>
                </div>
                <div class="share-status-updates-content" style="background-color:#fff;padding:10px">
                    %s
                </div>
                <div style="height:20px;"></div>
            </div>
        </body>
    </html>`, updatesHTML.String())
}
