package notifier

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/semmidev/replguard/internal/domain"
)

const (
	BackupSubject        = "Daily SQL backup report"
	HealthOKSubject      = "SQL replication OK"
	HealthProblemSubject = "SQL replication problem"
)

//go:embed templates/backup_report.html
var templateFS embed.FS

var backupTemplate = template.Must(
	template.New("backup_report.html").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/backup_report.html"),
)

// Message is a rendered report. HTML is empty for plain-text reports.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type backupRow struct {
	ServerID  string
	Outcome   domain.Outcome
	Databases []string
	Error     string
}

func RenderBackup(report domain.BackupReport) (Message, error) {
	rows := make([]backupRow, 0, len(report.Servers))
	var text strings.Builder
	fmt.Fprintf(&text, "%s (%s)\n", BackupSubject, report.Date)

	for _, s := range report.Servers {
		row := backupRow{ServerID: s.ServerID, Outcome: s.Outcome, Databases: s.Databases}
		if s.Err != nil {
			row.Error = s.Err.Error()
		}
		rows = append(rows, row)

		fmt.Fprintf(&text, "- %s: %s", s.ServerID, s.Outcome)
		if len(s.Databases) > 0 {
			fmt.Fprintf(&text, " [%s]", strings.Join(s.Databases, ", "))
		}
		if row.Error != "" {
			fmt.Fprintf(&text, " (%s)", row.Error)
		}
		text.WriteString("\n")
	}

	var html bytes.Buffer
	err := backupTemplate.Execute(&html, struct {
		Subject string
		Date    string
		Servers []backupRow
	}{BackupSubject, report.Date, rows})
	if err != nil {
		return Message{}, fmt.Errorf("render backup report: %w", err)
	}

	return Message{Subject: BackupSubject, Text: text.String(), HTML: html.String()}, nil
}

func RenderHealth(report domain.HealthReport) Message {
	subject := HealthOKSubject
	if report.HasError {
		subject = HealthProblemSubject
	}
	return Message{Subject: subject, Text: report.Text()}
}
