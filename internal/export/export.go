// Package export renders a machine's issues and maintenance records as
// semicolon-separated CSV with German column headers.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"machine-manual-backend/internal/model"
)

// TimeLayout is used for every timestamp column. Times are written in UTC.
const TimeLayout = "2006-01-02 15:04:05"

var (
	issueHeader       = []string{"ID", "Titel", "Beschreibung", "Gemeldet von", "Gemeldet am", "Status", "Geschlossen am"}
	maintenanceHeader = []string{"ID", "Titel", "Beschreibung", "Durchgeführt von", "Durchgeführt am", "Nächste Wartung"}
)

// WriteIssues writes the header and one row per issue.
func WriteIssues(w io.Writer, issues []model.Issue) error {
	cw := newWriter(w)
	if err := cw.Write(issueHeader); err != nil {
		return err
	}
	for _, i := range issues {
		row := []string{
			strconv.FormatInt(i.ID, 10),
			i.Title,
			text(i.Description),
			i.ReportedBy,
			stamp(&i.ReportedAt),
			string(i.Status),
			stamp(i.ClosedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMaintenance writes the header and one row per maintenance record.
func WriteMaintenance(w io.Writer, recs []model.Maintenance) error {
	cw := newWriter(w)
	if err := cw.Write(maintenanceHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.Title,
			text(r.Description),
			r.PerformedBy,
			stamp(&r.PerformedAt),
			stamp(r.NextDueAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// IssuesFilename is the download name for an issue export.
func IssuesFilename(machineName string, now time.Time) string {
	return filename("stoerungen", machineName, now)
}

// MaintenanceFilename is the download name for a maintenance export.
func MaintenanceFilename(machineName string, now time.Time) string {
	return filename("wartungen", machineName, now)
}

func filename(prefix, machineName string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.csv", prefix, safeName(machineName), now.Format("20060102"))
}

// safeName keeps letters and digits and maps everything else to "_", so the
// name can go into a Content-Disposition header unquoted.
func safeName(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "maschine"
	}
	return b.String()
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	return cw
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}
