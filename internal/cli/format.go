package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jszwec/csvutil"

	"intakedesk/internal/intake/models"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

// listRow is one submission flattened for CSV.
type listRow struct {
	ID                  string    `csv:"id"`
	SubmittedAt         time.Time `csv:"submitted_at"`
	FullName            string    `csv:"full_name"`
	Email               string    `csv:"email"`
	PhoneNumber         string    `csv:"phone_number"`
	CompanyName         string    `csv:"company_name"`
	RolePosition        string    `csv:"role_position"`
	Services            string    `csv:"services"`
	SelectedPackage     string    `csv:"selected_package"`
	NeedsAndGoals       string    `csv:"needs_and_goals"`
	OfficeDuration      string    `csv:"office_duration"`
	TeamSize            string    `csv:"team_size"`
	EventType           string    `csv:"event_type"`
	ExpectedAttendees   string    `csv:"expected_attendees"`
	PreferredDate       string    `csv:"preferred_date"`
	CurrentlyUsingTools string    `csv:"currently_using_tools"`
	MainChallenge       string    `csv:"main_challenge"`
	ReferralSource      string    `csv:"referral_source"`
	OtherReferralSource string    `csv:"other_referral_source"`
	PreferredContact    string    `csv:"preferred_contact"`
	BestTimeToReach     string    `csv:"best_time_to_reach"`
}

func toRow(v models.SubmissionView) listRow {
	services := make([]string, 0, len(models.ServiceKeys))
	for _, k := range v.Services.Selected() {
		services = append(services, k.Label())
	}
	return listRow{
		ID:                  v.ID,
		SubmittedAt:         v.SubmittedAt,
		FullName:            v.FullName,
		Email:               v.Email,
		PhoneNumber:         v.PhoneNumber,
		CompanyName:         v.CompanyName,
		RolePosition:        v.RolePosition,
		Services:            strings.Join(services, "; "),
		SelectedPackage:     v.SelectedPackage,
		NeedsAndGoals:       v.NeedsAndGoals,
		OfficeDuration:      v.OfficeDuration,
		TeamSize:            v.TeamSize,
		EventType:           v.EventType,
		ExpectedAttendees:   v.ExpectedAttendees,
		PreferredDate:       v.PreferredDate,
		CurrentlyUsingTools: v.CurrentlyUsingTools,
		MainChallenge:       v.MainChallenge,
		ReferralSource:      strings.Join(v.ReferralSource, "; "),
		OtherReferralSource: v.OtherReferralSource,
		PreferredContact:    strings.Join(v.PreferredContact, ", "),
		BestTimeToReach:     v.BestTimeToReach,
	}
}

type listWriterFunc func(io.Writer, []models.SubmissionView) error

func listWriter(format string) (listWriterFunc, error) {
	switch format {
	case formatTable:
		return writeTable, nil
	case formatCSV:
		return writeCSV, nil
	case formatJSON:
		return writeJSON, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want table, csv or json)", format)
	}
}

// writeCSV always emits the header, even for an empty list.
func writeCSV(w io.Writer, list []models.SubmissionView) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(listRow{}); err != nil {
		return err
	}
	for _, v := range list {
		if err := enc.Encode(toRow(v)); err != nil {
			return fmt.Errorf("encoding %s: %w", v.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, list []models.SubmissionView) error {
	if list == nil {
		list = []models.SubmissionView{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(models.ListResponse{Submissions: list})
}

func writeTable(w io.Writer, list []models.SubmissionView) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No submissions yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSUBMITTED\tNAME\tEMAIL\tCOMPANY\tSERVICES")
	for _, v := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			v.ID, v.SubmittedAt.Format("2006-01-02 15:04"), v.FullName, v.Email, dash(v.CompanyName), len(v.Services.Selected()))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
