package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/export"
)

// Export formats.
const (
	ExportCSV = "csv"
	ExportPDF = "pdf"
)

var scheduleHeaders = []string{"Time", "Status", "Team", "Question", "Link"}

type scheduleResolver interface {
	DaySchedule(ctx context.Context, tutorID, date string, asOf time.Time, privileged bool, mode ResolveMode) (*models.DaySchedule, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered document ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a tutor's day schedule as CSV or PDF.
type ExportService struct {
	schedules scheduleResolver
	tutors    tutorReader
	csv       csvRenderer
	pdf       pdfRenderer
	now       func() time.Time
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers use the pkg/export defaults.
func NewExportService(schedules scheduleResolver, tutors tutorReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{schedules: schedules, tutors: tutors, csv: csv, pdf: pdf, now: time.Now, logger: logger}
}

// DaySchedule renders every template slot of the day with its booking.
func (s *ExportService) DaySchedule(ctx context.Context, actor *models.Actor, tutorID, date, format string) (*ExportFile, error) {
	if !actor.CanManageTutor(tutorID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to export this schedule")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportCSV
	}
	if format != ExportCSV && format != ExportPDF {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedExport, fmt.Sprintf("unsupported export format %q", format))
	}

	schedule, err := s.schedules.DaySchedule(ctx, tutorID, date, s.now(), true, ModeSchedule)
	if err != nil {
		return nil, err
	}
	tutorName := tutorID
	if tutor, err := s.tutors.FindByID(ctx, tutorID); err == nil {
		tutorName = tutor.Name
	}

	dataset := scheduleDataset(schedule)
	filename := fmt.Sprintf("schedule-%s-%s.%s", tutorID, date, format)
	switch format {
	case ExportPDF:
		title := fmt.Sprintf("%s %s (%s)", tutorName, schedule.Date, schedule.DayOfWeek)
		if schedule.Holiday {
			title += " holiday"
		}
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: filename, ContentType: "application/pdf", Data: data}, nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: filename, ContentType: "text/csv; charset=utf-8", Data: data}, nil
	}
}

func scheduleDataset(schedule *models.DaySchedule) export.Dataset {
	booked := make(map[string]models.Reservation, len(schedule.Reservations))
	for _, r := range schedule.Reservations {
		booked[r.TimeSlot] = r
	}
	open := make(map[string]struct{}, len(schedule.Bookable))
	for _, label := range schedule.Bookable {
		open[label] = struct{}{}
	}

	rows := make([]map[string]string, 0, len(schedule.Template)+len(schedule.Reservations))
	seen := make(map[string]struct{}, len(schedule.Template))
	for _, label := range schedule.Template {
		seen[label] = struct{}{}
		row := map[string]string{"Time": label}
		switch r, ok := booked[label]; {
		case ok:
			row["Status"] = string(r.Status)
			row["Team"] = r.TeamName
			row["Question"] = r.Question
			row["Link"] = r.ResourceLink
		case hasKey(open, label):
			row["Status"] = "open"
		default:
			row["Status"] = "closed"
		}
		rows = append(rows, row)
	}
	// Reservations outside the current template still belong in the export.
	for _, r := range schedule.Reservations {
		if _, ok := seen[r.TimeSlot]; ok {
			continue
		}
		rows = append(rows, map[string]string{
			"Time": r.TimeSlot, "Status": string(r.Status), "Team": r.TeamName, "Question": r.Question, "Link": r.ResourceLink,
		})
	}
	return export.Dataset{Headers: scheduleHeaders, Rows: rows}
}

func hasKey(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
