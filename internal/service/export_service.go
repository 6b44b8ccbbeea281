package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-averages/internal/average"
	"github.com/noah-isme/classroom-averages/internal/dto"
	appErrors "github.com/noah-isme/classroom-averages/pkg/errors"
	"github.com/noah-isme/classroom-averages/pkg/export"
)

const (
	csvContentType     = "text/csv; charset=utf-8"
	notAvailable       = "N/A"
	factorColumnHeader = "Average-%"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult is a rendered download.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders computed averages into downloadable grids.
type ExportService struct {
	csv    csvRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(csv csvRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &ExportService{csv: csv, logger: logger, now: time.Now}
}

// AveragesCSV renders the averages grid: one row per student with the term
// average and weighted factor of every term, the partial averages and the
// final average. Responses spanning several subjects get a leading Subject column.
// Unweighted results export the term averages only.
func (s *ExportService) AveragesCSV(resp *dto.ClassroomAveragesResponse) (*ExportResult, error) {
	if resp == nil || len(resp.Subjects) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no averages to export")
	}
	dataset := averagesDataset(resp)
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render averages csv")
	}

	filename := fmt.Sprintf("averages_classroom_%d_period_%d", resp.ClassroomID, resp.AcademicPeriodID)
	if len(resp.Subjects) == 1 {
		filename += fmt.Sprintf("_subject_%d", resp.Subjects[0].SubjectID)
	}
	filename += "_" + s.now().UTC().Format("20060102") + ".csv"

	s.logger.Debug("averages csv rendered", zap.String("filename", filename), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{Filename: filename, ContentType: csvContentType, Payload: payload}, nil
}

func averagesDataset(resp *dto.ClassroomAveragesResponse) export.Dataset {
	multi := len(resp.Subjects) > 1
	terms := columnTerms(resp)
	if unweightedResults(resp) {
		return termAveragesDataset(resp, terms, multi)
	}

	headers := make([]string, 0, 3+2*len(terms)+len(resp.Groups))
	if multi {
		headers = append(headers, "Subject")
	}
	headers = append(headers, "Number", "Student Name")
	for _, term := range terms {
		headers = append(headers, term, factorColumnHeader)
	}
	for _, g := range resp.Groups {
		headers = append(headers, g.Name)
	}
	headers = append(headers, "Final Average")

	var rows [][]string
	for _, subject := range resp.Subjects {
		if subject.Result == nil {
			continue
		}
		for i, rec := range subject.Result.Records {
			row := make([]string, 0, len(headers))
			if multi {
				row = append(row, subject.SubjectName)
			}
			row = append(row, fmt.Sprintf("%d", i+1), rec.StudentName)
			contributed := false
			for _, term := range terms {
				ta, ok := rec.Term(term)
				if !ok {
					row = append(row, notAvailable, notAvailable)
					continue
				}
				row = append(row, formatCell(ta.Average))
				if ta.AveFactor == nil {
					row = append(row, notAvailable)
					continue
				}
				contributed = true
				row = append(row, formatCell(*ta.AveFactor))
			}
			for _, g := range resp.Groups {
				row = append(row, partialCell(rec, g.Name))
			}
			if contributed {
				row = append(row, formatCell(rec.FinalAverage))
			} else {
				row = append(row, formatCell(0))
			}
			rows = append(rows, row)
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func termAveragesDataset(resp *dto.ClassroomAveragesResponse, terms []string, multi bool) export.Dataset {
	headers := make([]string, 0, 3+len(terms))
	if multi {
		headers = append(headers, "Subject")
	}
	headers = append(headers, "Number", "Student Name")
	headers = append(headers, terms...)

	var rows [][]string
	for _, subject := range resp.Subjects {
		if subject.Result == nil {
			continue
		}
		for i, rec := range subject.Result.Records {
			row := make([]string, 0, len(headers))
			if multi {
				row = append(row, subject.SubjectName)
			}
			row = append(row, fmt.Sprintf("%d", i+1), rec.StudentName)
			for _, term := range terms {
				if ta, ok := rec.Term(term); ok {
					row = append(row, formatCell(ta.Average))
				} else {
					row = append(row, notAvailable)
				}
			}
			rows = append(rows, row)
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func unweightedResults(resp *dto.ClassroomAveragesResponse) bool {
	found := false
	for _, subject := range resp.Subjects {
		if subject.Result == nil {
			continue
		}
		if !subject.Result.Unweighted {
			return false
		}
		found = true
	}
	return found
}

// columnTerms lists the period terms followed by any other term a result carries.
func columnTerms(resp *dto.ClassroomAveragesResponse) []string {
	seen := make(map[string]struct{}, len(resp.Terms))
	terms := make([]string, 0, len(resp.Terms))
	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	for _, term := range resp.Terms {
		add(term)
	}
	for _, subject := range resp.Subjects {
		if subject.Result == nil {
			continue
		}
		for _, term := range subject.Result.Terms {
			add(term)
		}
	}
	return terms
}

func partialCell(rec average.Record, name string) string {
	for _, p := range rec.PartialAverages {
		if p.Name == name {
			if p.Contributing == 0 {
				return notAvailable
			}
			return formatCell(p.Value)
		}
	}
	return notAvailable
}

func formatCell(v float64) string {
	return fmt.Sprintf("%.2f", average.Round2(v))
}
