package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
	"github.com/noah-isme/adaptive-learning-portal/pkg/export"
	"github.com/noah-isme/adaptive-learning-portal/pkg/storage"
)

// ExportFormat is the rendered file type of an analytics export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat accepts "csv" and "pdf", defaulting to csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
}

// ContentType is the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	if f == ExportFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type reportRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	// PathPrefix is prepended to download tokens, "/exports" by default.
	PathPrefix string
	ResultTTL  time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders class analytics and hands out signed download links.
type ExportService struct {
	analytics classAnalyticsSource
	storage   fileStorage
	csv       reportRenderer
	pdf       reportRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(analytics classAnalyticsSource, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf reportRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/exports"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		analytics: analytics,
		storage:   storage,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Generate renders the current class analytics in format and stores the file.
func (s *ExportService) Generate(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	analytics, err := s.analytics.TeacherAnalytics(ctx)
	if err != nil {
		return nil, err
	}
	generatedAt := s.now().UTC()
	report := buildAnalyticsReport(analytics, generatedAt)

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(report)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(report)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render analytics export")
	}

	exportID := strings.ReplaceAll(uuid.NewString(), "-", "")
	filename := fmt.Sprintf("class_analytics_%s_%s.%s", generatedAt.Format("20060102_150405"), exportID[:8], format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store analytics export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign analytics export")
	}
	s.logger.Info("analytics export generated", zap.String("file", relPath), zap.String("format", string(format)))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.PathPrefix, "/"), token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Resolve validates a download token and returns the stored file and its format.
func (s *ExportService) Resolve(token string) (*os.File, ExportFormat, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.WithCause(appErrors.ErrNotFound, err, "export link is invalid or expired")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.WithCause(appErrors.ErrNotFound, err, "export file not found")
	}
	format := ExportFormatCSV
	if strings.HasSuffix(relPath, "."+string(ExportFormatPDF)) {
		format = ExportFormatPDF
	}
	return file, format, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// Run removes stale exports every interval until ctx is done.
func (s *ExportService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Cleanup(0)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				s.logger.Info("stale exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}

func buildAnalyticsReport(a *models.TeacherAnalytics, generatedAt time.Time) export.Report {
	if a == nil {
		a = &models.TeacherAnalytics{}
	}
	students := append([]models.StudentPerformance(nil), a.Students...)
	sort.SliceStable(students, func(i, j int) bool { return students[i].Accuracy > students[j].Accuracy })

	studentRows := make([][]string, 0, len(students))
	for _, st := range students {
		studentRows = append(studentRows, []string{
			st.Username,
			st.Email,
			fmt.Sprintf("%.1f", st.Accuracy),
			fmt.Sprintf("%d", st.TotalSolved),
			fmt.Sprintf("%d", st.TotalXP),
		})
	}
	lessonRows := make([][]string, 0, len(a.Lessons))
	for _, l := range a.Lessons {
		lessonRows = append(lessonRows, []string{
			l.Name,
			fmt.Sprintf("%.1f", l.PassRate),
			fmt.Sprintf("%d", l.TotalQuestions),
		})
	}

	totalStudents := a.TotalStudents
	if totalStudents == 0 {
		totalStudents = len(a.Students)
	}
	return export.Report{
		Title:       "Class Analytics",
		GeneratedAt: generatedAt,
		Summary: [][2]string{
			{"Total students", fmt.Sprintf("%d", totalStudents)},
			{"Average accuracy", fmt.Sprintf("%.1f", averageAccuracy(a.Students))},
			{"Lessons", fmt.Sprintf("%d", len(a.Lessons))},
		},
		Sections: []export.Section{
			{Name: "Students", Headers: []string{"Student", "Email", "Accuracy (%)", "Solved", "XP"}, Rows: studentRows},
			{Name: "Lessons", Headers: []string{"Lesson", "Pass rate (%)", "Questions"}, Rows: lessonRows},
		},
	}
}

func averageAccuracy(students []models.StudentPerformance) float64 {
	if len(students) == 0 {
		return 0
	}
	var total float64
	for _, s := range students {
		total += s.Accuracy
	}
	return total / float64(len(students))
}
