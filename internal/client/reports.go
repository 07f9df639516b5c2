package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

const (
	listTemplatesPath    = "/report/v1/list-templates"
	buildReportPath      = "/report/v1/build-report"
	getReportStatusPath  = "/report/v1/get-report-status"
	getReportContentPath = "/report/v1/get-report-content"

	defaultReportLanguage = "en"
)

// ReportsClient implements flanks.ReportsClient.
type ReportsClient struct {
	caller flanks.Caller
}

// NewReportsClient creates a new reports client.
func NewReportsClient(caller flanks.Caller) *ReportsClient {
	return &ReportsClient{caller: caller}
}

// ListTemplates implements flanks.ReportsClient.ListTemplates.
func (c *ReportsClient) ListTemplates(ctx context.Context) ([]flanks.ReportTemplate, error) {
	raw, err := c.caller.Call(ctx, http.MethodPost, listTemplatesPath, map[string]interface{}{}, nil)
	if err != nil {
		return nil, fmt.Errorf("listing report templates: %w", err)
	}

	templates, err := decodeItems[flanks.ReportTemplate](raw, "items")
	if err != nil {
		return nil, fmt.Errorf("parsing report templates: %w", err)
	}

	return templates, nil
}

// BuildReport implements flanks.ReportsClient.BuildReport.
func (c *ReportsClient) BuildReport(ctx context.Context, request *flanks.BuildReportRequest) (*flanks.Report, error) {
	if request == nil {
		return nil, fmt.Errorf("building report: %w", flanks.NewConfigError("build report request is required", nil))
	}

	body := map[string]interface{}{
		"template_id":         request.TemplateID,
		"query":               orEmpty(request.Query),
		"template_attributes": orEmpty(request.TemplateAttributes),
		"language":            defaultReportLanguage,
	}

	if request.Language != "" {
		body["language"] = request.Language
	}

	if request.StartDate != nil && !request.StartDate.IsZero() {
		body["start_date"] = request.StartDate.String()
	}

	if request.EndDate != nil && !request.EndDate.IsZero() {
		body["end_date"] = request.EndDate.String()
	}

	raw, err := c.caller.Call(ctx, http.MethodPost, buildReportPath, body, nil)
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}

	report, err := decodeObject[flanks.Report](raw)
	if err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}

	return report, nil
}

// GetStatus implements flanks.ReportsClient.GetStatus.
func (c *ReportsClient) GetStatus(ctx context.Context, reportID int) (*flanks.Report, error) {
	raw, err := c.caller.Call(ctx, http.MethodPost, getReportStatusPath, map[string]interface{}{
		"report_id": reportID,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("getting report status: %w", err)
	}

	report, err := decodeObject[flanks.Report](raw)
	if err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}

	return report, nil
}

// GetContentURL implements flanks.ReportsClient.GetContentURL.
func (c *ReportsClient) GetContentURL(ctx context.Context, reportID int) (string, error) {
	raw, err := c.caller.Call(ctx, http.MethodPost, getReportContentPath, map[string]interface{}{
		"report_id": reportID,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("getting report content: %w", err)
	}

	contentURL, err := decodeString(raw, "url")
	if err != nil {
		return "", fmt.Errorf("parsing report content: %w", err)
	}

	return contentURL, nil
}

func orEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}

	return m
}
