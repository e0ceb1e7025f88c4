package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/domain/repository"
	pkghttp "RiskPulse/pkg/http"
	applogger "RiskPulse/pkg/logger"
)

// HTTPAlertClient creates alerts in an external alerting service.
type HTTPAlertClient struct {
	client  *pkghttp.Client
	baseURL string
	apiKey  string
}

var _ repository.AlertCreator = (*HTTPAlertClient)(nil)

func NewHTTPAlertClient(client *pkghttp.Client, baseURL, apiKey string) *HTTPAlertClient {
	return &HTTPAlertClient{client: client, baseURL: baseURL, apiKey: apiKey}
}

type alertResponse struct {
	AlertID string `json:"alert_id"`
}

func (c *HTTPAlertClient) CreateAlert(ctx context.Context, a *models.RiskAssessment) (string, error) {
	alert := models.Alert{
		AssessmentID: a.ID,
		EntityID:     a.EntityID,
		EntityType:   a.EntityType,
		AlertType:    "risk_threshold",
		Severity:     severityFor(a.RiskLevel),
		Message:      fmt.Sprintf("%s %s scored %.2f (%s)", a.EntityType, a.EntityID, a.RiskScore, a.RiskLevel),
		RiskScore:    a.RiskScore,
		RiskLevel:    a.RiskLevel,
		RiskFactors:  a.RiskFactors,
		CreatedAt:    a.CreatedAt,
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if c.apiKey != "" {
		headers["X-API-Key"] = c.apiKey
	}

	var resp alertResponse
	err := c.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:  pkghttp.MethodPost,
		URL:     c.baseURL + "/api/v1/alerts",
		Headers: headers,
		Body:    alert,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("alert service: %w", err)
	}
	if resp.AlertID == "" {
		return "", fmt.Errorf("alert service returned empty alert id")
	}
	return resp.AlertID, nil
}

func severityFor(level models.RiskLevel) string {
	if level == models.LevelCritical {
		return "critical"
	}
	return "high"
}

// LogAlertCreator is the fallback when no alert service is configured: it
// assigns an id locally and emits a structured log line.
type LogAlertCreator struct {
	logger *applogger.Logger
}

var _ repository.AlertCreator = (*LogAlertCreator)(nil)

func NewLogAlertCreator(logger *applogger.Logger) *LogAlertCreator {
	return &LogAlertCreator{logger: logger}
}

func (c *LogAlertCreator) CreateAlert(ctx context.Context, a *models.RiskAssessment) (string, error) {
	id := uuid.NewString()
	c.logger.Warn("risk alert",
		applogger.String("alert_id", id),
		applogger.String("entity_id", a.EntityID),
		applogger.String("severity", severityFor(a.RiskLevel)),
		applogger.Any("risk_factors", a.RiskFactors),
		applogger.Any("risk_score", a.RiskScore))
	return id, nil
}
