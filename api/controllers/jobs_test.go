package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/agendali/payments-backend/internal/cron"
	"github.com/agendali/payments-backend/pkg/logger"
)

type stubReportingJob struct {
	name   string
	report cron.Report
	err    error
	runs   int
}

func (j *stubReportingJob) Name() string { return j.name }

func (j *stubReportingJob) Run(ctx context.Context) error {
	_, err := j.Process(ctx)
	return err
}

func (j *stubReportingJob) Process(context.Context) (cron.Report, error) {
	j.runs++
	return j.report, j.err
}

func triggerRequest(registry *cron.Registry, jobName string) *httptest.ResponseRecorder {
	logg := logger.New(logger.Options{ServiceName: "controllers-test"})
	router := chi.NewRouter()
	router.Post("/api/v1/jobs/{jobName}/run", TriggerJob(registry, logg))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+jobName+"/run", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestTriggerJobReturnsReport(t *testing.T) {
	job := &stubReportingJob{name: "payment-retry"}
	job.report.Processed = 2
	registry := cron.NewRegistry(job)

	resp := triggerRequest(registry, "payment-retry")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if job.runs != 1 {
		t.Fatalf("expected one run, got %d", job.runs)
	}

	var envelope struct {
		Data struct {
			Job    string      `json:"job"`
			Status string      `json:"status"`
			Report cron.Report `json:"report"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Job != "payment-retry" || envelope.Data.Status != "completed" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
	if envelope.Data.Report.Processed != 2 {
		t.Fatalf("report not forwarded: %+v", envelope.Data.Report)
	}
}

func TestTriggerJobSurfacesRowFailures(t *testing.T) {
	job := &stubReportingJob{name: "recurring-billing", err: errors.New("provider down")}
	registry := cron.NewRegistry(job)

	resp := triggerRequest(registry, "recurring-billing")
	if resp.Code != http.StatusOK {
		t.Fatalf("a partially failed pass still answers 200, got %d", resp.Code)
	}

	var envelope struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != "completed_with_errors" {
		t.Fatalf("unexpected status %q", envelope.Data.Status)
	}
}

func TestTriggerJobUnknownName(t *testing.T) {
	resp := triggerRequest(cron.NewRegistry(), "does-not-exist")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
