package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agendali/payments-backend/api/responses"
	"github.com/agendali/payments-backend/internal/cron"
	pkgerrors "github.com/agendali/payments-backend/pkg/errors"
	"github.com/agendali/payments-backend/pkg/logger"
)

// TriggerJob runs one registered background job on demand and returns its
// per-row report. Failures inside the pass still produce a report; the
// response carries both.
func TriggerJob(registry *cron.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if registry == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job registry unavailable"))
			return
		}

		name := chi.URLParam(r, "jobName")
		job, ok := registry.Find(name)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown job"))
			return
		}

		logCtx := logg.WithField(ctx, "job", name)
		logg.Info(logCtx, "job triggered via api")

		reporting, ok := job.(cron.ReportingJob)
		if !ok {
			if err := job.Run(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "job run failed"))
				return
			}
			responses.WriteSuccess(w, map[string]string{"job": name, "status": "completed"})
			return
		}

		report, err := reporting.Process(ctx)
		payload := map[string]any{"job": name, "report": report}
		if err != nil {
			payload["status"] = "completed_with_errors"
			logg.Error(logCtx, "job pass reported failures", err)
		} else {
			payload["status"] = "completed"
		}
		responses.WriteSuccess(w, payload)
	}
}
