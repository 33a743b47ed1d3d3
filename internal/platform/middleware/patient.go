package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
)

type contextKey string

const patientIDKey contextKey = "patient_id"

const PatientIDHeader = "X-Patient-ID"

var patientIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]{1,64}$`)

// PatientScope resolves which patient a request acts on: the X-Patient-ID
// header, then the patient_id query parameter, then defaultPatient.
func PatientScope(defaultPatient string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			patientID := extractPatientID(c, defaultPatient)
			if !ValidPatientID(patientID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid patient identifier")
			}

			ctx := WithPatient(c.Request().Context(), patientID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("patient_id", patientID)
			return next(c)
		}
	}
}

// ValidPatientID reports whether s is an acceptable patient identifier.
func ValidPatientID(s string) bool {
	return patientIDPattern.MatchString(s)
}

func extractPatientID(c echo.Context, defaultPatient string) string {
	if pid := c.Request().Header.Get(PatientIDHeader); pid != "" {
		return pid
	}
	if pid := c.QueryParam("patient_id"); pid != "" {
		return pid
	}
	return defaultPatient
}

// WithPatient stores the patient id on ctx.
func WithPatient(ctx context.Context, patientID string) context.Context {
	return context.WithValue(ctx, patientIDKey, patientID)
}

// PatientFromContext returns the patient id set by PatientScope, or "".
func PatientFromContext(ctx context.Context) string {
	pid, _ := ctx.Value(patientIDKey).(string)
	return pid
}
