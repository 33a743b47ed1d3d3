package careplan

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AryanC19/Greeno-BE/internal/platform/blobstore"
	"github.com/AryanC19/Greeno-BE/internal/platform/middleware"
	"github.com/AryanC19/Greeno-BE/internal/platform/pdftext"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/upload-careplan", h.Upload)
	api.GET("/careplan", h.Get)

	api.POST("/medications/:medication_id/schedule/:time/taken", h.MarkTaken)
	api.POST("/medications/:medication_id/schedule/:time/not-taken", h.MarkNotTaken)

	api.POST("/appointments/:appointment_id/confirm", h.Confirm)
	api.POST("/appointments/:appointment_id/decline", h.Decline)
	api.POST("/appointments/:appointment_id/assign-slot", h.AssignSlot)
	api.GET("/pending-appointments", h.Pending)
	api.GET("/confirmed-appointments", h.Confirmed)

	api.GET("/reminders", h.Reminders)
	api.POST("/reminders/:slot/update-time", h.UpdateReminderTime)
}

func patientOf(c echo.Context) string {
	return middleware.PatientFromContext(c.Request().Context())
}

// httpError maps service errors onto HTTP statuses.
func httpError(err error, notFound string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.Is(err, ErrNoAvailableSlot):
		return echo.NewHTTPError(http.StatusNotFound, "no available slot")
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidSlot),
		errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrEmptyDocument),
		errors.Is(err, pdftext.ErrUnreadable),
		errors.Is(err, blobstore.ErrInvalidContentType),
		errors.Is(err, blobstore.ErrMissingFileName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, blobstore.MaxFileSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(content) > blobstore.MaxFileSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, blobstore.ErrFileTooLarge.Error())
	}

	patientID := patientOf(c)
	if pid := c.FormValue("patient_id"); pid != "" {
		if !middleware.ValidPatientID(pid) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient identifier")
		}
		patientID = pid
	}

	contentType := fh.Header.Get(echo.HeaderContentType)
	cp, err := h.svc.Upload(c.Request().Context(), patientID, fh.Filename, contentType, content)
	if err != nil {
		return httpError(err, "care plan not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "careplan": cp})
}

func (h *Handler) Get(c echo.Context) error {
	cp, err := h.svc.Active(c.Request().Context(), patientOf(c))
	if err != nil {
		return httpError(err, "no careplan found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "careplan": cp})
}

func (h *Handler) MarkTaken(c echo.Context) error    { return h.mark(c, true) }
func (h *Handler) MarkNotTaken(c echo.Context) error { return h.mark(c, false) }

func (h *Handler) mark(c echo.Context, taken bool) error {
	medID, timeLabel := c.Param("medication_id"), c.Param("time")
	cp, err := h.svc.MarkMedication(c.Request().Context(), patientOf(c), medID, timeLabel, taken)
	if err != nil {
		return httpError(err, "medication schedule entry not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"medication_id": medID,
		"time":          timeLabel,
		"taken":         taken,
		"careplan":      cp,
	})
}

func (h *Handler) Confirm(c echo.Context) error { return h.setStatus(c, StatusConfirmed) }
func (h *Handler) Decline(c echo.Context) error { return h.setStatus(c, StatusDeclined) }

func (h *Handler) setStatus(c echo.Context, status string) error {
	cp, err := h.svc.SetAppointmentStatus(c.Request().Context(), patientOf(c), c.Param("appointment_id"), status, nil)
	if err != nil {
		return httpError(err, "appointment not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "careplan": cp})
}

func (h *Handler) AssignSlot(c echo.Context) error {
	p, err := h.svc.AssignSlot(c.Request().Context(), patientOf(c), c.Param("appointment_id"))
	if err != nil {
		return httpError(err, "appointment not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"proposed_slot": p.Slot,
		"doctor_id":     p.DoctorID,
		"doctor_name":   p.DoctorName,
	})
}

func (h *Handler) Pending(c echo.Context) error {
	appts, err := h.svc.Appointments(c.Request().Context(), patientOf(c), StatusPending)
	if err != nil {
		return httpError(err, "care plan not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"pending": appts})
}

func (h *Handler) Confirmed(c echo.Context) error {
	appts, err := h.svc.Appointments(c.Request().Context(), patientOf(c), StatusConfirmed)
	if err != nil {
		return httpError(err, "care plan not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"confirmed": appts})
}

func (h *Handler) Reminders(c echo.Context) error {
	slots, err := h.svc.Reminders(c.Request().Context(), patientOf(c))
	if err != nil {
		return httpError(err, "no reminders found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "reminder_slots": slots})
}

func (h *Handler) UpdateReminderTime(c echo.Context) error {
	slot := c.Param("slot")
	clock, err := h.svc.UpdateReminderTime(c.Request().Context(), patientOf(c), slot, c.QueryParam("time"))
	if err != nil {
		return httpError(err, "no careplan found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "slot": slot, "time": clock})
}
