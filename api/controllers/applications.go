package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shutupnraveee/backend/api/responses"
	"github.com/shutupnraveee/backend/api/validators"
	"github.com/shutupnraveee/backend/internal/applications"
	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
)

type djApplicationRequest struct {
	FullName    string `json:"full_name" validate:"required,min=2,max=120"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=32"`
	Experience  string `json:"experience" validate:"omitempty,max=2000"`
	MixURL      string `json:"mix_url" validate:"required,url"`
}

type volunteerApplicationRequest struct {
	FullName     string `json:"full_name" validate:"required,min=2,max=120"`
	Email        string `json:"email" validate:"required,email"`
	PhoneNumber  string `json:"phone_number" validate:"omitempty,max=32"`
	Experience   string `json:"experience" validate:"omitempty,max=2000"`
	Availability string `json:"availability" validate:"omitempty,max=500"`
}

type applicationResponse struct {
	ID           uuid.UUID             `json:"id"`
	Kind         enums.ApplicationKind `json:"kind"`
	FullName     string                `json:"full_name"`
	Email        string                `json:"email"`
	PhoneNumber  string                `json:"phone_number,omitempty"`
	Experience   string                `json:"experience,omitempty"`
	MixURL       *string               `json:"mix_url,omitempty"`
	Availability *string               `json:"availability,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

func newApplicationResponse(application *models.Application) applicationResponse {
	return applicationResponse{
		ID:           application.ID,
		Kind:         application.Kind,
		FullName:     application.FullName,
		Email:        application.Email,
		PhoneNumber:  application.PhoneNumber,
		Experience:   application.Experience,
		MixURL:       application.MixURL,
		Availability: application.Availability,
		CreatedAt:    application.CreatedAt,
	}
}

// DJApplicationSubmit records a DJ booking application.
func DJApplicationSubmit(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body djApplicationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Submit(r.Context(), applications.SubmitInput{
			Kind:        enums.ApplicationKindDJ,
			FullName:    body.FullName,
			Email:       body.Email,
			PhoneNumber: body.PhoneNumber,
			Experience:  body.Experience,
			MixURL:      body.MixURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newApplicationResponse(created))
	}
}

// VolunteerApplicationSubmit records a volunteer application.
func VolunteerApplicationSubmit(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body volunteerApplicationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Submit(r.Context(), applications.SubmitInput{
			Kind:         enums.ApplicationKindVolunteer,
			FullName:     body.FullName,
			Email:        body.Email,
			PhoneNumber:  body.PhoneNumber,
			Experience:   body.Experience,
			Availability: body.Availability,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newApplicationResponse(created))
	}
}

// AdminApplicationsList returns submitted applications, optionally filtered
// by kind.
func AdminApplicationsList(svc applications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := enums.ApplicationKind(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("kind"))))
		if kind != "" && !kind.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid application kind filter"))
			return
		}

		list, err := svc.List(r.Context(), kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]applicationResponse, 0, len(list))
		for i := range list {
			out = append(out, newApplicationResponse(&list[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
