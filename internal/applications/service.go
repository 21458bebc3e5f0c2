package applications

import (
	"context"
	"fmt"
	"strings"

	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
)

// SubmitInput carries one intake form submission.
type SubmitInput struct {
	Kind         enums.ApplicationKind
	FullName     string
	Email        string
	PhoneNumber  string
	Experience   string
	MixURL       string
	Availability string
}

// Service owns application intake and listing.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Application, error)
	List(ctx context.Context, kind enums.ApplicationKind) ([]models.Application, error)
}

type service struct {
	repo *Repository
}

// NewService wires the applications service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("applications repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Application, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown application kind %q", input.Kind))
	}
	if strings.TrimSpace(input.FullName) == "" || strings.TrimSpace(input.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name and email are required")
	}
	if input.Kind == enums.ApplicationKindDJ && strings.TrimSpace(input.MixURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a mix link is required for dj applications")
	}

	application := &models.Application{
		Kind:        input.Kind,
		FullName:    strings.TrimSpace(input.FullName),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		Experience:  strings.TrimSpace(input.Experience),
	}
	if mix := strings.TrimSpace(input.MixURL); mix != "" {
		application.MixURL = &mix
	}
	if availability := strings.TrimSpace(input.Availability); availability != "" {
		application.Availability = &availability
	}

	created, err := s.repo.Create(ctx, application)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving application")
	}
	return created, nil
}

func (s *service) List(ctx context.Context, kind enums.ApplicationKind) ([]models.Application, error) {
	if kind != "" && !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown application kind %q", kind))
	}
	applications, err := s.repo.ListByKind(ctx, kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing applications")
	}
	return applications, nil
}
