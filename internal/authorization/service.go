package authorization

import (
	"context"
	"errors"
)

var (
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidObject  = errors.New("invalid_object")
	ErrInvalidAction  = errors.New("invalid_action")
	ErrForbidden      = errors.New("forbidden")
)

// Service decides whether an actor holding role may perform action on object
// within a company.
type Service interface {
	Authorize(ctx context.Context, actor string, role string, companyID string, object string, action string) error
}
