package user

import (
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service suitable for tests. Emails are sent
// through the provided (usually capturing) EmailService.
func NewServiceMock(conf *core.Config, repo Repository, mailSvc core.EmailService, validate *validator.Validate) Service {
	initTokenGenerator(conf)
	return &serviceMock{
		service: service{
			conf:     conf,
			repo:     repo,
			mailSvc:  mailSvc,
			validate: validate,
		},
	}
}
