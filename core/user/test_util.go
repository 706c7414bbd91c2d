package user

import (
	"context"

	"github.com/kymanga/ruzuku/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose side channels run synchronously so
// tests can assert on sent mail.
func NewServiceMock(repo Repository, mailSvc core.EmailService) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}
