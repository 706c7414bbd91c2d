package scholarship

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/budget"
	"github.com/kymanga/ruzuku/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("scholarship application not found")
)

const metricKind = "scholarship"

type (
	Repository interface {
		CreateApplication(ctx context.Context, app Application) (Application, error)
		GetApplication(ctx context.Context, id string) (Application, error)
		QueryApplications(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error)
		UpdateApplication(ctx context.Context, app Application) (Application, error)
	}

	Service interface {
		Create(ctx context.Context, actor user.User, na NewApplication) (Application, error)
		Get(ctx context.Context, actor user.User, id string) (Application, error)
		Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error)
		Update(ctx context.Context, actor user.User, id string, ua UpdateApplication) (Application, error)
		Endorse(ctx context.Context, actor user.User, id string, status Status) (Application, error)
		Decide(ctx context.Context, actor user.User, id string, dec Decision) (Application, error)
	}

	service struct {
		repo      Repository
		budgetSvc budget.Service
		usrSvc    user.Service
		mailSvc   core.EmailService
		pushSvc   core.PushService
		logger    core.Logger
		metrics   core.DecisionMetrics
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	budgetSvc budget.Service,
	usrSvc user.Service,
	mailSvc core.EmailService,
	pushSvc core.PushService,
	logger core.Logger,
	metrics core.DecisionMetrics,
) Service {
	return &service{
		repo:      repo,
		budgetSvc: budgetSvc,
		usrSvc:    usrSvc,
		mailSvc:   mailSvc,
		pushSvc:   pushSvc,
		logger:    logger,
		metrics:   metrics,
	}
}

func (svc *service) Create(ctx context.Context, actor user.User, na NewApplication) (Application, error) {
	if err := na.Validate(); err != nil {
		return Application{}, err
	}
	// the period reference is fixed at creation; make sure it exists
	if _, err := svc.budgetSvc.GetPeriod(ctx, na.PeriodID); err != nil {
		return Application{}, err
	}
	now := time.Now().UTC()
	app := Application{
		StudentID:       actor.ID,
		PeriodID:        na.PeriodID,
		Status:          StatusPending,
		TutorStatus:     StatusPending,
		Degree:          na.Degree,
		Motivation:      na.Motivation,
		AmountRequested: na.AmountRequested,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return svc.repo.CreateApplication(ctx, app)
}

func (svc *service) Get(ctx context.Context, actor user.User, id string) (Application, error) {
	app, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if app.StudentID != actor.ID && !actor.IsExecutive() && !actor.IsStaff() {
		return Application{}, ErrNotFound
	}
	return app, nil
}

func (svc *service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}
	// students only ever see their own applications
	if !actor.IsExecutive() && !actor.IsStaff() {
		filter.StudentID = actor.ID
	}
	return svc.repo.QueryApplications(ctx, filter, ordering)
}

// Update lets a student amend the non-decision fields of their own
// still-pending application.
func (svc *service) Update(ctx context.Context, actor user.User, id string, ua UpdateApplication) (Application, error) {
	app, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if app.StudentID != actor.ID {
		return Application{}, core.ErrForbidden
	}
	if app.Terminal() {
		return Application{}, core.ErrForbidden
	}
	if err := ua.Validate(app); err != nil {
		return Application{}, err
	}

	app.Degree = ua.Degree
	app.Motivation = ua.Motivation
	if ua.AmountRequested != nil {
		app.AmountRequested = *ua.AmountRequested
	}
	app.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateApplication(ctx, app)
}

// Endorse records the tutor's advisory verdict. It never touches a budget;
// only the executive decision does.
func (svc *service) Endorse(ctx context.Context, actor user.User, id string, status Status) (Application, error) {
	if !actor.IsStaff() && !actor.IsExecutive() {
		return Application{}, core.ErrForbidden
	}
	if status != StatusApproved && status != StatusRejected {
		return Application{}, core.NewValidationError(errors.New("invalid tutor status"))
	}
	app, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	app.TutorStatus = status
	app.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateApplication(ctx, app)
}

// Decide transitions an application to approved or rejected. Approval
// reserves the granted amount on the period's category bucket through the
// atomic delta primitive; re-approval applies only the difference.
// Rejection never touches the period and is refused once the application
// holds an approved grant.
func (svc *service) Decide(ctx context.Context, actor user.User, id string, dec Decision) (Application, error) {
	app, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if !actor.IsExecutive() {
		return Application{}, core.ErrForbidden
	}
	if err := dec.Validate(); err != nil {
		return Application{}, err
	}

	switch dec.Status {
	case StatusApproved:
		app, err = svc.approve(ctx, app, dec)
	case StatusRejected:
		app, err = svc.reject(ctx, app, dec)
	}
	if err != nil {
		if errors.Cause(err) == budget.ErrBudgetExceeded && svc.metrics != nil {
			svc.metrics.RecordBudgetExceeded(metricKind)
		}
		return Application{}, err
	}

	if svc.metrics != nil {
		svc.metrics.RecordDecision(metricKind, string(app.Status))
	}
	svc.notifyStudent(ctx, app)
	return app, nil
}

func (svc *service) approve(ctx context.Context, app Application, dec Decision) (Application, error) {
	granted := app.AmountGranted
	if dec.AmountGranted != nil {
		granted = *dec.AmountGranted
	}
	if granted < 0 {
		return Application{}, core.ErrInvalidAmount
	}
	if app.PeriodID == "" {
		return Application{}, core.ErrMissingBudgetRef
	}

	// category is derived once, at decision time
	cat := app.Category()

	delta := granted - app.AmountGranted
	if err := svc.budgetSvc.ApplyPeriodDelta(ctx, app.PeriodID, cat, delta); err != nil {
		return Application{}, err
	}

	app.Status = StatusApproved
	app.AmountGranted = granted
	app.Response = dec.Response
	app.UpdatedAt = time.Now().UTC()
	updated, err := svc.repo.UpdateApplication(ctx, app)
	if err != nil {
		if rbErr := svc.budgetSvc.ApplyPeriodDelta(ctx, app.PeriodID, cat, -delta); rbErr != nil && svc.logger != nil {
			svc.logger.Error(fmt.Sprintf("releasing reserved budget %.2f on period %s: %v", delta, app.PeriodID, rbErr), rbErr)
		}
		return Application{}, errors.Wrap(err, "updating scholarship application")
	}
	return updated, nil
}

func (svc *service) reject(ctx context.Context, app Application, dec Decision) (Application, error) {
	if app.Status == StatusApproved {
		// the grant already holds a bucket reservation; rejecting would
		// strand it. Executives adjust the granted amount instead.
		return Application{}, core.ErrAlreadyApproved
	}
	if dec.Response == "" {
		return Application{}, core.ErrReasonRequired
	}
	app.Status = StatusRejected
	app.Response = dec.Response
	app.UpdatedAt = time.Now().UTC()
	updated, err := svc.repo.UpdateApplication(ctx, app)
	if err != nil {
		return Application{}, errors.Wrap(err, "updating scholarship application")
	}
	return updated, nil
}

func (svc *service) notifyStudent(ctx context.Context, app Application) {
	student, err := svc.usrSvc.GetByID(ctx, app.StudentID)
	if err != nil {
		if svc.logger != nil {
			svc.logger.Warn(fmt.Sprintf("loading student %s for notification: %v", app.StudentID, err))
		}
		return
	}

	var body string
	switch app.Status {
	case StatusApproved:
		body = fmt.Sprintf("Your scholarship application has been approved for %.2f.", app.AmountGranted)
	case StatusRejected:
		body = fmt.Sprintf("Your scholarship application has been rejected: %s", app.Response)
	}

	title := "Scholarship decision"
	if student.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:      []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject: title,
			BodyStr: body,
		})
	}
	if student.PushToken != "" {
		svc.pushSvc.Notify(student.PushToken, title, body)
	}
}
