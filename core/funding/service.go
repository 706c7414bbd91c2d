package funding

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
	ErrNotFound = errors.New("funding request not found")
)

const metricKind = "funding"

type (
	Repository interface {
		CreateRequest(ctx context.Context, req Request) (Request, error)
		GetRequest(ctx context.Context, id string) (Request, error)
		QueryRequests(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Request, error)
		UpdateRequest(ctx context.Context, req Request) (Request, error)
	}

	Service interface {
		Create(ctx context.Context, actor user.User, nr NewRequest) (Request, error)
		Get(ctx context.Context, actor user.User, id string) (Request, error)
		Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Request, error)
		Update(ctx context.Context, actor user.User, id string, ur UpdateRequest) (Request, error)
		Decide(ctx context.Context, actor user.User, id string, dec Decision) (Request, error)
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

func (svc *service) Create(ctx context.Context, actor user.User, nr NewRequest) (Request, error) {
	if err := nr.Validate(); err != nil {
		return Request{}, err
	}
	now := time.Now().UTC()
	req := Request{
		ApplicantID:     actor.ID,
		Status:          StatusPending,
		Purpose:         nr.Purpose,
		Destination:     nr.Destination,
		EventDate:       nr.EventDate,
		AmountRequested: nr.AmountRequested,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return svc.repo.CreateRequest(ctx, req)
}

func (svc *service) Get(ctx context.Context, actor user.User, id string) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.ApplicantID != actor.ID && !actor.IsExecutive() {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (svc *service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Request, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}
	// applicants only ever see their own requests
	if !actor.IsExecutive() {
		filter.ApplicantID = actor.ID
	}
	return svc.repo.QueryRequests(ctx, filter, ordering)
}

// Update lets an applicant amend the non-decision fields of their own
// still-pending request. Executives go through Decide.
func (svc *service) Update(ctx context.Context, actor user.User, id string, ur UpdateRequest) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.ApplicantID != actor.ID {
		return Request{}, core.ErrForbidden
	}
	if req.Terminal() {
		// immutable once decided, for non-executives
		return Request{}, core.ErrForbidden
	}
	if err := ur.Validate(req); err != nil {
		return Request{}, err
	}

	req.Purpose = ur.Purpose
	req.Destination = ur.Destination
	if ur.EventDate != nil {
		req.EventDate = *ur.EventDate
	}
	if ur.AmountRequested != nil {
		req.AmountRequested = *ur.AmountRequested
	}
	req.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRequest(ctx, req)
}

// Decide transitions a request to approved or rejected. Approval reserves
// the granted amount on the referenced pool through the atomic delta
// primitive before the request itself is touched; a re-approval by an
// executive applies only the difference between the old and new granted
// amounts, and a re-approval naming a different pool moves the full grant
// over. Rejection never touches a pool and is refused once the request
// holds an approved grant.
func (svc *service) Decide(ctx context.Context, actor user.User, id string, dec Decision) (Request, error) {
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !actor.IsExecutive() {
		return Request{}, core.ErrForbidden
	}
	if err := dec.Validate(); err != nil {
		return Request{}, err
	}

	switch dec.Status {
	case StatusApproved:
		req, err = svc.approve(ctx, req, dec)
	case StatusRejected:
		req, err = svc.reject(ctx, req, dec)
	}
	if err != nil {
		if errors.Cause(err) == budget.ErrBudgetExceeded && svc.metrics != nil {
			svc.metrics.RecordBudgetExceeded(metricKind)
		}
		return Request{}, err
	}

	if svc.metrics != nil {
		svc.metrics.RecordDecision(metricKind, string(req.Status))
	}
	svc.notifyApplicant(ctx, req)
	return req, nil
}

func (svc *service) approve(ctx context.Context, req Request, dec Decision) (Request, error) {
	granted := req.AmountGranted
	if dec.AmountGranted != nil {
		granted = *dec.AmountGranted
	}
	if granted < 0 {
		return Request{}, core.ErrInvalidAmount
	}

	poolID := req.PoolID
	if dec.PoolID != "" {
		poolID = dec.PoolID
	}
	if poolID == "" {
		return Request{}, core.ErrMissingBudgetRef
	}

	pool, err := svc.budgetSvc.GetPool(ctx, poolID)
	if err != nil {
		return Request{}, err
	}
	if pool.Status != budget.StatusActive {
		return Request{}, budget.ErrInactivePool
	}

	// Reserve first: the request row is only touched once the pool has
	// accepted the money. On the same pool only the difference moves;
	// when the decision names a different pool, the new pool takes the
	// full grant and the old reservation is released in full.
	oldPoolID, oldGranted := req.PoolID, req.AmountGranted
	switched := oldPoolID != "" && oldPoolID != poolID
	delta := granted - oldGranted
	if switched {
		delta = granted
	}
	if err := svc.budgetSvc.ApplyPoolDelta(ctx, poolID, delta); err != nil {
		return Request{}, err
	}
	if switched && oldGranted != 0 {
		if err := svc.budgetSvc.ApplyPoolDelta(ctx, oldPoolID, -oldGranted); err != nil {
			svc.compensate(ctx, poolID, -delta)
			return Request{}, err
		}
	}

	req.Status = StatusApproved
	req.AmountGranted = granted
	req.PoolID = poolID
	req.Response = dec.Response
	req.UpdatedAt = time.Now().UTC()
	updated, err := svc.repo.UpdateRequest(ctx, req)
	if err != nil {
		svc.compensate(ctx, poolID, -delta)
		if switched {
			svc.compensate(ctx, oldPoolID, oldGranted)
		}
		return Request{}, errors.Wrap(err, "updating funding request")
	}
	return updated, nil
}

func (svc *service) reject(ctx context.Context, req Request, dec Decision) (Request, error) {
	if req.Status == StatusApproved {
		// the grant already holds a pool reservation; rejecting would
		// strand it. Executives adjust the granted amount instead.
		return Request{}, core.ErrAlreadyApproved
	}
	if dec.Response == "" {
		return Request{}, core.ErrReasonRequired
	}
	req.Status = StatusRejected
	req.Response = dec.Response
	req.UpdatedAt = time.Now().UTC()
	updated, err := svc.repo.UpdateRequest(ctx, req)
	if err != nil {
		return Request{}, errors.Wrap(err, "updating funding request")
	}
	return updated, nil
}

// compensate backs out a pool reservation after a later step of the
// decision failed. The original failure is the one reported to the caller;
// an error here can only be logged.
func (svc *service) compensate(ctx context.Context, poolID string, delta int) {
	if delta == 0 {
		return
	}
	if err := svc.budgetSvc.ApplyPoolDelta(ctx, poolID, delta); err != nil && svc.logger != nil {
		svc.logger.Error(fmt.Sprintf("compensating budget delta %d on pool %s: %v", delta, poolID, err), err)
	}
}

// notifyApplicant fires the best-effort decision notification. The decision
// is already committed; failures here are the services' own to log.
func (svc *service) notifyApplicant(ctx context.Context, req Request) {
	applicant, err := svc.usrSvc.GetByID(ctx, req.ApplicantID)
	if err != nil {
		if svc.logger != nil {
			svc.logger.Warn(fmt.Sprintf("loading applicant %s for notification: %v", req.ApplicantID, err))
		}
		return
	}

	var body string
	switch req.Status {
	case StatusApproved:
		body = fmt.Sprintf("Your travel funding request to %s has been approved for %d.", req.Destination, req.AmountGranted)
	case StatusRejected:
		body = fmt.Sprintf("Your travel funding request to %s has been rejected: %s", req.Destination, req.Response)
	}

	title := "Travel funding decision"
	if applicant.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:      []mail.Address{{Name: applicant.Name, Address: applicant.Email}},
			Subject: title,
			BodyStr: body,
		})
	}
	if applicant.PushToken != "" {
		svc.pushSvc.Notify(applicant.PushToken, title, body)
	}
}
