package scholarship_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kymanga/ruzuku/core"
	"github.com/kymanga/ruzuku/core/budget"
	"github.com/kymanga/ruzuku/core/scholarship"
	"github.com/kymanga/ruzuku/core/user"
	emailsvc "github.com/kymanga/ruzuku/services/email"
	pushsvc "github.com/kymanga/ruzuku/services/push"
	dummydb "github.com/kymanga/ruzuku/storage/database/dummy"
)

type testEnv struct {
	svc       scholarship.Service
	budgetSvc budget.Service
	exec      user.User
	tutor     user.User
	student   user.User
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	usrRepo := dummydb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(usrRepo, mailSvc)
	budgetSvc := budget.NewService(dummydb.NewBudgetRepository(db))
	svc := scholarship.NewService(
		dummydb.NewScholarshipRepository(db),
		budgetSvc, usrSvc, mailSvc, pushsvc.NewConsoleServiceMock(), nil, nil,
	)

	ctx := context.Background()
	exec, err := usrRepo.CreateUser(ctx, user.User{
		Name: "Board Member", Username: "board", Email: "board@test.cd",
		Roles: []string{user.RoleExecBoard},
	})
	require.NoError(t, err)
	tutor, err := usrRepo.CreateUser(ctx, user.User{
		Name: "Tutor", Username: "tutor1", Email: "tutor@test.cd",
		Roles: []string{user.RoleStaff},
	})
	require.NoError(t, err)
	student, err := usrRepo.CreateUser(ctx, user.User{
		Name: "Student", Username: "student1", Email: "student@test.cd",
		Roles: []string{user.RoleStudent},
	})
	require.NoError(t, err)

	return &testEnv{svc: svc, budgetSvc: budgetSvc, exec: exec, tutor: tutor, student: student}
}

func (env *testEnv) createPeriod(t *testing.T, bachelor, master, doctorate float64) budget.Period {
	t.Helper()
	now := time.Now()
	period, err := env.budgetSvc.CreatePeriod(context.Background(), env.exec, budget.NewPeriod{
		Title:     "Fall intake",
		Totals:    budget.CategoryAmounts{Bachelor: bachelor, Master: master, Doctorate: doctorate},
		StartDate: now,
		EndDate:   now.AddDate(0, 3, 0),
	})
	require.NoError(t, err)
	return period
}

func (env *testEnv) apply(t *testing.T, periodID, degree string, amount float64) scholarship.Application {
	t.Helper()
	app, err := env.svc.Create(context.Background(), env.student, scholarship.NewApplication{
		PeriodID:        periodID,
		Degree:          degree,
		Motivation:      "I would like to continue my studies.",
		AmountRequested: amount,
	})
	require.NoError(t, err)
	return app
}

func floatPtr(f float64) *float64 { return &f }

func TestClassifyDegree(t *testing.T) {
	tests := []struct {
		degree string
		want   budget.Category
	}{
		{"PhD in Computer Science", budget.CategoryDoctorate},
		{"Doctor of Medicine", budget.CategoryDoctorate},
		{"doctorate", budget.CategoryDoctorate},
		{"Master of Engineering", budget.CategoryMaster},
		{"Magister", budget.CategoryMaster},
		{"MASTER", budget.CategoryMaster},
		{"Bachelor of Arts", budget.CategoryBachelor},
		{"Licence en droit", budget.CategoryBachelor},
		{"", budget.CategoryBachelor},
	}
	for _, tt := range tests {
		t.Run(tt.degree, func(t *testing.T) {
			assert.Equal(t, tt.want, scholarship.ClassifyDegree(tt.degree))
		})
	}
}

func TestService_Create(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	period := env.createPeriod(t, 1000, 500, 0)

	app := env.apply(t, period.ID, "Bachelor of Science", 400)
	assert.Equal(t, scholarship.StatusPending, app.Status)
	assert.Equal(t, scholarship.StatusPending, app.TutorStatus)
	assert.Equal(t, period.ID, app.PeriodID)

	// the period must exist
	_, err := env.svc.Create(ctx, env.student, scholarship.NewApplication{
		PeriodID:        "23a3e4e6-07a0-45bc-8dfd-e3d1b58b0db9",
		Degree:          "Bachelor of Science",
		Motivation:      "Please",
		AmountRequested: 400,
	})
	assert.Equal(t, budget.ErrPeriodNotFound, errors.Cause(err))
}

func TestService_Decide_periodBuckets(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	period := env.createPeriod(t, 1000, 500, 0)

	first := env.apply(t, period.ID, "Bachelor of Science", 400)
	second := env.apply(t, period.ID, "Bachelor of Arts", 700)

	decided, err := env.svc.Decide(ctx, env.exec, first.ID, scholarship.Decision{
		Status: scholarship.StatusApproved, AmountGranted: floatPtr(400),
	})
	require.NoError(t, err)
	assert.Equal(t, scholarship.StatusApproved, decided.Status)
	assert.Equal(t, 400.0, decided.AmountGranted)

	// 600 left in the bachelor bucket; 700 does not fit
	_, err = env.svc.Decide(ctx, env.exec, second.ID, scholarship.Decision{
		Status: scholarship.StatusApproved, AmountGranted: floatPtr(700),
	})
	assert.Equal(t, budget.ErrBudgetExceeded, errors.Cause(err))

	// the failed approval left the application pending
	refreshed, err := env.svc.Get(ctx, env.exec, second.ID)
	require.NoError(t, err)
	assert.Equal(t, scholarship.StatusPending, refreshed.Status)

	// the master bucket is unaffected by bachelor spending
	masterApp := env.apply(t, period.ID, "Master of Engineering", 500)
	_, err = env.svc.Decide(ctx, env.exec, masterApp.ID, scholarship.Decision{
		Status: scholarship.StatusApproved, AmountGranted: floatPtr(500),
	})
	require.NoError(t, err)

	available, err := env.budgetSvc.PeriodAvailable(ctx, period.ID, budget.CategoryBachelor)
	require.NoError(t, err)
	assert.Equal(t, 600.0, available)
	available, err = env.budgetSvc.PeriodAvailable(ctx, period.ID, budget.CategoryMaster)
	require.NoError(t, err)
	assert.Equal(t, 0.0, available)
}

func TestService_Decide_reApproval(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	period := env.createPeriod(t, 1000, 0, 0)
	app := env.apply(t, period.ID, "Bachelor of Science", 400)

	_, err := env.svc.Decide(ctx, env.exec, app.ID, scholarship.Decision{
		Status: scholarship.StatusApproved, AmountGranted: floatPtr(400),
	})
	require.NoError(t, err)

	// raising the grant applies only the difference
	decided, err := env.svc.Decide(ctx, env.exec, app.ID, scholarship.Decision{
		Status: scholarship.StatusApproved, AmountGranted: floatPtr(600),
	})
	require.NoError(t, err)
	assert.Equal(t, 600.0, decided.AmountGranted)

	available, err := env.budgetSvc.PeriodAvailable(ctx, period.ID, budget.CategoryBachelor)
	require.NoError(t, err)
	assert.Equal(t, 400.0, available)

	// lowering releases the difference
	_, err = env.svc.Decide(ctx, env.exec, app.ID, scholarship.Decision{
		Status: scholarship.StatusApproved, AmountGranted: floatPtr(100),
	})
	require.NoError(t, err)
	available, err = env.budgetSvc.PeriodAvailable(ctx, period.ID, budget.CategoryBachelor)
	require.NoError(t, err)
	assert.Equal(t, 900.0, available)
}

func TestService_Decide_guards(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	period := env.createPeriod(t, 1000, 0, 0)
	app := env.apply(t, period.ID, "Bachelor of Science", 400)

	// only executives decide; staff endorsement is not a decision
	_, err := env.svc.Decide(ctx, env.tutor, app.ID, scholarship.Decision{
		Status: scholarship.StatusApproved, AmountGranted: floatPtr(400),
	})
	assert.Equal(t, core.ErrForbidden, errors.Cause(err))

	_, err = env.svc.Decide(ctx, env.exec, app.ID, scholarship.Decision{
		Status: scholarship.StatusApproved, AmountGranted: floatPtr(-1),
	})
	assert.Equal(t, core.ErrInvalidAmount, errors.Cause(err))

	// rejection requires a reason and never touches the period
	_, err = env.svc.Decide(ctx, env.exec, app.ID, scholarship.Decision{Status: scholarship.StatusRejected})
	assert.Equal(t, core.ErrReasonRequired, errors.Cause(err))

	decided, err := env.svc.Decide(ctx, env.exec, app.ID, scholarship.Decision{
		Status: scholarship.StatusRejected, Response: "incomplete transcript",
	})
	require.NoError(t, err)
	assert.Equal(t, scholarship.StatusRejected, decided.Status)

	available, err := env.budgetSvc.PeriodAvailable(ctx, period.ID, budget.CategoryBachelor)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, available)

	// an approved application cannot be rejected: its grant holds a
	// bucket reservation that rejection would strand
	granted := env.apply(t, period.ID, "Bachelor of Arts", 300)
	_, err = env.svc.Decide(ctx, env.exec, granted.ID, scholarship.Decision{
		Status: scholarship.StatusApproved, AmountGranted: floatPtr(300),
	})
	require.NoError(t, err)

	_, err = env.svc.Decide(ctx, env.exec, granted.ID, scholarship.Decision{
		Status: scholarship.StatusRejected, Response: "second thoughts",
	})
	assert.Equal(t, core.ErrAlreadyApproved, errors.Cause(err))

	refreshed, err := env.svc.Get(ctx, env.exec, granted.ID)
	require.NoError(t, err)
	assert.Equal(t, scholarship.StatusApproved, refreshed.Status)
	assert.Equal(t, 300.0, refreshed.AmountGranted)
	available, err = env.budgetSvc.PeriodAvailable(ctx, period.ID, budget.CategoryBachelor)
	require.NoError(t, err)
	assert.Equal(t, 700.0, available)
}

func TestService_Endorse(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	period := env.createPeriod(t, 1000, 0, 0)
	app := env.apply(t, period.ID, "Bachelor of Science", 400)

	_, err := env.svc.Endorse(ctx, env.student, app.ID, scholarship.StatusApproved)
	assert.Equal(t, core.ErrForbidden, errors.Cause(err))

	_, err = env.svc.Endorse(ctx, env.tutor, app.ID, scholarship.StatusPending)
	assert.Error(t, err)

	endorsed, err := env.svc.Endorse(ctx, env.tutor, app.ID, scholarship.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, scholarship.StatusApproved, endorsed.TutorStatus)
	assert.Equal(t, scholarship.StatusPending, endorsed.Status)

	// endorsement is advisory: the period is untouched
	available, err := env.budgetSvc.PeriodAvailable(ctx, period.ID, budget.CategoryBachelor)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, available)
}

func TestService_Update(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	period := env.createPeriod(t, 1000, 0, 0)
	app := env.apply(t, period.ID, "Bachelor of Science", 400)

	updated, err := env.svc.Update(ctx, env.student, app.ID, scholarship.UpdateApplication{
		Motivation: "Revised motivation.", AmountRequested: floatPtr(350),
	})
	require.NoError(t, err)
	assert.Equal(t, "Revised motivation.", updated.Motivation)
	assert.Equal(t, 350.0, updated.AmountRequested)
	assert.Equal(t, app.Degree, updated.Degree)

	_, err = env.svc.Update(ctx, env.tutor, app.ID, scholarship.UpdateApplication{Motivation: "nope"})
	assert.Equal(t, core.ErrForbidden, errors.Cause(err))

	_, err = env.svc.Decide(ctx, env.exec, app.ID, scholarship.Decision{
		Status: scholarship.StatusApproved, AmountGranted: floatPtr(350),
	})
	require.NoError(t, err)
	_, err = env.svc.Update(ctx, env.student, app.ID, scholarship.UpdateApplication{Motivation: "too late"})
	assert.Equal(t, core.ErrForbidden, errors.Cause(err))
}

func TestService_visibility(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	period := env.createPeriod(t, 1000, 0, 0)
	app := env.apply(t, period.ID, "Bachelor of Science", 400)

	// staff see applications they do not own
	got, err := env.svc.Get(ctx, env.tutor, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)

	// student queries are implicitly scoped to their own applications
	apps, err := env.svc.Query(ctx, env.student, nil, nil)
	require.NoError(t, err)
	assert.Len(t, apps, 1)

	apps, err = env.svc.Query(ctx, env.exec, &scholarship.QueryFilter{PeriodID: period.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}
