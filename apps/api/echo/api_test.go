package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/kymanga/ruzuku/core/budget"
	"github.com/kymanga/ruzuku/core/funding"
	"github.com/kymanga/ruzuku/core/scholarship"
	"github.com/kymanga/ruzuku/core/user"
)

func Test_userApi_login(t *testing.T) {
	usr := createUser(t, "Login User", "loginusr", "login@test.cd", "S3cr3t#pwd", nil, true)
	createUser(t, "Deactivated", "loginoff", "loginoff@test.cd", "S3cr3t#pwd", nil, false)

	tests := []httpTest{
		{
			name: "unknown user", body: marchallObj(t, LoginRequest{Username: "whodis", Password: "S3cr3t#pwd"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Username: usr.Username, Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, LoginRequest{Username: "loginoff", Password: "S3cr3t#pwd"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("success", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Username: usr.Username, Password: "S3cr3t#pwd"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusOK)

		var resp LoginResponse
		unmarchallObj(t, rec, &resp)
		if resp.Token == "" {
			t.Error("login returned an empty token")
		}
	})
}

func Test_authRequired(t *testing.T) {
	paths := []string{"/v1/funding-requests", "/v1/scholarships", "/v1/budgets", "/v1/periods"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			tt := httpTest{
				method: http.MethodGet, path: path,
				wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
			}
			req, rec := newRequest(tt.method, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_budgetApi_executiveOnly(t *testing.T) {
	student := createUser(t, "Budget Student", "budstud", "budstud@test.cd", "", []string{user.RoleStudent}, true)
	studentToken := getToken(t, student)

	now := time.Now()
	body := marchallObj(t, budget.NewPool{Title: "Q3 travel", Total: 100, StartDate: now, EndDate: now.AddDate(0, 3, 0)})

	tests := []httpTest{
		{
			name: "create pool", method: http.MethodPost, path: "/v1/budgets", body: body,
			token: studentToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "create period", method: http.MethodPost, path: "/v1/periods", body: body,
			token: studentToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_fundingApi_lifecycle(t *testing.T) {
	exec := createUser(t, "Funding Exec", "fundexec", "fundexec@test.cd", "", []string{user.RoleExecBoard}, true)
	applicant := createUser(t, "Funding Researcher", "fundres", "fundres@test.cd", "", []string{user.RoleResearcher}, true)
	stranger := createUser(t, "Funding Stranger", "fundnone", "fundnone@test.cd", "", []string{user.RoleStudent}, true)

	execToken := getToken(t, exec)
	applicantToken := getToken(t, applicant)

	now := time.Now()

	// executive sets up the pool
	var pool budget.Pool
	{
		body := marchallObj(t, budget.NewPool{Title: "Conference travel", Total: 100, StartDate: now, EndDate: now.AddDate(0, 3, 0)})
		req, rec := newAuthRequest(http.MethodPost, "/v1/budgets", execToken, body)
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusCreated)
		unmarchallObj(t, rec, &pool)
	}

	// applicant files a request
	var request funding.Request
	{
		body := marchallObj(t, funding.NewRequest{
			Purpose:         "Paper presentation",
			Destination:     "Kinshasa",
			EventDate:       now.AddDate(0, 1, 0),
			AmountRequested: 80,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/funding-requests", applicantToken, body)
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusCreated)
		unmarchallObj(t, rec, &request)
		if request.Status != funding.StatusPending {
			t.Errorf("status = %v; want %v", request.Status, funding.StatusPending)
		}
	}

	granted := 50
	decision := marchallObj(t, funding.Decision{Status: funding.StatusApproved, AmountGranted: &granted, PoolID: pool.ID})

	// applicants cannot decide, not even their own
	{
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodPut, "/v1/funding-requests/"+request.ID+"/decision", applicantToken, decision)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	}

	// the executive approves; the grant is reserved on the pool
	{
		req, rec := newAuthRequest(http.MethodPut, "/v1/funding-requests/"+request.ID+"/decision", execToken, decision)
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusOK)

		var decided funding.Request
		unmarchallObj(t, rec, &decided)
		if decided.Status != funding.StatusApproved {
			t.Errorf("status = %v; want %v", decided.Status, funding.StatusApproved)
		}
		if decided.AmountGranted != granted {
			t.Errorf("amountGranted = %v; want %v", decided.AmountGranted, granted)
		}
	}
	{
		req, rec := newAuthRequest(http.MethodGet, "/v1/budgets/"+pool.ID+"/available", applicantToken)
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusOK)

		var resp AvailableResponse
		unmarchallObj(t, rec, &resp)
		if resp.Available != 50 {
			t.Errorf("available = %v; want 50", resp.Available)
		}
	}

	// a grant that no longer fits is a validation error, not a server error
	{
		over := 200
		body := marchallObj(t, funding.Decision{Status: funding.StatusApproved, AmountGranted: &over})
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "insufficient budget available"}),
		}
		req, rec := newAuthRequest(http.MethodPut, "/v1/funding-requests/"+request.ID+"/decision", execToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	}

	// other applicants cannot see the request
	{
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/funding-requests/"+request.ID, getToken(t, stranger))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	}
}

func Test_scholarshipApi_endorsementAndDecision(t *testing.T) {
	exec := createUser(t, "Schol Exec", "scholexec", "scholexec@test.cd", "", []string{user.RoleExecBoard}, true)
	tutor := createUser(t, "Schol Tutor", "scholtut", "scholtut@test.cd", "", []string{user.RoleStaff}, true)
	student := createUser(t, "Schol Student", "scholstud", "scholstud@test.cd", "", []string{user.RoleStudent}, true)

	execToken := getToken(t, exec)
	tutorToken := getToken(t, tutor)
	studentToken := getToken(t, student)

	now := time.Now()

	var period budget.Period
	{
		body := marchallObj(t, budget.NewPeriod{
			Title:     "Spring intake",
			Totals:    budget.CategoryAmounts{Bachelor: 500},
			StartDate: now,
			EndDate:   now.AddDate(0, 3, 0),
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/periods", execToken, body)
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusCreated)
		unmarchallObj(t, rec, &period)
	}

	var application scholarship.Application
	{
		body := marchallObj(t, scholarship.NewApplication{
			PeriodID:        period.ID,
			Degree:          "Bachelor of Science",
			Motivation:      "Continuing my studies.",
			AmountRequested: 400,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/scholarships", studentToken, body)
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusCreated)
		unmarchallObj(t, rec, &application)
	}

	endorsement := marchallObj(t, EndorsementRequest{Status: scholarship.StatusApproved})

	// students cannot endorse
	{
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodPut, "/v1/scholarships/"+application.ID+"/endorsement", studentToken, endorsement)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	}

	// the tutor's endorsement is advisory: status stays pending
	{
		req, rec := newAuthRequest(http.MethodPut, "/v1/scholarships/"+application.ID+"/endorsement", tutorToken, endorsement)
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusOK)

		var endorsed scholarship.Application
		unmarchallObj(t, rec, &endorsed)
		if endorsed.TutorStatus != scholarship.StatusApproved {
			t.Errorf("tutorStatus = %v; want %v", endorsed.TutorStatus, scholarship.StatusApproved)
		}
		if endorsed.Status != scholarship.StatusPending {
			t.Errorf("status = %v; want %v", endorsed.Status, scholarship.StatusPending)
		}
	}

	// staff cannot decide
	granted := 400.0
	decision := marchallObj(t, scholarship.Decision{Status: scholarship.StatusApproved, AmountGranted: &granted})
	{
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodPut, "/v1/scholarships/"+application.ID+"/decision", tutorToken, decision)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	}

	// the executive decision draws on the period's bachelor bucket
	{
		req, rec := newAuthRequest(http.MethodPut, "/v1/scholarships/"+application.ID+"/decision", execToken, decision)
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusOK)

		var decided scholarship.Application
		unmarchallObj(t, rec, &decided)
		if decided.Status != scholarship.StatusApproved {
			t.Errorf("status = %v; want %v", decided.Status, scholarship.StatusApproved)
		}
	}
	{
		req, rec := newAuthRequest(http.MethodGet, "/v1/periods/"+period.ID+"/available?category=bachelor", studentToken)
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusOK)

		var resp AvailableResponse
		unmarchallObj(t, rec, &resp)
		if resp.Available != 100 {
			t.Errorf("available = %v; want 100", resp.Available)
		}
	}

	// category is mandatory on the availability endpoint
	{
		req, rec := newAuthRequest(http.MethodGet, "/v1/periods/"+period.ID+"/available", studentToken)
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusBadRequest)
	}
}
