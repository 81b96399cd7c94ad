package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/casebook/core/casefile"
	"github.com/trezcool/casebook/core/student"
)

func Test_caseFileApi(t *testing.T) {
	app := setup(t)
	usr, token := operator(t, app, "mona")

	_, err := app.studentSvc.Create(context.Background(), student.NewStudent{StudentCode: "S001", StudentName: "Ali Hassan"}, usr.ID)
	require.NoError(t, err)

	t.Run("auth required", func(t *testing.T) {
		rec := app.do(newRequest(http.MethodGet, "/v1/cases"))
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	body := []byte(`{"student_code": "S001", "case_type": "behavioral", "priority": "high", "description": "fights at recess"}`)
	rec := app.do(newAuthRequest(http.MethodPost, "/v1/cases", token, body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cf casefile.CaseFile
	decode(t, rec, &cf)
	assert.Equal(t, "Ali Hassan", cf.StudentName)
	assert.Equal(t, casefile.StatusOpen, cf.Status)
	assert.Equal(t, usr.ID, cf.CreatedBy)

	tests := []httpTest{
		{
			name: "open for unknown student", method: http.MethodPost, path: "/v1/cases", token: token,
			body:     []byte(`{"student_code": "S999", "case_type": "social", "description": "x"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_code": "لا يوجد طالب بهذا الرمز"}),
		},
		{
			name: "list", method: http.MethodGet, path: "/v1/cases", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, []casefile.CaseFile{cf}),
		},
		{
			name: "filter", method: http.MethodGet, path: "/v1/cases?status=closed", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, []casefile.CaseFile{}),
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/v1/cases/" + cf.ID, token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, cf),
		},
		{
			name: "retrieve unknown", method: http.MethodGet, path: "/v1/cases/7b0c2a52-58a6-4b5e-9a57-6f2f1c7e5d10", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "bad status", method: http.MethodPatch, path: "/v1/cases/" + cf.ID, token: token,
			body:     []byte(`{"status": "done"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "resolve", method: http.MethodPatch, path: "/v1/cases/" + cf.ID, token: token,
			body:     []byte(`{"status": "resolved"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}

	got, err := app.caseSvc.Get(context.Background(), cf.ID)
	require.NoError(t, err)
	assert.Equal(t, casefile.StatusResolved, got.Status)
	assert.Equal(t, cf.Priority, got.Priority)
}
