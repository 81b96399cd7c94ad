package echoapi_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	. "github.com/trezcool/casebook/apps/api/echo"
	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/roster"
	"github.com/trezcool/casebook/core/student"
	"github.com/trezcool/casebook/core/user"
	"github.com/trezcool/casebook/tests"
)

type importStatus struct {
	ID         string        `json:"id"`
	State      string        `json:"state"`
	FileName   string        `json:"file_name"`
	Notice     roster.Notice `json:"notice"`
	Valid      int           `json:"valid"`
	Invalid    int           `json:"invalid"`
	Skipped    int           `json:"skipped"`
	Candidates []struct {
		Row        int                     `json:"row"`
		Record     map[string]string       `json:"record"`
		Validation roster.ValidationResult `json:"validation"`
	} `json:"candidates"`
	Progress roster.Progress `json:"progress"`
	Outcome  *struct {
		Total     int              `json:"total"`
		Succeeded int              `json:"succeeded"`
		Failed    int              `json:"failed"`
		Cancelled bool             `json:"cancelled"`
		Failures  []roster.Failure `json:"failures"`
		Notice    roster.Notice    `json:"notice"`
	} `json:"outcome"`
}

func rosterXLSX(t *testing.T) *bytes.Reader {
	return testutil.XLSX(t, [][]interface{}{
		{"رمز الطالب", "اسم الطالب", "المستوى الدراسي", "بريد ولي الأمر الإلكتروني"},
		{"S001", "Ali Hassan", "ابتدائي", "ali.parent@test.local"},
		{"S002", "Mona Adel", "ثانوي", ""},
		{"", "No Code", "", ""},
	})
}

func operator(t *testing.T, app *testApp, uname string) (user.User, string) {
	usr := testutil.CreateUser(t, app.usrRepo, strings.ToUpper(uname[:1])+uname[1:], uname, uname+"@test.local", "", []string{user.RoleCounselor}, true)
	return usr, app.getToken(t, usr)
}

func (app *testApp) upload(t *testing.T, token, filename string, content *bytes.Reader) (*httptest.ResponseRecorder, importStatus) {
	rec := app.do(newUploadRequest(t, http.MethodPost, "/v1/imports", token, filename, content))
	var st importStatus
	if rec.Code == http.StatusCreated {
		decode(t, rec, &st)
	}
	return rec, st
}

func (app *testApp) status(t *testing.T, token, id string) importStatus {
	rec := app.do(newAuthRequest(http.MethodGet, "/v1/imports/"+id, token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st importStatus
	decode(t, rec, &st)
	return st
}

func (app *testApp) waitDone(t *testing.T, token, id string) importStatus {
	var st importStatus
	require.Eventually(t, func() bool {
		st = app.status(t, token, id)
		return st.State == roster.StateDone.String()
	}, 5*time.Second, 10*time.Millisecond)
	return st
}

func Test_importApi_workflow(t *testing.T) {
	app := setup(t)
	usr, token := operator(t, app, "mona")

	rec, st := app.upload(t, token, "roster.xlsx", rosterXLSX(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "extracted", st.State)
	assert.Equal(t, "roster.xlsx", st.FileName)
	assert.Equal(t, 2, st.Valid)
	assert.Equal(t, 1, st.Invalid)
	assert.Equal(t, roster.LevelSuccess, st.Notice.Level)
	require.Len(t, st.Candidates, 3)
	assert.Equal(t, student.LevelPrimary, st.Candidates[0].Record[roster.FieldSchoolLevel])
	assert.Equal(t, 4, st.Candidates[2].Row)
	assert.Equal(t, []string{"رمز الطالب مطلوب"}, st.Candidates[2].Validation.Errors)

	// rejected rows
	rec = app.do(newAuthRequest(http.MethodGet, "/v1/imports/"+st.ID+"/rejected", token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, roster.XLSXContentType, rec.Header().Get("Content-Type"))
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// commit
	rec = app.do(newAuthRequest(http.MethodPost, "/v1/imports/"+st.ID+"/commit", token))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	st = app.waitDone(t, token, st.ID)
	require.NotNil(t, st.Outcome)
	assert.Equal(t, 2, st.Outcome.Succeeded)
	assert.Equal(t, 0, st.Outcome.Failed)
	assert.Equal(t, 100, st.Progress.Percent)

	// students are stored, created by the operator
	std, err := app.studentSvc.GetByCode(context.Background(), "S001")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, std.CreatedBy)
	assert.Equal(t, student.StatusActive, std.Status)

	rec = app.do(newAuthRequest(http.MethodGet, "/v1/students?ordering=-student_code", token))
	require.Equal(t, http.StatusOK, rec.Code)
	var students []student.Student
	decode(t, rec, &students)
	require.Len(t, students, 2)
	assert.Equal(t, "S002", students[0].StudentCode)

	// the report is mailed to the operator
	assert.Eventually(t, func() bool { return len(app.mailSvc.Sent()) == 1 }, 5*time.Second, 10*time.Millisecond)
	sent := app.mailSvc.Sent()[0]
	assert.Equal(t, usr.Email, sent.To[0].Address)
	assert.False(t, sent.HasAttachments())

	// a done batch cannot be committed twice
	rec = app.do(newAuthRequest(http.MethodPost, "/v1/imports/"+st.ID+"/commit", token))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: roster.ErrorNotice(roster.ErrNotExtracted).Message}),
	}, rec)

	// discard
	rec = app.do(newAuthRequest(http.MethodDelete, "/v1/imports/"+st.ID, token))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, app.imports.Len())
}

func Test_importApi_commitFailures(t *testing.T) {
	app := setup(t)
	usr, token := operator(t, app, "mona")

	_, err := app.studentSvc.Create(context.Background(), student.NewStudent{StudentCode: "S002", StudentName: "Already Here"}, usr.ID)
	require.NoError(t, err)

	_, st := app.upload(t, token, "roster.xlsx", rosterXLSX(t))
	rec := app.do(newAuthRequest(http.MethodPost, "/v1/imports/"+st.ID+"/commit", token))
	require.Equal(t, http.StatusAccepted, rec.Code)

	st = app.waitDone(t, token, st.ID)
	require.NotNil(t, st.Outcome)
	assert.Equal(t, 1, st.Outcome.Succeeded)
	assert.Equal(t, 1, st.Outcome.Failed)
	require.Len(t, st.Outcome.Failures, 1)
	assert.Equal(t, "S002", st.Outcome.Failures[0].StudentCode)
	assert.Equal(t, 3, st.Outcome.Failures[0].Row)
	assert.Equal(t, roster.LevelWarning, st.Outcome.Notice.Level)
	assert.Equal(t, 1, app.logger.Count("WARN"))

	assert.Eventually(t, func() bool { return len(app.mailSvc.Sent()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, app.mailSvc.Sent()[0].HasAttachments())
}

func Test_importApi_upload(t *testing.T) {
	app := setup(t, func(conf *core.Config) { conf.Import.MaxUploadSize = 64 << 10 })
	_, token := operator(t, app, "mona")

	t.Run("auth required", func(t *testing.T) {
		rec, _ := app.upload(t, "", "roster.xlsx", rosterXLSX(t))
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("operator required", func(t *testing.T) {
		nobody := testutil.CreateUser(t, app.usrRepo, "Nobody", "nobody", "", "", nil, true)
		rec, _ := app.upload(t, app.getToken(t, nobody), "roster.xlsx", rosterXLSX(t))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("file required", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/imports", token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "file is required"})}, rec)
	})

	t.Run("too large", func(t *testing.T) {
		rec, _ := app.upload(t, token, "roster.xlsx", bytes.NewReader(make([]byte, 65<<10)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("unsupported format", func(t *testing.T) {
		rec, _ := app.upload(t, token, "roster.csv", bytes.NewReader([]byte("code,name\nS1,Ali\n")))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnsupportedMediaType,
			wantData: marchallObj(t, httpErr{Error: roster.ErrorNotice(roster.ErrUnsupportedFormat).Message}),
		}, rec)
	})

	t.Run("empty sheet", func(t *testing.T) {
		rec, _ := app.upload(t, token, "empty.xlsx", testutil.XLSX(t, [][]interface{}{{"رمز الطالب", "اسم الطالب"}}))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: roster.ErrorNotice(roster.ErrEmptySheet).Message}),
		}, rec)
	})

	t.Run("corrupt workbook", func(t *testing.T) {
		rec, _ := app.upload(t, token, "broken.xlsx", bytes.NewReader([]byte("not a workbook")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	// failed uploads leave no session behind
	assert.Equal(t, 0, app.imports.Len())

	t.Run("pdf", func(t *testing.T) {
		rec, st := app.upload(t, token, "roster.pdf", bytes.NewReader([]byte("%PDF-1.4")))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "idle", st.State)
		assert.Equal(t, roster.LevelInfo, st.Notice.Level)

		// nothing to commit
		rec = app.do(newAuthRequest(http.MethodPost, "/v1/imports/"+st.ID+"/commit", token))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		// loading a spreadsheet into the same session
		rec = app.do(newUploadRequest(t, http.MethodPut, "/v1/imports/"+st.ID, token, "roster.xlsx", rosterXLSX(t)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "extracted", app.status(t, token, st.ID).State)

		// an unsupported file keeps the current batch
		rec = app.do(newUploadRequest(t, http.MethodPut, "/v1/imports/"+st.ID, token, "roster.txt", bytes.NewReader([]byte("x"))))
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		kept := app.status(t, token, st.ID)
		assert.Equal(t, "extracted", kept.State)
		assert.Equal(t, 2, kept.Valid)
	})
}

func Test_importApi_ownership(t *testing.T) {
	app := setup(t)
	_, monaToken := operator(t, app, "mona")
	_, samiToken := operator(t, app, "sami")

	_, st := app.upload(t, monaToken, "roster.xlsx", rosterXLSX(t))
	require.NotEmpty(t, st.ID)

	notFound := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
	checkCodeAndData(t, notFound, app.do(newAuthRequest(http.MethodGet, "/v1/imports/"+st.ID, samiToken)))
	checkCodeAndData(t, notFound, app.do(newAuthRequest(http.MethodPost, "/v1/imports/"+st.ID+"/commit", samiToken)))
	checkCodeAndData(t, notFound, app.do(newAuthRequest(http.MethodGet, "/v1/imports/unknown", monaToken)))

	rec := app.do(newAuthRequest(http.MethodPost, "/v1/imports/"+st.ID+"/cancel", monaToken))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, CancelResponse{Cancelled: false})}, rec)
}

func Test_importApi_template(t *testing.T) {
	app := setup(t)
	_, token := operator(t, app, "mona")

	rec := app.do(newAuthRequest(http.MethodGet, "/v1/imports/template", token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "students-template.xlsx")

	// the template is accepted back as an (empty) roster
	rec, _ = app.upload(t, token, "template.xlsx", bytes.NewReader(rec.Body.Bytes()))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: roster.ErrorNotice(roster.ErrEmptySheet).Message}),
	}, rec)
}

func Test_importApi_progress(t *testing.T) {
	app := setup(t)
	_, token := operator(t, app, "mona")
	_, st := app.upload(t, token, "roster.xlsx", rosterXLSX(t))

	srv := httptest.NewServer(app)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/imports/" + st.ID + "/progress"

	// the token is read from the query
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	rec := app.do(newAuthRequest(http.MethodPost, "/v1/imports/"+st.ID+"/commit", token))
	require.Equal(t, http.StatusAccepted, rec.Code)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msgs []ProgressMessage
	for {
		var msg ProgressMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		msgs = append(msgs, msg)
		if msg.Type == "OUTCOME" {
			break
		}
	}

	require.GreaterOrEqual(t, len(msgs), 2)
	last := msgs[len(msgs)-1]
	require.Equal(t, "OUTCOME", last.Type)
	require.NotNil(t, last.Status)
	assert.Equal(t, roster.StateDone, last.Status.State)
	require.NotNil(t, last.Status.Outcome)
	assert.Equal(t, 2, last.Status.Outcome.Succeeded)

	progress := msgs[len(msgs)-2]
	require.Equal(t, "PROGRESS", progress.Type)
	require.NotNil(t, progress.Progress)
	assert.Equal(t, 100, progress.Progress.Percent)
}
