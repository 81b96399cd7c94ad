package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/casebook/apps/api/echo"
	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/attendance"
	"github.com/trezcool/casebook/core/casefile"
	"github.com/trezcool/casebook/core/roster"
	"github.com/trezcool/casebook/core/student"
	"github.com/trezcool/casebook/core/user"
	"github.com/trezcool/casebook/services/email"
	"github.com/trezcool/casebook/storage/database/inmem"
	"github.com/trezcool/casebook/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	Server
	conf       *core.Config
	usrRepo    user.Repository
	studentSvc student.ServiceInterface
	caseSvc    casefile.ServiceInterface
	attSvc     attendance.ServiceInterface
	imports    *roster.Registry
	mailSvc    *emailsvc.ConsoleService
	logger     *testutil.Logger
}

func setup(t *testing.T, configure ...func(*core.Config)) *testApp {
	conf := core.NewTestConfig()
	for _, fn := range configure {
		fn(conf)
	}

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	stdRepo := inmemdb.NewStudentRepository(db)
	caseRepo := inmemdb.NewCaseFileRepository(db)
	attRepo := inmemdb.NewAttendanceRepository(db)

	// set up services
	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	student.RegisterValidators(validate, translator)
	logger := testutil.NewLogger(t)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(usrRepo)
	stdSvc := student.NewService(stdRepo, validate, translator)
	caseSvc := casefile.NewService(caseRepo, stdSvc, validate, translator)
	attSvc := attendance.NewService(attRepo, stdSvc, validate, translator)
	imports := roster.NewRegistry(
		roster.NewExtractor(validate, translator),
		roster.NewCommitter(stdSvc, logger, conf),
		conf.Import.SessionTTL,
	)

	// set up server
	app := NewServer("", nil, &Deps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		MailSvc:       mailSvc,
		UserSvc:       usrSvc,
		StudentSvc:    stdSvc,
		CaseFileSvc:   caseSvc,
		AttendanceSvc: attSvc,
		Imports:       imports,
	})
	return &testApp{
		Server:     app,
		conf:       conf,
		usrRepo:    usrRepo,
		studentSvc: stdSvc,
		caseSvc:    caseSvc,
		attSvc:     attSvc,
		imports:    imports,
		mailSvc:    mailSvc,
		logger:     logger,
	}
}

func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest sends `content` as the multipart `file` field.
func newUploadRequest(t *testing.T, method, path, token, filename string, content io.Reader) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.Copy(part, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(app.conf, GetUserClaims(app.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
