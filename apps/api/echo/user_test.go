package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/casebook/apps/api/echo"
	"github.com/trezcool/casebook/core/user"
	"github.com/trezcool/casebook/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	pwd := "Pa$$w0rd!"
	testutil.CreateUser(t, app.usrRepo, "Mona", "mona", "mona@test.local", pwd, []string{user.RoleCounselor}, true)
	testutil.CreateUser(t, app.usrRepo, "Gone", "gone", "gone@test.local", pwd, []string{user.RoleCounselor}, false)

	tests := []httpTest{
		{
			name: "missing fields", body: marchallObj(t, LoginRequest{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "اسم المستخدم مطلوب",
				"password": "كلمة المرور مطلوب",
			}),
		},
		{
			name: "unknown user", body: marchallObj(t, LoginRequest{Username: "nobody", Password: pwd}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Username: "mona", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", body: marchallObj(t, LoginRequest{Username: "gone", Password: pwd}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "by username", body: marchallObj(t, LoginRequest{Username: " MONA ", Password: pwd}), wantCode: http.StatusOK},
		{name: "by email", body: marchallObj(t, LoginRequest{Username: "mona@test.local", Password: pwd}), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newRequest(http.MethodPost, "/v1/users/login", tt.body))
			checkCodeAndData(t, tt, rec)
			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, app.usrRepo, "Mona", "mona", "mona@test.local", "", []string{user.RoleCounselor}, true)

	rec := app.do(newRequest(http.MethodPost, "/v1/users/token-refresh"))
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	rec = app.do(newAuthRequest(http.MethodPost, "/v1/users/token-refresh", app.getToken(t, usr)))
	assert.Equal(t, http.StatusOK, rec.Code)

	// refresh window is over
	claims := GetUserClaims(app.conf, usr, 1)
	token, err := GenerateToken(app.conf, claims)
	assert.NoError(t, err)
	rec = app.do(newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token))
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})}, rec)
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.local", "", []string{user.RoleAdmin}, true)
	counselor := testutil.CreateUser(t, app.usrRepo, "Mona", "mona", "mona@test.local", "", []string{user.RoleCounselor}, true)
	adminToken := app.getToken(t, admin)

	newUser := func(uname string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            "Sami Nasser",
			Username:        uname,
			Password:        "Zx9!kLm#2q",
			PasswordConfirm: "Zx9!kLm#2q",
			Roles:           roles,
		})
	}

	tests := []httpTest{
		{name: "auth required", body: newUser("sami"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", body: newUser("sami"), token: app.getToken(t, counselor),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "username taken", body: newUser("mona"), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "role above own", body: newUser("sami", user.RoleAdminOwner), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "لا تملك صلاحية منح هذه الأدوار"}),
		},
		{name: "created", body: newUser("sami", user.RoleCounselor), token: adminToken, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}

	usr, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: "sami"})
	assert.NoError(t, err)
	assert.Equal(t, []string{user.RoleCounselor}, usr.Roles)
	assert.True(t, usr.IsActive)
}
