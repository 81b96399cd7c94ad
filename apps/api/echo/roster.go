package echoapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/roster"
	"github.com/trezcool/casebook/core/user"
)

const (
	uploadField      = "file"
	templateFileName = "students-template.xlsx"
	rejectedFileName = "rejected-rows.xlsx"
)

type importApi struct {
	conf     *core.Config
	logger   core.Logger
	mailSvc  core.EmailService
	userSvc  user.ServiceInterface
	registry *roster.Registry
}

func registerImportAPI(g *echo.Group, jwt, wsJWT echo.MiddlewareFunc, deps *Deps) {
	api := importApi{
		conf:     deps.Conf,
		logger:   deps.Logger,
		mailSvc:  deps.MailSvc,
		userSvc:  deps.UserSvc,
		registry: deps.Imports,
	}

	ig := g.Group("/imports")
	ig.GET("/:id/progress", api.progress, wsJWT, operatorMiddleware(), sessionMiddleware(api.registry))

	ag := ig.Group("", jwt, operatorMiddleware())
	ag.GET("/template", api.template)
	ag.POST("", api.create)

	dg := ag.Group("/:id", sessionMiddleware(api.registry))
	dg.GET("", api.retrieve)
	dg.PUT("", api.replace)
	dg.DELETE("", api.destroy)
	dg.POST("/commit", api.commit)
	dg.POST("/cancel", api.cancel)
	dg.GET("/rejected", api.rejected)
}

// Handlers

func (api *importApi) template(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := roster.WriteTemplate(&buf); err != nil {
		return errors.Wrap(err, "writing template")
	}
	return sendXLSX(ctx, templateFileName, &buf)
}

// create starts a new import session from the uploaded file.
func (api *importApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	fh, err := api.uploadedFile(ctx)
	if err != nil {
		return err
	}

	sess := api.registry.New(claims.Subject)
	if err := loadUpload(sess, fh); err != nil {
		_ = api.registry.Remove(sess.ID, claims.Subject)
		return err
	}
	return ctx.JSON(http.StatusCreated, sess.Status())
}

// replace loads a new file into the session; the previous batch is dropped.
func (api *importApi) replace(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	fh, err := api.uploadedFile(ctx)
	if err != nil {
		return err
	}
	if err := loadUpload(sess, fh); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Status())
}

func (api *importApi) retrieve(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Status())
}

func (api *importApi) destroy(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err := api.registry.Remove(sess.ID, sess.OwnerID); err != nil {
		return errors.Wrap(err, "removing import session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// commit starts the commit run in the background; clients follow it on `/progress` or by polling.
func (api *importApi) commit(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	operator, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	fileName := sess.FileName()
	// the run outlives the request
	if err := sess.StartCommit(context.Background(), operator.ID); err != nil {
		return err
	}
	go api.report(sess, operator, fileName)

	return ctx.JSON(http.StatusAccepted, sess.Status())
}

func (api *importApi) cancel(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, CancelResponse{Cancelled: sess.Cancel()})
}

func (api *importApi) rejected(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := roster.WriteRejected(&buf, sess.Batch()); err != nil {
		return errors.Wrap(err, "writing rejected rows")
	}
	return sendXLSX(ctx, rejectedFileName, &buf)
}

// report mails the outcome of the commit run to the operator.
func (api *importApi) report(sess *roster.Session, operator user.User, fileName string) {
	out, err := sess.Wait(context.Background())
	if err != nil {
		return
	}
	api.logger.Info("import committed", map[string]interface{}{
		"session":   sess.ID,
		"file":      fileName,
		"succeeded": out.Succeeded,
		"failed":    out.Failed,
		"cancelled": out.Cancelled,
	}, operator)

	msg, err := roster.NewReportMessage(api.conf, operator, fileName, out)
	if err != nil {
		api.logger.Error("building import report", err, operator)
		return
	}
	if msg != nil {
		api.mailSvc.SendMessages(msg)
	}
}

func (api *importApi) uploadedFile(ctx echo.Context) (*multipart.FileHeader, error) {
	req := ctx.Request()
	req.Body = http.MaxBytesReader(ctx.Response(), req.Body, api.conf.Import.MaxUploadSize+1<<20 /* form overhead */)

	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		if cause := errors.Cause(err); cause == http.ErrMissingFile || cause == http.ErrNotMultipart {
			return nil, errFileRequired
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return nil, errFileTooLarge
		}
		return nil, errors.Wrap(err, "reading uploaded file")
	}
	if fh.Size > api.conf.Import.MaxUploadSize {
		return nil, errFileTooLarge
	}
	return fh, nil
}

func loadUpload(sess *roster.Session, fh *multipart.FileHeader) error {
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	_, err = sess.Load(fh.Filename, file)
	return err
}

func sendXLSX(ctx echo.Context, fileName string, buf *bytes.Buffer) error {
	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentDisposition, "attachment; filename="+strconv.Quote(fileName))
	resp.Header().Set(echo.HeaderContentLength, strconv.Itoa(buf.Len()))
	return ctx.Stream(http.StatusOK, roster.XLSXContentType, buf)
}

type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}
