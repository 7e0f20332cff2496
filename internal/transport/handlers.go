package transport

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/models"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/reconcile"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/service"
	"github.com/Rogue-Bear-Innovations/personal-hub/internal/transport/views"
)

const unauthorizedNotice = "Sign in first to access your account."

func (s *HTTPServer) Landing(c echo.Context) error {
	return s.respond(c, http.StatusOK, struct{}{}, views.PageLanding, views.Page{})
}

func (s *HTTPServer) SignInPage(c echo.Context) error {
	cl, err := GetClientFromContext(c)
	if err != nil {
		return err
	}

	session, err := cl.GetSession(c.Request().Context())
	if err != nil {
		s.logger.Warnw("read session", "error", err)
	}
	if session != nil {
		return c.Redirect(http.StatusFound, "/user")
	}

	page := views.Page{Title: "Sign in", Data: views.SignIn{}}
	if c.QueryParam("unauthorized") == "true" {
		page.Notice = unauthorizedNotice
	}
	return s.respond(c, http.StatusOK, models.SignInResp{}, views.PageSignIn, page)
}

func (s *HTTPServer) SignIn(c echo.Context) error {
	cl, err := GetClientFromContext(c)
	if err != nil {
		return err
	}

	req := models.SignInReq{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err = s.hub.SignIn(c.Request().Context(), cl, &req)
	if err == nil {
		return c.Redirect(http.StatusFound, "/user")
	}

	status := StatusUnknownError
	resp := models.SignInResp{}
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp.FieldErrors = verr.Fields
	case err == service.ErrInvalidCredentials:
		status = http.StatusForbidden
		resp.InvalidCredentials = true
	default:
		resp.UnknownError = true
	}

	return s.respond(c, status, resp, views.PageSignIn, views.Page{
		Title: "Sign in",
		Data: views.SignIn{
			FieldErrors:        resp.FieldErrors,
			InvalidCredentials: resp.InvalidCredentials,
			UnknownError:       resp.UnknownError,
		},
	})
}

// SignOut always lands on the sign in page; the client clears the cookies
// even when revoking the session fails.
func (s *HTTPServer) SignOut(c echo.Context) error {
	cl, err := GetClientFromContext(c)
	if err != nil {
		return err
	}
	_ = s.hub.SignOut(c.Request().Context(), cl)
	return c.Redirect(http.StatusFound, signInPath)
}

func (s *HTTPServer) Account(c echo.Context) error {
	cl, err := GetClientFromContext(c)
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	account, err := s.hub.Account(c.Request().Context(), cl, user)
	if err != nil {
		return s.unknownError(c)
	}

	resp := userResp(account)
	return s.respond(c, http.StatusOK, resp, views.PageAccount, views.Page{
		Title: "Account",
		Data:  views.Account{User: resp},
	})
}

func (s *HTTPServer) UpdateAccount(c echo.Context) error {
	cl, err := GetClientFromContext(c)
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := models.NameReq{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	view := views.Account{
		User: models.UserResp{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		},
	}
	status := http.StatusOK
	resp := models.UpdateUserResp{}

	updated, err := s.hub.UpdateAccount(c.Request().Context(), cl, user, &req)
	var verr *service.ValidationError
	switch {
	case err == nil:
		resp.UpdatedUser = &models.UpdatedUserResp{
			FirstName: updated.First(),
			LastName:  updated.Last(),
		}
		view.User = userResp(updated)
		view.Updated = true
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp.FieldErrors = verr.Fields
		view.FieldErrors = verr.Fields
	default:
		status = StatusUnknownError
		resp.UnknownError = true
		view.UnknownError = true
	}

	return s.respond(c, status, resp, views.PageAccount, views.Page{Title: "Account", Data: view})
}

func (s *HTTPServer) LinkGroups(c echo.Context) error {
	cl, err := GetClientFromContext(c)
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	groups, err := s.hub.LinkGroups(c.Request().Context(), cl, user)
	if err != nil {
		return s.unknownError(c)
	}

	resp := linkGroupsResp(groups)
	return s.respond(c, http.StatusOK, resp, views.PageLinks, views.Page{
		Title: "Links",
		Data:  views.LinkGroups{Groups: resp.LinkGroups},
	})
}

func (s *HTTPServer) CreateLinkGroup(c echo.Context) error {
	cl, err := GetClientFromContext(c)
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	group := c.FormValue("link-group")

	err = s.hub.CreateLinkGroup(ctx, cl, user, group)
	switch err {
	case nil:
		return c.Redirect(http.StatusFound, "/user/links/"+url.PathEscape(group))
	case service.ErrLinkGroupRequired, service.ErrLinkGroupExists:
		view := views.LinkGroups{Error: err.Error()}
		if wantsJSON(c) {
			return c.JSON(http.StatusBadRequest, errorResp(err.Error(), false))
		}
		// the page still lists the groups next to the rejected name
		if groups, err := s.hub.LinkGroups(ctx, cl, user); err == nil {
			view.Groups = linkGroupsResp(groups).LinkGroups
		}
		return s.respond(c, http.StatusBadRequest, nil, views.PageLinks, views.Page{Title: "Links", Data: view})
	default:
		return s.unknownError(c)
	}
}

func (s *HTTPServer) DeleteLinkGroup(c echo.Context) error {
	cl, err := GetClientFromContext(c)
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	err = s.hub.DeleteLinkGroup(c.Request().Context(), cl, user, c.FormValue("link-group"))
	switch err {
	case nil:
		if wantsJSON(c) {
			return c.JSON(http.StatusOK, struct{}{})
		}
		return c.Redirect(http.StatusFound, "/user/links")
	case service.ErrLinkGroupRequired:
		return s.respond(c, http.StatusBadRequest, errorResp(err.Error(), false), views.PageLinks, views.Page{
			Title: "Links",
			Data:  views.LinkGroups{Error: err.Error()},
		})
	default:
		return s.unknownError(c)
	}
}

func (s *HTTPServer) LinkGroup(c echo.Context) error {
	cl, err := GetClientFromContext(c)
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}
	group, err := GetParam(c, "group")
	if err != nil {
		return err
	}

	detail, err := s.hub.LinkGroup(c.Request().Context(), cl, user, group)
	if err != nil {
		return s.unknownError(c)
	}

	resp := detail.Resp()
	return s.respond(c, http.StatusOK, resp, views.PageLinkGroup, views.Page{
		Title: group,
		Data:  views.LinkGroup{Detail: resp, Templates: models.Templates},
	})
}

// SaveLinkGroup stores the submitted links in order. Browser forms may instead
// ask to add or remove a row, which only re-renders the editor.
func (s *HTTPServer) SaveLinkGroup(c echo.Context) error {
	cl, err := GetClientFromContext(c)
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}
	group, err := GetParam(c, "group")
	if err != nil {
		return err
	}
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	values := form["link"]
	template := form.Get("template")

	if !wantsJSON(c) && (form.Has("add") || form.Has("remove")) {
		return s.renderEditor(c, group, values, template, form)
	}

	view := views.LinkGroup{Templates: models.Templates}
	detail, err := s.hub.SaveLinkGroup(c.Request().Context(), cl, user, group, values, template)
	switch err {
	case nil:
		resp := detail.Resp()
		view.Detail = resp
		view.Saved = true
		return s.respond(c, http.StatusOK, models.SaveLinkGroupResp{
			Success:  true,
			Links:    resp.Links,
			Template: resp.Template,
		}, views.PageLinkGroup, views.Page{Title: group, Data: view})
	case service.ErrEmptyLink, service.ErrUnknownTemplate:
		msg := err.Error()
		view.Detail = submittedDetail(group, values, template)
		view.Error = msg
		return s.respond(c, http.StatusBadRequest, models.SaveLinkGroupResp{
			Error:   &msg,
			Success: false,
		}, views.PageLinkGroup, views.Page{Title: group, Data: view})
	default:
		return s.unknownError(c)
	}
}

func (s *HTTPServer) renderEditor(c echo.Context, group string, values []string, template string, form url.Values) error {
	items := make([]reconcile.Item, len(values))
	for i, v := range values {
		items[i] = reconcile.Item{ID: strconv.Itoa(i), Value: v}
	}
	editor := reconcile.New(items, map[string]string{reconcile.FieldTemplate: template})
	if form.Has("remove") {
		editor.Remove(form.Get("remove"))
	}
	if form.Has("add") {
		editor.Append()
	}

	detail := models.LinkGroupDetailResp{Group: group, Template: editor.Template()}
	for _, item := range editor.Items() {
		detail.Links = append(detail.Links, models.LinkResp{ID: item.ID, Link: item.Value})
	}
	return s.respond(c, http.StatusOK, nil, views.PageLinkGroup, views.Page{
		Title: group,
		Data:  views.LinkGroup{Detail: detail, Templates: models.Templates},
	})
}

func (s *HTTPServer) PublicLinkGroup(c echo.Context) error {
	email, err := GetParam(c, "email")
	if err != nil {
		return err
	}
	group, err := GetParam(c, "group")
	if err != nil {
		return err
	}

	detail, err := s.hub.PublicLinkGroup(c.Request().Context(), s.factory.NewAnonClient(), email, group)
	switch err {
	case nil:
	case service.ErrLinkGroupNotFound:
		return s.respond(c, http.StatusNotFound, errorResp(err.Error(), false), views.PageError, views.Page{
			Title: "Not found",
			Data:  err.Error(),
		})
	default:
		return s.unknownError(c)
	}

	resp := detail.Resp()
	return s.respond(c, http.StatusOK, resp, views.PublicPage(detail.Template), views.Page{
		Title: group,
		Data:  views.Public{Owner: email, Detail: resp},
	})
}

////////

func errorResp(msg string, unknown bool) models.ErrorResp {
	return models.ErrorResp{Error: msg, UnknownError: unknown}
}

func userResp(u *models.User) models.UserResp {
	return models.UserResp{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.First(),
		LastName:  u.Last(),
	}
}

func linkGroupsResp(groups []models.LinkGroup) models.LinkGroupsResp {
	resp := models.LinkGroupsResp{LinkGroups: make([]models.LinkGroupResp, len(groups))}
	for i := range groups {
		resp.LinkGroups[i] = models.LinkGroupResp{Group: groups[i].Name, Count: groups[i].Count}
	}
	return resp
}

func submittedDetail(group string, values []string, template string) models.LinkGroupDetailResp {
	detail := models.LinkGroupDetailResp{Group: group, Template: template, Links: make([]models.LinkResp, len(values))}
	for i, v := range values {
		detail.Links[i] = models.LinkResp{ID: strconv.Itoa(i), Link: v}
	}
	return detail
}
