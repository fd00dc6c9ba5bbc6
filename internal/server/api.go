package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/meysam81/go-bus/auth/oauth"
	"github.com/meysam81/go-bus/gitlab"
	"github.com/meysam81/go-bus/imaging/jpeg"
	"github.com/meysam81/go-bus/storage"
	"go.uber.org/zap"
)

const maxImageBytes = 64 << 20

func (s *Server) apiRoutes(v1 *gin.RouterGroup) {
	if s.deps.Login != nil {
		v1.GET("/providers", s.listProviders)
		v1.POST("/tokens/:provider/:uuid/refresh", s.refreshToken)
		v1.DELETE("/tokens/:provider/:uuid", s.deleteToken)
	}

	if s.deps.GitLab != nil {
		gl := v1.Group("/gitlab")
		gl.GET("/user", s.gitlabUser)
		gl.GET("/projects/:project/events", s.projectEvents)
		gl.GET("/projects/:project/releases", s.projectReleases)
		gl.GET("/projects/:project/environments", s.projectEnvironments)
	}

	v1.POST("/jpeg/inspect", s.inspectJPEG)
	v1.POST("/jpeg/patch", s.patchJPEG)
}

func (s *Server) abort(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) listProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": s.deps.Login.Client().ListProviders()})
}

func (s *Server) refreshToken(c *gin.Context) {
	token, err := s.deps.Login.RefreshStored(c.Request.Context(), c.Param("provider"), c.Param("uuid"))
	if err != nil {
		s.abort(c, oauthStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func (s *Server) deleteToken(c *gin.Context) {
	if err := s.deps.Login.Logout(c.Request.Context(), c.Param("provider"), c.Param("uuid")); err != nil {
		s.abort(c, oauthStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func oauthStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrExpired):
		return http.StatusNotFound
	case errors.Is(err, oauth.ErrProviderNotFound):
		return http.StatusNotFound
	case errors.Is(err, oauth.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, oauth.ErrIllegalToken):
		return http.StatusUnauthorized
	case errors.Is(err, oauth.ErrNoTokenStore):
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}

func gitlabStatus(err error) int {
	var resp *gitlab.ErrorResponse
	if errors.As(err, &resp) && resp.StatusCode() < http.StatusInternalServerError {
		return resp.StatusCode()
	}
	return http.StatusBadGateway
}

func listOptions(c *gin.Context) (*gitlab.ListOptions, error) {
	opts := &gitlab.ListOptions{}
	for name, dst := range map[string]*int{"page": &opts.Page, "per_page": &opts.PerPage} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, errors.New("invalid " + name)
		}
		*dst = n
	}
	return opts, nil
}

// writePage copies GitLab's pagination headers to the response.
func writePage(c *gin.Context, resp *gitlab.Response) {
	if resp == nil {
		return
	}
	for name, v := range map[string]int{
		"X-Page":        resp.CurrentPage,
		"X-Next-Page":   resp.NextPage,
		"X-Total":       resp.TotalItems,
		"X-Total-Pages": resp.TotalPages,
	} {
		if v > 0 {
			c.Header(name, strconv.Itoa(v))
		}
	}
}

func (s *Server) gitlabUser(c *gin.Context) {
	user, _, err := s.deps.GitLab.Users.CurrentUser(c.Request.Context())
	if err != nil {
		s.abort(c, gitlabStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) projectEvents(c *gin.Context) {
	opts, err := listOptions(c)
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	filter := &gitlab.EventFilter{
		Action:     gitlab.ActionType(c.Query("action")),
		TargetType: gitlab.TargetType(c.Query("target_type")),
		Sort:       gitlab.SortOrder(c.Query("sort")),
	}
	events, resp, err := s.deps.GitLab.Events.ListProjectEvents(c.Request.Context(), c.Param("project"), filter, opts)
	if err != nil {
		s.abort(c, gitlabStatus(err), err)
		return
	}
	writePage(c, resp)
	c.JSON(http.StatusOK, events)
}

func (s *Server) projectReleases(c *gin.Context) {
	opts, err := listOptions(c)
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	releases, resp, err := s.deps.GitLab.Releases.ListReleases(c.Request.Context(), c.Param("project"), opts)
	if err != nil {
		s.abort(c, gitlabStatus(err), err)
		return
	}
	writePage(c, resp)
	c.JSON(http.StatusOK, releases)
}

func (s *Server) projectEnvironments(c *gin.Context) {
	opts, err := listOptions(c)
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	envOpts := &gitlab.ListEnvironmentsOptions{
		ListOptions: *opts,
		Name:        c.Query("name"),
		Search:      c.Query("search"),
		States:      c.Query("states"),
	}
	envs, resp, err := s.deps.GitLab.Environments.ListEnvironments(c.Request.Context(), c.Param("project"), envOpts)
	if err != nil {
		s.abort(c, gitlabStatus(err), err)
		return
	}
	writePage(c, resp)
	c.JSON(http.StatusOK, envs)
}

func readImage(c *gin.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request.Body, maxImageBytes))
}

func (s *Server) inspectJPEG(c *gin.Context) {
	data, err := readImage(c)
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	info, err := jpeg.Inspect(data)
	if err != nil {
		s.abort(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// patchJPEG returns the body with an LSE segment inserted. The inserted
// parameters are reported in X-Coding-Param; the header is absent when the
// stream needed no patch.
func (s *Server) patchJPEG(c *gin.Context) {
	mode, err := jpeg.ParsePatchMode(c.DefaultQuery("mode", jpeg.ISO2JAI.String()))
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	data, err := readImage(c)
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	patched, param := mode.PatchHeader(data)
	if param != nil {
		c.Header("X-Coding-Param", param.String())
		s.logger.Debug("patched JPEG-LS stream", zap.Stringer("mode", mode), zap.Stringer("param", param))
	}
	c.Data(http.StatusOK, "image/jpeg", patched)
}
