package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/letieu/strategia/internal/export"
	"github.com/letieu/strategia/internal/idea"
	"github.com/letieu/strategia/internal/library"
	"github.com/letieu/strategia/internal/license"
)

// errNoResult is returned when the model produced nothing usable for a
// single-object request.
var errNoResult = errors.New("the model returned no usable result")

func badRequest(format string, args ...any) error {
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

type generateRequest struct {
	Category string `json:"category"`
}

func (s *Server) handleGenerate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	category, err := idea.ParseFilter(req.Category)
	if err != nil {
		return badRequest("%v", err)
	}
	ideas, err := s.analyzer.GenerateIdeas(c.Request().Context(), category)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ideas)
}

type refineRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleRefine(c echo.Context) error {
	var req refineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if strings.TrimSpace(req.Input) == "" {
		return badRequest("input is required")
	}
	it, err := s.analyzer.RefineIdea(c.Request().Context(), req.Input)
	if err != nil {
		return err
	}
	if it == nil {
		return errNoResult
	}
	return c.JSON(http.StatusOK, it)
}

// listParams reads the category and sort query parameters.
func listParams(c echo.Context) (idea.Category, library.Sort, error) {
	category, err := idea.ParseFilter(c.QueryParam("category"))
	if err != nil {
		return "", "", badRequest("%v", err)
	}
	order, err := library.ParseSort(c.QueryParam("sort"))
	if err != nil {
		return "", "", badRequest("%v", err)
	}
	return category, order, nil
}

func (s *Server) handleListCurrent(c echo.Context) error {
	category, order, err := listParams(c)
	if err != nil {
		return err
	}
	ideas := library.List(s.library.Current(c.Request().Context()), category, order)
	return c.JSON(http.StatusOK, ideas)
}

func (s *Server) handleListSaved(c echo.Context) error {
	category, order, err := listParams(c)
	if err != nil {
		return err
	}
	ideas := library.List(s.library.Saved(c.Request().Context()), category, order)
	return c.JSON(http.StatusOK, ideas)
}

func (s *Server) findIdea(c echo.Context) (idea.Idea, error) {
	return s.library.Find(c.Request().Context(), c.Param("id"))
}

func (s *Server) handleAnalyze(c echo.Context) error {
	it, err := s.findIdea(c)
	if err != nil {
		return err
	}
	a, err := s.analyzer.AnalyzeIdea(c.Request().Context(), it)
	if err != nil {
		return err
	}
	if a == nil {
		return errNoResult
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) handleSelectedAnalysis(c echo.Context) error {
	a := s.library.SelectedAnalysis(c.Request().Context())
	if a == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no analysis selected")
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) handleNames(c echo.Context) error {
	it, err := s.findIdea(c)
	if err != nil {
		return err
	}
	names, err := s.analyzer.GenerateAppNames(c.Request().Context(), it)
	if err != nil {
		return err
	}
	if names == nil {
		return errNoResult
	}
	return c.JSON(http.StatusOK, names)
}

func (s *Server) handleMarketing(c echo.Context) error {
	it, err := s.findIdea(c)
	if err != nil {
		return err
	}
	mc, err := s.analyzer.GenerateMarketingCopy(c.Request().Context(), it)
	if err != nil {
		return err
	}
	if mc == nil {
		return errNoResult
	}
	return c.JSON(http.StatusOK, mc)
}

func (s *Server) handleMVP(c echo.Context) error {
	it, err := s.findIdea(c)
	if err != nil {
		return err
	}
	plan, err := s.analyzer.GenerateMVPPlan(c.Request().Context(), it)
	if err != nil {
		return err
	}
	if plan == nil {
		return errNoResult
	}
	return c.JSON(http.StatusOK, plan)
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) bindIdeas(c echo.Context) ([]idea.Idea, error) {
	var req idsRequest
	if err := c.Bind(&req); err != nil {
		return nil, badRequest("invalid request body")
	}
	if len(req.IDs) == 0 {
		return nil, badRequest("ids is required")
	}
	ideas := make([]idea.Idea, 0, len(req.IDs))
	for _, id := range req.IDs {
		it, err := s.library.Find(c.Request().Context(), id)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, it)
	}
	return ideas, nil
}

func (s *Server) handleImages(c echo.Context) error {
	ideas, err := s.bindIdeas(c)
	if err != nil {
		return err
	}
	out, err := s.analyzer.GenerateImages(c.Request().Context(), ideas)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleCompare(c echo.Context) error {
	ideas, err := s.bindIdeas(c)
	if err != nil {
		return err
	}
	cmp, err := s.analyzer.Compare(c.Request().Context(), ideas)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cmp)
}

func (s *Server) handleSave(c echo.Context) error {
	ctx := c.Request().Context()
	it, err := s.findIdea(c)
	if err != nil {
		return err
	}
	if err := s.library.Save(ctx, it); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (s *Server) handleUnsave(c echo.Context) error {
	if err := s.library.Unsave(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSimilar(c echo.Context) error {
	matches, err := s.library.Similar(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, matches)
}

func (s *Server) handleExport(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.licenses.Check(ctx, license.FeatureAction(license.Export)); err != nil {
		return err
	}

	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return badRequest("%v", err)
	}

	var (
		title string
		ideas []idea.Idea
	)
	switch c.QueryParam("source") {
	case "", "current":
		title, ideas = "Generated Ideas", s.library.Current(ctx)
	case "saved":
		title, ideas = "Saved Ideas", s.library.Saved(ctx)
	default:
		return badRequest("source must be current or saved")
	}

	doc := export.NewDocument(title, s.now(), ideas, s.library.SelectedAnalysis(ctx))
	var buf bytes.Buffer
	if err := export.Write(&buf, format, doc); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename(format)))
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

type licenseResponse struct {
	Licensed    bool   `json:"licensed"`
	Key         string `json:"key,omitempty"`
	Email       string `json:"email,omitempty"`
	ActivatedAt string `json:"activatedAt,omitempty"`
}

func licenseBody(l *license.License) licenseResponse {
	if l == nil {
		return licenseResponse{}
	}
	return licenseResponse{
		Licensed:    true,
		Key:         l.MaskedKey(),
		Email:       l.Email,
		ActivatedAt: l.ActivatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *Server) handleLicense(c echo.Context) error {
	return c.JSON(http.StatusOK, licenseBody(s.licenses.License(c.Request().Context())))
}

type activateRequest struct {
	Key   string `json:"key"`
	Email string `json:"email"`
}

func (s *Server) handleActivate(c echo.Context) error {
	var req activateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	l, err := s.licenses.Activate(c.Request().Context(), req.Key, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, licenseBody(l))
}

func (s *Server) handleDeactivate(c echo.Context) error {
	if err := s.licenses.Deactivate(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type usageResponse struct {
	license.Usage
	Licensed  bool `json:"licensed"`
	Remaining int  `json:"remaining"`
}

func (s *Server) handleUsage(c echo.Context) error {
	g := s.licenses.Gate(c.Request().Context())
	return c.JSON(http.StatusOK, usageResponse{Usage: g.Usage, Licensed: g.Licensed, Remaining: g.Remaining()})
}

type themeBody struct {
	Theme string `json:"theme"`
}

func (s *Server) handleTheme(c echo.Context) error {
	return c.JSON(http.StatusOK, themeBody{Theme: string(s.library.Theme(c.Request().Context()))})
}

func (s *Server) handleSetTheme(c echo.Context) error {
	var req themeBody
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	t, err := library.ParseTheme(req.Theme)
	if err != nil {
		return badRequest("%v", err)
	}
	if err := s.library.SetTheme(c.Request().Context(), t); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, themeBody{Theme: string(t)})
}
