package dentalchart

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/odontogram/internal/platform/canvas"
	"github.com/ehr/odontogram/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dental/catalog", h.GetCatalog)
	api.GET("/dental/numbering", h.GetNumbering)

	charts := api.Group("/charts/:patient")
	charts.POST("/session", h.OpenSession)
	charts.DELETE("/session", h.CloseSession)
	charts.GET("", h.GetChart)
	charts.PUT("", h.ReplaceChart)
	charts.GET("/summary", h.GetSummary)
	charts.GET("/history", h.ListHistory)
	charts.GET("/view.svg", h.GetSVG)
	charts.GET("/view.png", h.GetPNG)

	charts.POST("/pointer", h.Pointer)
	charts.POST("/region", h.Region)
	charts.POST("/key", h.Key)
	charts.PUT("/mode", h.SetMode)
	charts.PUT("/condition", h.SetCondition)
	charts.PUT("/note", h.CommitNote)
}

// uiResponse is the wire form of UIState; tooth ids are FDI codes.
type uiResponse struct {
	SelectedTooth   *string `json:"selected_tooth"`
	SelectedSurface *string `json:"selected_surface"`
	Mode            Mode    `json:"mode"`
	ActiveCondition string  `json:"active_condition"`
}

func toUIResponse(u UIState) uiResponse {
	out := uiResponse{Mode: u.Mode}
	if u.SelectedTooth != 0 {
		id := ToDisplay(u.SelectedTooth)
		out.SelectedTooth = &id
	}
	if u.SelectedSurface != NoSurface {
		sf := u.SelectedSurface.String()
		out.SelectedSurface = &sf
	}
	if u.Active != nil {
		out.ActiveCondition = u.Active.Key()
	}
	return out
}

type inputResponse struct {
	Mutated  bool          `json:"mutated"`
	Entry    *HistoryEntry `json:"entry,omitempty"`
	Rejected string        `json:"rejected,omitempty"`
	UI       uiResponse    `json:"ui"`
}

func patientParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("patient"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	return id, nil
}

// chartError maps service errors onto HTTP errors.
func chartError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrDestroyed):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnknownTooth), errors.Is(err, ErrConditionCategory),
		errors.Is(err, ErrInvalidMobility), errors.Is(err, ErrInvalidSurface):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrToothMissing):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// respondInput turns an engine outcome into a response. Rejected clicks are
// no-ops for the caller, not failures.
func respondInput(c echo.Context, out Outcome, err error) error {
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrDestroyed) {
			return chartError(err)
		}
		if errors.Is(err, ErrToothMissing) || errors.Is(err, ErrConditionCategory) ||
			errors.Is(err, ErrInvalidMobility) || errors.Is(err, ErrUnknownTooth) || errors.Is(err, ErrInvalidSurface) {
			return c.JSON(http.StatusOK, inputResponse{Rejected: err.Error(), UI: toUIResponse(out.UI)})
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp := inputResponse{Mutated: out.Mutated, UI: toUIResponse(out.UI)}
	if out.Change != nil {
		entry := out.Change.Entry
		resp.Entry = &entry
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) OpenSession(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	engine, err := h.svc.OpenSession(c.Request().Context(), id)
	if err != nil {
		return chartError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"chart": engine.TeethData(),
		"ui":    toUIResponse(engine.UI()),
	})
}

func (h *Handler) CloseSession(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.CloseSession(id); err != nil {
		return chartError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetChart(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	state, err := h.svc.Snapshot(c.Request().Context(), id)
	if err != nil {
		return chartError(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *Handler) ReplaceChart(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	var state ChartState
	if err := c.Bind(&state); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ReplaceChart(c.Request().Context(), id, state); err != nil {
		return chartError(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *Handler) GetSummary(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	state, err := h.svc.Snapshot(c.Request().Context(), id)
	if err != nil {
		return chartError(err)
	}
	return c.String(http.StatusOK, Summary(state))
}

func (h *Handler) ListHistory(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.History(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return chartError(err)
	}
	if items == nil {
		items = []HistoryEntry{}
	}
	resp := pagination.NewResponse(items, total, pg.Limit, pg.Offset)
	resp.Links = pg.Links(c.Request().URL.Path, total)
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetSVG(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	frame, err := h.svc.Frame(c.Request().Context(), id)
	if err != nil {
		return chartError(err)
	}
	var buf bytes.Buffer
	if err := canvas.EncodeSVG(&buf, frame); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, "image/svg+xml", buf.Bytes())
}

func (h *Handler) GetPNG(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	opts := canvas.DefaultPNGOptions()
	if v := c.QueryParam("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 || scale > 4 {
			return echo.NewHTTPError(http.StatusBadRequest, "scale must be in (0, 4]")
		}
		opts.Scale = scale
	}
	frame, err := h.svc.Frame(c.Request().Context(), id)
	if err != nil {
		return chartError(err)
	}
	var buf bytes.Buffer
	if err := canvas.EncodePNG(&buf, frame, opts); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handler) Pointer(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.svc.HandlePointer(c.Request().Context(), id, req.X, req.Y)
	return respondInput(c, out, err)
}

func (h *Handler) Region(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Key string `json:"key"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}
	out, err := h.svc.HandleRegion(c.Request().Context(), id, req.Key)
	return respondInput(c, out, err)
}

func (h *Handler) Key(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Key          string `json:"key"`
		FocusedInput bool   `json:"focused_input"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ui, err := h.svc.PressKey(id, KeyEvent{Key: req.Key, FocusedInput: req.FocusedInput})
	if err != nil {
		return chartError(err)
	}
	return c.JSON(http.StatusOK, toUIResponse(ui))
}

func (h *Handler) SetMode(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := ParseMode(req.Mode)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ui, err := h.svc.SetMode(id, m)
	if err != nil {
		return chartError(err)
	}
	return c.JSON(http.StatusOK, toUIResponse(ui))
}

func (h *Handler) SetCondition(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Condition string `json:"condition"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cond, err := ParseCondition(req.Condition)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ui, err := h.svc.SetActiveCondition(id, cond)
	if err != nil {
		return chartError(err)
	}
	return c.JSON(http.StatusOK, toUIResponse(ui))
}

func (h *Handler) CommitNote(c echo.Context) error {
	id, err := patientParam(c)
	if err != nil {
		return err
	}
	var req struct {
		Note string `json:"note"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.svc.CommitNote(c.Request().Context(), id, req.Note)
	return respondInput(c, out, err)
}

func (h *Handler) GetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"modes":   []Mode{ModeSurface, ModeWhole},
		"entries": Catalog,
	})
}

type numberingEntry struct {
	Internal int    `json:"internal"`
	Display  string `json:"display"`
	Classification
}

func (h *Handler) GetNumbering(c echo.Context) error {
	out := make([]numberingEntry, 0, ToothCount)
	for id := 1; id <= ToothCount; id++ {
		out = append(out, numberingEntry{Internal: id, Display: ToDisplay(id), Classification: Classify(id)})
	}
	return c.JSON(http.StatusOK, out)
}
