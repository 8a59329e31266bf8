package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tradejournal/internal/analytics"
	"tradejournal/internal/app"
	"tradejournal/internal/ports"
)

const defaultTopSymbols = 5

type handlers struct {
	journal      Journal
	logger       ports.Logger
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

func (h *handlers) register(group *gin.RouterGroup) {
	group.GET("/trades", h.listTrades)
	group.POST("/trades", h.createTrade)
	group.DELETE("/trades/clear", h.clearTrades)
	group.GET("/trades/:id", h.getTrade)
	group.PUT("/trades/:id", h.editTrade)
	group.DELETE("/trades/:id", h.deleteTrade)
	group.POST("/trades/:id/close", h.closeTrade)

	group.GET("/analytics", h.metrics)
	group.GET("/analytics/monthly", h.monthly)
	group.GET("/analytics/grades", h.grades)
	group.GET("/analytics/symbols", h.symbols)
	group.GET("/analytics/daily", h.daily)
}

func (h *handlers) listTrades(c *gin.Context) {
	limit, ok := queryInt(c, "limit", h.defaultLimit)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	if limit <= 0 {
		limit = h.defaultLimit
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	trades, total, err := h.journal.ListTrades(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trades": trades,
		"pagination": Pagination{
			Limit:   limit,
			Offset:  offset,
			Total:   total,
			HasMore: offset+len(trades) < total,
		},
	})
}

func (h *handlers) getTrade(c *gin.Context) {
	trade, err := h.journal.GetTrade(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (h *handlers) createTrade(c *gin.Context) {
	var in app.NewTrade
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, ErrCodeInvalidParameter, "invalid request body: "+err.Error())
		return
	}
	trade, err := h.journal.CreateTrade(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trade)
}

func (h *handlers) editTrade(c *gin.Context) {
	var edit app.TradeEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		writeError(c, http.StatusBadRequest, ErrCodeInvalidParameter, "invalid request body: "+err.Error())
		return
	}
	trade, err := h.journal.EditTrade(c.Request.Context(), c.Param("id"), edit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

type closeRequest struct {
	ExitPrice *float64 `json:"exit_price"`
}

func (h *handlers) closeTrade(c *gin.Context) {
	var req closeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, ErrCodeValidation, "exit_price must be a number")
		return
	}
	if req.ExitPrice == nil {
		writeError(c, http.StatusBadRequest, ErrCodeValidation, "exit_price is required")
		return
	}
	trade, err := h.journal.CloseTrade(c.Request.Context(), c.Param("id"), *req.ExitPrice)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (h *handlers) deleteTrade(c *gin.Context) {
	id := c.Param("id")
	if err := h.journal.DeleteTrade(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trade deleted successfully", "id": id})
}

func (h *handlers) clearTrades(c *gin.Context) {
	n, err := h.journal.ClearTrades(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All trades cleared", "deleted": n})
}

func (h *handlers) metrics(c *gin.Context) {
	m, err := h.journal.Metrics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *handlers) monthly(c *gin.Context) {
	trades, err := h.journal.AllTrades(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"months": analytics.MonthlyPnLOf(trades)})
}

func (h *handlers) grades(c *gin.Context) {
	trades, err := h.journal.AllTrades(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grades": analytics.GradeDistributionOf(trades)})
}

func (h *handlers) symbols(c *gin.Context) {
	n, ok := queryInt(c, "limit", defaultTopSymbols)
	if !ok {
		return
	}
	trades, err := h.journal.AllTrades(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": analytics.TopSymbols(trades, n)})
}

// daily defaults to the current Sunday-to-Sunday week.
func (h *handlers) daily(c *gin.Context) {
	from, to := analytics.WeekBounds(h.now())
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(c, http.StatusBadRequest, ErrCodeInvalidParameter, "from must be YYYY-MM-DD")
			return
		}
		from = t
		if c.Query("to") == "" {
			to = from.AddDate(0, 0, 7)
		}
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(c, http.StatusBadRequest, ErrCodeInvalidParameter, "to must be YYYY-MM-DD")
			return
		}
		to = t
	}
	if !to.After(from) {
		writeError(c, http.StatusBadRequest, ErrCodeInvalidParameter, "to must be after from")
		return
	}
	if to.Sub(from) > 366*24*time.Hour {
		writeError(c, http.StatusBadRequest, ErrCodeInvalidParameter, "range is limited to one year")
		return
	}

	trades, err := h.journal.AllTrades(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from": from.Format("2006-01-02"),
		"to":   to.Format("2006-01-02"),
		"days": analytics.DailyPnLOf(trades, from, to),
	})
}

// queryInt reads an optional integer query parameter, writing a 400 when it is malformed.
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeError(c, http.StatusBadRequest, ErrCodeInvalidParameter, key+" must be an integer")
		return 0, false
	}
	return n, true
}
