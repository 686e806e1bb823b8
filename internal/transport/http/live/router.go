package livehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"spotanalitics/internal/agent"
	"spotanalitics/internal/forecast"
	"spotanalitics/internal/logger"
	"spotanalitics/internal/pkg/passlock"
	"spotanalitics/internal/store/evallog"
)

// Service 由 agent.LiveService 实现。
type Service interface {
	RunPass(ctx context.Context) (agent.PassReport, error)
	OpenForecasts(ctx context.Context) ([]forecast.Forecast, error)
	RecentHistory(ctx context.Context, limit int) ([]forecast.Forecast, error)
	Stats(ctx context.Context) (forecast.Summary, []forecast.Forecast, error)
}

// EvaluationQuery 查询评估日志。
type EvaluationQuery interface {
	List(ctx context.Context, q evallog.Query) ([]evallog.Record, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Router struct {
	svc   Service
	evals EvaluationQuery
}

func NewRouter(svc Service, evals EvaluationQuery) *Router {
	return &Router{svc: svc, evals: evals}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	group.GET("/forecasts/open", r.handleOpen)
	group.GET("/forecasts/history", r.handleHistory)
	group.GET("/forecasts/stats", r.handleStats)
	group.GET("/evaluations", r.handleEvaluations)
	group.POST("/passes", r.handleRunPass)
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func (r *Router) handleOpen(c *gin.Context) {
	open, err := r.svc.OpenForecasts(c.Request.Context())
	if err != nil {
		logger.Errorf("[api] open forecasts failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(open), "forecasts": nonNil(open)})
}

func (r *Router) handleHistory(c *gin.Context) {
	limit := parseLimit(c)
	history, err := r.svc.RecentHistory(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("[api] history failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"limit": limit, "forecasts": nonNil(history)})
}

func (r *Router) handleStats(c *gin.Context) {
	summary, _, err := r.svc.Stats(c.Request.Context())
	if err != nil {
		logger.Errorf("[api] stats failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (r *Router) handleEvaluations(c *gin.Context) {
	if r.evals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "evaluation journal disabled"})
		return
	}
	q := evallog.Query{
		Symbol: strings.TrimSpace(c.Query("symbol")),
		Reason: strings.TrimSpace(c.Query("reason")),
		Limit:  parseLimit(c),
	}
	records, err := r.evals.List(c.Request.Context(), q)
	if err != nil {
		logger.Errorf("[api] evaluations failed symbol=%s: %v", q.Symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []evallog.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "evaluations": records})
}

// handleRunPass 同步执行一次 pass；已有 pass 运行时返回 409。
func (r *Router) handleRunPass(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
	defer cancel()
	logger.Infof("[api] manual pass requested ip=%s", c.ClientIP())
	report, err := r.svc.RunPass(ctx)
	if err != nil {
		if errors.Is(err, passlock.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "a pass is already running"})
			return
		}
		logger.Errorf("[api] manual pass failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func nonNil(list []forecast.Forecast) []forecast.Forecast {
	if list == nil {
		return []forecast.Forecast{}
	}
	return list
}
