package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"chilljobs-api/internal/api/httpx"
	"chilljobs-api/internal/app/http/middleware"
	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/domain/access"
	"chilljobs-api/internal/infra/jobsapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Source is the job listing backend.
type Source interface {
	Jobs(ctx context.Context, q url.Values) (*jobsapi.Page, error)
	Job(ctx context.Context, id string) (json.RawMessage, error)
	Stats(ctx context.Context) (json.RawMessage, error)
}

type Handler struct {
	source Source
	log    *zap.SugaredLogger
}

func NewHandler(src Source, log *zap.SugaredLogger) *Handler {
	return &Handler{source: src, log: log}
}

var forwarded = []string{"category", "source", "search", "limit", "offset"}

// filters that only Pro callers may apply, keyed by the capability that
// unlocks them.
var proFilters = map[string]string{
	"no_phone":   access.CapNoPhoneFilter,
	"has_salary": access.CapSalaryFilter,
}

func upstreamQuery(in url.Values, policy access.Policy) url.Values {
	out := url.Values{}
	for _, k := range forwarded {
		if v := in.Get(k); v != "" {
			out.Set(k, v)
		}
	}
	for k, capability := range proFilters {
		if v := in.Get(k); v != "" && access.Has(policy.Capabilities, capability) {
			out.Set(k, v)
		}
	}
	return out
}

// GET /jobs
func (h *Handler) ListJobs(c *gin.Context) {
	policy := middleware.PolicyFrom(c)

	page, err := h.source.Jobs(c.Request.Context(), upstreamQuery(c.Request.URL.Query(), policy))
	if err != nil {
		h.fail(c, err)
		return
	}

	jobs := page.Jobs
	if jobs == nil {
		jobs = []json.RawMessage{}
	}
	locked := 0
	if policy.JobLimit > 0 && len(jobs) > policy.JobLimit {
		locked = len(jobs) - policy.JobLimit
		jobs = jobs[:policy.JobLimit]
	}

	c.JSON(http.StatusOK, gin.H{
		"count":        len(jobs),
		"offset":       page.Offset,
		"jobs":         jobs,
		"locked_count": locked,
		"access":       policy.State,
	})
}

// GET /jobs/:id is Pro-only; see routes.
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.source.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", job)
}

// GET /jobs/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.source.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", stats)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if apperr.Is(err, apperr.NotFound) {
		httpx.Error(c, err)
		return
	}
	h.log.Warnw("job api request failed", "path", c.FullPath(), "error", err)
	httpx.Fail(c, http.StatusBadGateway, err)
}
