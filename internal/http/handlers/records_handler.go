// Record HTTP handlers.
//
//   - GET /finance   (list the caller's finance records, paginated, ETag)
//   - GET /tasks     (list the caller's tasks, paginated, ETag)
//
// These are plain ORM reads; they never go through generated SQL.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
	"github.com/tbourn/go-arth-chatbot/internal/utils"
)

// Pagination is included in list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListFinanceResponse wraps a page of finance records.
type ListFinanceResponse struct {
	Records    []domain.Finance `json:"records"`
	Pagination Pagination       `json:"pagination"`
}

// ListTasksResponse wraps a page of tasks.
type ListTasksResponse struct {
	Tasks      []domain.Task `json:"tasks"`
	Pagination Pagination    `json:"pagination"`
}

type statsFn func(ctx context.Context, tenant int64) (int64, *time.Time, error)

// notModified sets a weak ETag derived from (count, last update) and
// reports whether If-None-Match already matches it. Stats errors skip the
// check.
func notModified(c *gin.Context, kind string, tenant int64, stats statsFn) bool {
	count, maxTS, err := stats(c.Request.Context(), tenant)
	if err != nil {
		return false
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.Unix()
	}
	etag := fmt.Sprintf(`W/"%s:%d:%d:%d"`, kind, tenant, count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

func pagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// ListFinance godoc
// @ID          listFinance
// @Summary     List finance records (paginated)
// @Description Returns a page of the caller's finance records, newest first. Supports weak ETag via If-None-Match.
// @Tags        Records
// @Produce     json
//
// @Param       X-User-ID      header  int     true  "Authenticated user id"       example(42)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"finance:42:3:1760781600\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListFinanceResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Missing X-User-ID"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /finance [get]
func (h *Handlers) ListFinance(c *gin.Context) {
	uid, okTenant := tenant(c)
	if !okTenant {
		return
	}
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	if notModified(c, "finance", uid, h.records.FinanceStats) {
		return
	}

	items, total, err := h.records.ListFinance(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list finance records")
		return
	}
	ok(c, http.StatusOK, ListFinanceResponse{Records: items, Pagination: pagination(page, pageSize, total)})
}

// ListTasks godoc
// @ID          listTasks
// @Summary     List tasks (paginated)
// @Description Returns a page of the caller's tasks, soonest due first. Supports weak ETag via If-None-Match.
// @Tags        Records
// @Produce     json
//
// @Param       X-User-ID      header  int     true  "Authenticated user id"       example(42)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"tasks:42:3:1760781600\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTasksResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Missing X-User-ID"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tasks [get]
func (h *Handlers) ListTasks(c *gin.Context) {
	uid, okTenant := tenant(c)
	if !okTenant {
		return
	}
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	if notModified(c, "tasks", uid, h.records.TasksStats) {
		return
	}

	items, total, err := h.records.ListTasks(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list tasks")
		return
	}
	ok(c, http.StatusOK, ListTasksResponse{Tasks: items, Pagination: pagination(page, pageSize, total)})
}
