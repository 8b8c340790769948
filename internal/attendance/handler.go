package attendance

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

// RegisterRoutes: 打刻の作成と参照
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/clock", h.Create)
	r.GET("/clock", h.List)
	r.GET("/clock/stats", h.Stats)
	r.GET("/clock/export", h.Export)
	r.GET("/clock/:id", h.Get)
	r.GET("/clock/:id/image", h.Image)
}

// RegisterAdminRoutes: 削除系。管理者ガード配下にぶら下げること
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.DELETE("/clock/:id", h.Delete)
	r.POST("/clock/bulk-delete", h.BulkDelete)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateClockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) List(c *gin.Context) {
	q := ListQuery{
		WorkerName:     c.Query("worker_name"),
		Limit:          atoiDefault(c.Query("limit"), DefaultListLimit),
		IncludeAddress: parseBoolish(c.Query("include_address")),
	}
	resp, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id, parseBoolish(c.Query("include_address")))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Image(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Image(c.Request.Context(), id)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Stats(c *gin.Context) {
	resp, err := h.svc.Stats(c.Request.Context(), c.Query("worker_name"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export: GET /clock/export?worker_name=&limit=&include_address=&encoding=sjis
func (h *Handler) Export(c *gin.Context) {
	enc, ok := ParseExportEncoding(c.Query("encoding"))
	if !ok {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "encoding must be utf8 or sjis"))
		return
	}
	q := ListQuery{
		WorkerName:     c.Query("worker_name"),
		Limit:          atoiDefault(c.Query("limit"), MaxListLimit),
		IncludeAddress: parseBoolish(c.Query("include_address")),
	}
	rows, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}

	// 途中で失敗しても JSON を返せるよう一旦バッファに書く
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows, enc, q.IncludeAddress); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "failed to write csv"))
		return
	}
	filename := fmt.Sprintf("clock_records_%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, ContentType(enc), buf.Bytes())
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted", "id": id})
}

func (h *Handler) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}
	resp, err := h.svc.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ===== helpers =====

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid id"))
		return 0, false
	}
	return id, true
}

func parseBoolish(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

func atoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
