package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const requestIDKey = "request_id"

// Response 统一响应结构，HTTP 状态码固定 200，业务结果看 status_code
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// PageResponse 列表接口的响应
type PageResponse struct {
	Response
	Pagination Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// NewPagination 根据总数计算页数
func NewPagination(page, pageSize int, total int64) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{StatusCode: CodeOK, Msg: "success", Data: data})
}

func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, PageResponse{
		Response:   Response{StatusCode: CodeOK, Msg: "success", Data: data},
		Pagination: pagination,
	})
}

// Error 错误响应，data 中带上 request_id 方便排查
func Error(c *gin.Context, statusCode int, msg string) {
	var data interface{}
	if id := c.GetString(requestIDKey); id != "" {
		data = gin.H{requestIDKey: id}
	}
	c.JSON(http.StatusOK, Response{StatusCode: statusCode, Msg: msg, Data: data})
}

func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
}

func Forbidden(c *gin.Context, msg string) {
	Error(c, CodeForbidden, msg)
}
