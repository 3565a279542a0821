package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every JSON API reply.
type Response struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

const (
	CodeSuccess      = "ok"
	CodeInvalidParam = "invalid-params"
	CodeUnavailable  = "unavailable"
)

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Message: "success", Data: data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{Code: code, Message: message})
}
