package handler

import (
	"github.com/gin-gonic/gin"
)

// actorFrom 取触发操作的身份，来自前端透传的 X-Actor 头
func actorFrom(c *gin.Context) string {
	actor := c.GetHeader("X-Actor")
	if actor == "" {
		actor = "api"
	}
	return actor
}
