package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	domain "github.com/Sharath05hk/Minimart/internal/entity"
)

func idParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidation("id", "must be a positive integer")
	}
	return id, nil
}
