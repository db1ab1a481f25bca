package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) adminDashboard(c *gin.Context) {
	stats, err := h.dashboard.Admin(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handlers) vendorDashboard(c *gin.Context) {
	vendorID, ok := vendorScope(c)
	if !ok {
		return
	}
	stats, err := h.dashboard.Vendor(c.Request.Context(), vendorID)
	if err != nil {
		writeError(c, h.logger, err, nil)
		return
	}
	c.JSON(http.StatusOK, stats)
}
