package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/v1/inscriptions")

	r.Get("/status", h.GetStatus)
	r.Get("/blocks/:height", h.GetBlockProgress)
	return nil
}
