package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"retail-sales/logger"
	"retail-sales/models"
	"retail-sales/services"
	"retail-sales/utils"
)

type SalesQuerier interface {
	GetSales(ctx context.Context, req models.FilterRequest) (*models.ResultPage, error)
}

type FilterOptionsProvider interface {
	FilterOptions(ctx context.Context) models.FilterOptions
}

// GetSales serves GET /sales.
func GetSales(svc SalesQuerier, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := utils.ParseSalesRequest(c)

		page, err := svc.GetSales(c.UserContext(), req)
		if err != nil {
			log.Error("fetch sales failed", map[string]interface{}{
				"error":  err,
				"search": req.SearchText,
				"page":   req.Page,
			})
			if errors.Is(err, services.ErrStoreUnavailable) {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "Database connection unavailable",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		return c.JSON(page)
	}
}

// GetFilters serves GET /sales/filters. It never fails; a degraded store yields empty lists.
func GetFilters(provider FilterOptionsProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(provider.FilterOptions(c.UserContext()))
	}
}
