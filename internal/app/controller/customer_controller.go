package controller

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/certolo/certolo-backend/internal/app/service"
	apperrors "github.com/certolo/certolo-backend/internal/errors"
	"github.com/certolo/certolo-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type CustomerController struct {
	customerService service.CustomerService
}

func NewCustomerController(customerService service.CustomerService) *CustomerController {
	return &CustomerController{
		customerService: customerService,
	}
}

// ListCustomers lists the companies that have applied to the caller's
// standards, with application and certificate counts.
// GET /api/v1/customers
func (ctrl *CustomerController) ListCustomers(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	limit, offset := pagination(c)

	customers, total, err := ctrl.customerService.List(middleware.Principal(c), c.Query("search"), limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "Only certifiers have a customer list")
			return
		}
		log.Error("Failed to list customers", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list customers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": customers,
		"total":     total,
	})
}

// ExportCustomers streams the caller's customer list as an Excel workbook
// GET /api/v1/customers/export
func (ctrl *CustomerController) ExportCustomers(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	file, err := ctrl.customerService.Export(middleware.Principal(c))
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			apperrors.Forbidden(c, "Only certifiers can export customers")
			return
		}
		log.Error("Failed to build customer export", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "export customers")
		return
	}

	filename := fmt.Sprintf("customers_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := file.Write(c.Writer); err != nil {
		log.Error("Failed to stream customer export", err, nil)
	}
}
