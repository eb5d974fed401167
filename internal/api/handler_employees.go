package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"machine-manual-backend/internal/model"
	"machine-manual-backend/internal/store"
)

type employeeRequest struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Department   *string `json:"department"`
	Position     *string `json:"position"`
	EmployeeCode *string `json:"employee_id"`
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Handler) employeeFilter(c *gin.Context) (store.EmployeeFilter, bool) {
	var f store.EmployeeFilter
	if v := c.Query("include_inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.badRequest(c, "invalid include_inactive")
			return f, false
		}
		f.IncludeInactive = b
	}
	return f, true
}

// ListEmployees handles GET /api/employees. Deactivated employees are
// hidden unless include_inactive is set.
func (h *Handler) ListEmployees(c *gin.Context) {
	filter, ok := h.employeeFilter(c)
	if !ok {
		return
	}
	var (
		employees []model.Employee
		err       error
	)
	if term := c.Query("search"); term != "" {
		employees, err = h.store.SearchEmployees(c.Request.Context(), term, filter)
	} else {
		page, ok := h.page(c)
		if !ok {
			return
		}
		employees, err = h.store.ListEmployees(c.Request.Context(), page, filter)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(employees))
}

// CreateEmployee handles POST /api/employees.
func (h *Handler) CreateEmployee(c *gin.Context) {
	var req employeeRequest
	if !h.bind(c, &req) {
		return
	}
	emp, err := h.store.CreateEmployee(c.Request.Context(), store.NewEmployee{
		FirstName:    value(req.FirstName),
		LastName:     value(req.LastName),
		Email:        value(req.Email),
		Phone:        req.Phone,
		Department:   req.Department,
		Position:     req.Position,
		EmployeeCode: value(req.EmployeeCode),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.WithField("employee_id", emp.ID).Info("employee created")
	c.JSON(http.StatusCreated, emp)
}

// GetEmployee handles GET /api/employees/:id.
func (h *Handler) GetEmployee(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	emp, err := h.store.GetEmployee(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

// UpdateEmployee handles PATCH /api/employees/:id.
func (h *Handler) UpdateEmployee(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req employeeRequest
	if !h.bind(c, &req) {
		return
	}
	emp, err := h.store.UpdateEmployee(c.Request.Context(), id, store.EmployeeUpdate{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Department:   req.Department,
		Position:     req.Position,
		EmployeeCode: req.EmployeeCode,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

// DeactivateEmployee handles POST /api/employees/:id/deactivate.
func (h *Handler) DeactivateEmployee(c *gin.Context) {
	h.setEmployeeStatus(c, model.EmployeeStatusInactive, h.store.DeactivateEmployee)
}

// ReactivateEmployee handles POST /api/employees/:id/reactivate.
func (h *Handler) ReactivateEmployee(c *gin.Context) {
	h.setEmployeeStatus(c, model.EmployeeStatusActive, h.store.ReactivateEmployee)
}

func (h *Handler) setEmployeeStatus(c *gin.Context, status model.EmployeeStatus, apply func(context.Context, int64) (*model.Employee, error)) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	emp, err := apply(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.WithFields(logrus.Fields{"employee_id": id, "status": status}).Info("employee status changed")
	c.JSON(http.StatusOK, emp)
}
