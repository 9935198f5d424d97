package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"trading-sim-go/engine"
	"trading-sim-go/order"
)

type placeOrderRequest struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

// apiError 统一错误响应体。
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string    `json:"status"`
	Date   time.Time `json:"date"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Date:   time.Now().UTC(),
	})
}

func (s *Server) handlePlaceOrder(c echo.Context) error {
	var req placeOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiError{
			Code:    http.StatusBadRequest,
			Message: "invalid request body",
		})
	}
	if req.Symbol == "" || req.Quantity <= 0 {
		return c.JSON(http.StatusBadRequest, apiError{
			Code:    http.StatusBadRequest,
			Message: "symbol and a positive quantity are required",
		})
	}

	o := s.engine.Submit(req.Symbol, req.Quantity)
	return c.JSON(http.StatusCreated, o)
}

func (s *Server) handleListOrders(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.List())
}

func (s *Server) handleGetOrder(c echo.Context) error {
	o, err := s.engine.Get(c.Param("id"))
	if err != nil {
		return s.mapOrderError(c, err, "", "")
	}
	return c.JSON(http.StatusOK, o)
}

func (s *Server) handleExecuteOrder(c echo.Context) error {
	o, err := s.engine.Execute(c.Param("id"))
	if err != nil {
		return s.mapOrderError(c, err, "execute", "executed")
	}
	return c.JSON(http.StatusOK, o)
}

func (s *Server) handleCancelOrder(c echo.Context) error {
	o, err := s.engine.Cancel(c.Param("id"))
	if err != nil {
		return s.mapOrderError(c, err, "cancel", "cancelled")
	}
	return c.JSON(http.StatusOK, o)
}

// mapOrderError 将引擎的类型化错误映射为对应的客户端响应。
// verb/participle 为 "execute"/"executed" 或 "cancel"/"cancelled"。
func (s *Server) mapOrderError(c echo.Context, err error, verb, participle string) error {
	if errors.Is(err, order.ErrNotFound) {
		return c.JSON(http.StatusNotFound, apiError{
			Code:    http.StatusNotFound,
			Message: "Order not found",
		})
	}

	var ite *engine.InvalidTransitionError
	if errors.As(err, &ite) {
		return c.JSON(http.StatusBadRequest, apiError{
			Code: http.StatusBadRequest,
			Message: fmt.Sprintf("Cannot %s order in %s status. Only PENDING orders can be %s.",
				verb, ite.Current, participle),
		})
	}

	s.log.LogError(err, map[string]interface{}{"path": c.Path()})
	return c.JSON(http.StatusInternalServerError, apiError{
		Code:    http.StatusInternalServerError,
		Message: "internal error",
	})
}
