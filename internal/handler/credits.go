package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/consultation-booking/internal/repository"
)

// CreditHandler exposes the admin top-up endpoint.
type CreditHandler struct {
    Credits *repository.CreditRepo
}

func NewCreditHandler(credits *repository.CreditRepo) *CreditHandler {
    if credits == nil {
        panic("nil repository passed to NewCreditHandler")
    }
    return &CreditHandler{Credits: credits}
}

type topUpReq struct {
    Amount int64 `json:"amount"`
}

// TopUp handles POST /v1/users/:id/credits. Admin-only; the role check
// runs in middleware. The amount must be a positive integer.
func (h *CreditHandler) TopUp(c echo.Context) error {
    userID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    var req topUpReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    err := h.Credits.Credit(c.Request().Context(), userID, req.Amount)
    switch {
    case err == nil:
        balance, err := h.Credits.Balance(c.Request().Context(), userID)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read balance"})
        }
        return c.JSON(http.StatusOK, echo.Map{"user_id": userID, "credits": balance})
    case errors.Is(err, repository.ErrInvalidAmount):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be a positive integer"})
    case errors.Is(err, repository.ErrUserNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add credits"})
    }
}
