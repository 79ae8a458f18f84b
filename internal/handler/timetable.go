package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/consultation-booking/internal/booking"
    "github.com/iliyamo/consultation-booking/internal/repository"
    "github.com/iliyamo/consultation-booking/internal/slotclock"
)

// TimetableHandler serves the consultant listing and the reserve/cancel
// endpoints backed by the booking service.
type TimetableHandler struct {
    Users   *repository.UserRepo
    Booking *booking.Service
}

func NewTimetableHandler(users *repository.UserRepo, svc *booking.Service) *TimetableHandler {
    if users == nil || svc == nil {
        panic("nil dependency passed to NewTimetableHandler")
    }
    return &TimetableHandler{Users: users, Booking: svc}
}

type slotReq struct {
    Day  int `json:"day"`
    Hour int `json:"hour"`
}

// ListConsultants handles GET /v1/consultants. It returns every
// consultant with their 3x8 grid plus the clock's current slot, which the
// booking UI uses to highlight the live hour. Outside the consulting
// window current_slot is null.
func (h *TimetableHandler) ListConsultants(c echo.Context) error {
    items, err := h.Users.ListConsultants(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load consultants"})
    }
    var current interface{}
    if slot, ok := slotclock.Now(); ok {
        current = slot
    }
    return c.JSON(http.StatusOK, echo.Map{
        "items":        items,
        "current_slot": current,
    })
}

// Reserve handles POST /v1/consultants/:id/reserve. The body carries the
// target {day, hour}; the price is fixed server-side.
func (h *TimetableHandler) Reserve(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    consultantID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid consultant id"})
    }
    var req slotReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    err = h.Booking.Reserve(c.Request().Context(), userID, consultantID, req.Day, req.Hour)
    switch {
    case err == nil:
        return c.JSON(http.StatusCreated, echo.Map{
            "day":           req.Day,
            "hour":          req.Hour,
            "consultant_id": consultantID,
            "price":         booking.SlotPriceCredits,
        })
    case errors.Is(err, booking.ErrInvalidSlot):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be 1-3 and hour 1-8"})
    case errors.Is(err, repository.ErrConsultantNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "consultant not found"})
    case errors.Is(err, booking.ErrSlotTaken):
        return c.JSON(http.StatusConflict, echo.Map{"error": "this time slot is already reserved"})
    case errors.Is(err, repository.ErrInsufficientCredits):
        return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "not enough credits (50 required)"})
    case errors.Is(err, repository.ErrUserNotFound):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reserve slot"})
    }
}

// Cancel handles POST /v1/consultants/:id/cancel. Only the slot's current
// occupant may cancel; the fixed price is refunded.
func (h *TimetableHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    consultantID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid consultant id"})
    }
    var req slotReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    err = h.Booking.Cancel(c.Request().Context(), userID, consultantID, req.Day, req.Hour)
    switch {
    case err == nil:
        return c.JSON(http.StatusOK, echo.Map{
            "day":      req.Day,
            "hour":     req.Hour,
            "refunded": booking.SlotPriceCredits,
        })
    case errors.Is(err, booking.ErrInvalidSlot):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "day must be 1-3 and hour 1-8"})
    case errors.Is(err, repository.ErrConsultantNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "consultant not found"})
    case errors.Is(err, booking.ErrNotSlotOwner):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "you cannot cancel a slot you do not own"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel reservation"})
    }
}
