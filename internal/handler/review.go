package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/consultation-booking/internal/repository"
)

// ReviewHandler serves review submission and listing.
type ReviewHandler struct {
    Reviews *repository.ReviewRepo
}

func NewReviewHandler(r *repository.ReviewRepo) *ReviewHandler {
    if r == nil {
        panic("nil repository passed to NewReviewHandler")
    }
    return &ReviewHandler{Reviews: r}
}

type reviewReq struct {
    Rating int    `json:"rating"`
    Text   string `json:"text"`
}

// Submit handles POST /v1/consultants/:id/reviews. Submission consumes
// the one-shot eligibility token earned when a session with that
// consultant ended; without a token the request is denied, and a second
// review for the same consultant is a conflict.
func (h *ReviewHandler) Submit(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    consultantID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid consultant id"})
    }
    var req reviewReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Rating < 1 || req.Rating > 5 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
    }
    text := strings.TrimSpace(req.Text)
    if text == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "review text required"})
    }

    err = h.Reviews.Submit(c.Request().Context(), userID, consultantID, req.Rating, text)
    switch {
    case err == nil:
        return c.JSON(http.StatusCreated, echo.Map{"submitted": true})
    case errors.Is(err, repository.ErrNotEligible):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "you can only review a consultant after a session with them"})
    case errors.Is(err, repository.ErrAlreadyReviewed):
        return c.JSON(http.StatusConflict, echo.Map{"error": "you have already reviewed this consultant"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to submit review"})
    }
}

// List handles GET /v1/reviews, newest first.
func (h *ReviewHandler) List(c echo.Context) error {
    items, err := h.Reviews.List(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reviews"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
