package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/consultation-booking/internal/repository"
    "github.com/iliyamo/consultation-booking/internal/session"
)

// ChatHandler exposes the gatekeeper over HTTP. Unknown chats and
// non-party requesters are served the same generic denial so a probe
// cannot learn whether a chat id exists.
type ChatHandler struct {
    Gatekeeper *session.Gatekeeper
}

func NewChatHandler(gk *session.Gatekeeper) *ChatHandler {
    if gk == nil {
        panic("nil gatekeeper passed to NewChatHandler")
    }
    return &ChatHandler{Gatekeeper: gk}
}

// denied is the uniform response for both unknown-chat and wrong-party
// requests.
func denied(c echo.Context) error {
    return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

// Enter handles GET /v1/chat. When the caller has a booking in the
// current slot it returns the chat (created on first access) and the
// slot; otherwise a specific denial explains why there is no session.
func (h *ChatHandler) Enter(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    sess, err := h.Gatekeeper.Enter(c.Request().Context(), userID, getRole(c))
    switch {
    case err == nil:
        return c.JSON(http.StatusOK, sess)
    case errors.Is(err, session.ErrNoActiveSlot):
        return c.JSON(http.StatusConflict, echo.Map{"error": "there are no active consulting sessions right now"})
    case errors.Is(err, session.ErrNotBooked):
        return c.JSON(http.StatusConflict, echo.Map{"error": "this time slot is not booked"})
    case errors.Is(err, repository.ErrForbidden):
        return denied(c)
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to open chat"})
    }
}

// Active handles GET /v1/chat/:id/active, the liveness poll that drives
// session teardown. A chat that no longer exists, or a caller who is not
// a party, both read as inactive.
func (h *ChatHandler) Active(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    chatID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid chat id"})
    }

    active, err := h.Gatekeeper.CheckActive(c.Request().Context(), chatID, userID)
    if err != nil {
        if errors.Is(err, repository.ErrForbidden) {
            return c.JSON(http.StatusOK, echo.Map{"active": false})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check chat"})
    }
    return c.JSON(http.StatusOK, echo.Map{"active": active})
}

type postMessageReq struct {
    Message string `json:"message"`
}

// PostMessage handles POST /v1/chat/:id/messages.
func (h *ChatHandler) PostMessage(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    chatID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid chat id"})
    }
    var req postMessageReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    msg, err := h.Gatekeeper.PostMessage(c.Request().Context(), chatID, userID, req.Message)
    switch {
    case err == nil:
        return c.JSON(http.StatusCreated, echo.Map{
            "id":      msg.ID,
            "sent_at": msg.SentAt.Format("15:04"),
        })
    case errors.Is(err, session.ErrEmptyMessage):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "empty message"})
    case errors.Is(err, repository.ErrChatNotFound), errors.Is(err, repository.ErrForbidden):
        return denied(c)
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
    }
}

// Poll handles GET /v1/chat/:id/messages?after=N. It returns every
// message with id greater than the cursor in ascending order, tagged with
// a per-message mine flag.
func (h *ChatHandler) Poll(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    chatID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid chat id"})
    }
    after, err := strconv.ParseUint(c.QueryParam("after"), 10, 64)
    if err != nil {
        after = 0
    }

    msgs, err := h.Gatekeeper.Poll(c.Request().Context(), chatID, userID, after)
    switch {
    case err == nil:
        return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
    case errors.Is(err, repository.ErrChatNotFound), errors.Is(err, repository.ErrForbidden):
        return denied(c)
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load messages"})
    }
}

// Leave handles POST /v1/chat/:id/leave. The session ends for both
// parties: the consultant's current slot is freed without a refund, the
// review token is granted and the chat is deleted.
func (h *ChatHandler) Leave(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    chatID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid chat id"})
    }

    err = h.Gatekeeper.Leave(c.Request().Context(), chatID, userID)
    switch {
    case err == nil:
        return c.JSON(http.StatusOK, echo.Map{"left": true})
    case errors.Is(err, repository.ErrChatNotFound), errors.Is(err, repository.ErrForbidden):
        return denied(c)
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to leave chat"})
    }
}
