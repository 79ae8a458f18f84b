package handler

import (
    "context"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/consultation-booking/internal/model"
    "github.com/iliyamo/consultation-booking/internal/repository"
    "github.com/iliyamo/consultation-booking/internal/session"
)

// Stores backing the gatekeeper under test. The chat store holds one
// chat between user 10 and consultant 20; the timetable and eligibility
// stores are inert because the denial paths never reach them.

type stubTimetable struct{}

func (stubTimetable) Occupant(context.Context, uint64, int, int) (*uint64, error) {
    return nil, nil
}
func (stubTimetable) ConsultantFor(context.Context, uint64, int, int) (uint64, bool, error) {
    return 0, false, nil
}
func (stubTimetable) Clear(context.Context, uint64, int, int) error { return nil }

type stubChats struct{}

func (stubChats) GetByID(_ context.Context, id uint64) (model.Chat, error) {
    if id == 1 {
        return model.Chat{ID: 1, UserID: 10, ConsultantID: 20, CreatedAt: time.Now()}, nil
    }
    return model.Chat{}, repository.ErrChatNotFound
}
func (stubChats) GetOrCreate(_ context.Context, userID, consultantID uint64) (model.Chat, error) {
    return model.Chat{ID: 1, UserID: userID, ConsultantID: consultantID}, nil
}
func (stubChats) Delete(context.Context, uint64) error { return nil }

type stubMessages struct{}

func (stubMessages) Append(_ context.Context, chatID, senderID uint64, body string) (model.Message, error) {
    return model.Message{ID: 7, ChatID: chatID, SenderID: senderID, Body: body, SentAt: time.Now()}, nil
}
func (stubMessages) ListAfter(context.Context, uint64, uint64) ([]model.Message, error) {
    return []model.Message{}, nil
}

type stubEligibility struct{}

func (stubEligibility) GrantEligibility(context.Context, uint64, uint64) error { return nil }

func newChatHandler() *ChatHandler {
    gk := session.NewGatekeeper(stubTimetable{}, stubChats{}, stubMessages{}, stubEligibility{}, nil, nil)
    return NewChatHandler(gk)
}

func chatRequest(t *testing.T, method, target, chatID string, userID uint64, body string) (echo.Context, *httptest.ResponseRecorder) {
    t.Helper()
    e := echo.New()
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, target, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, target, nil)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    if chatID != "" {
        c.SetParamNames("id")
        c.SetParamValues(chatID)
    }
    c.Set("user_id", float64(userID))
    c.Set("role", model.RoleUser)
    return c, rec
}

// Unknown chat and wrong party must be indistinguishable to the caller.
func TestChatDenialUniformity(t *testing.T) {
    h := newChatHandler()

    cases := []struct {
        name   string
        call   func() (echo.Context, *httptest.ResponseRecorder, func(echo.Context) error)
    }{
        {"post to unknown chat", func() (echo.Context, *httptest.ResponseRecorder, func(echo.Context) error) {
            c, rec := chatRequest(t, http.MethodPost, "/v1/chat/999/messages", "999", 10, `{"message":"hi"}`)
            return c, rec, h.PostMessage
        }},
        {"post as outsider", func() (echo.Context, *httptest.ResponseRecorder, func(echo.Context) error) {
            c, rec := chatRequest(t, http.MethodPost, "/v1/chat/1/messages", "1", 99, `{"message":"hi"}`)
            return c, rec, h.PostMessage
        }},
        {"poll unknown chat", func() (echo.Context, *httptest.ResponseRecorder, func(echo.Context) error) {
            c, rec := chatRequest(t, http.MethodGet, "/v1/chat/999/messages", "999", 10, "")
            return c, rec, h.Poll
        }},
        {"poll as outsider", func() (echo.Context, *httptest.ResponseRecorder, func(echo.Context) error) {
            c, rec := chatRequest(t, http.MethodGet, "/v1/chat/1/messages", "1", 99, "")
            return c, rec, h.Poll
        }},
        {"leave unknown chat", func() (echo.Context, *httptest.ResponseRecorder, func(echo.Context) error) {
            c, rec := chatRequest(t, http.MethodPost, "/v1/chat/999/leave", "999", 10, "")
            return c, rec, h.Leave
        }},
        {"leave as outsider", func() (echo.Context, *httptest.ResponseRecorder, func(echo.Context) error) {
            c, rec := chatRequest(t, http.MethodPost, "/v1/chat/1/leave", "1", 99, "")
            return c, rec, h.Leave
        }},
    }

    var firstBody string
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            c, rec, fn := tc.call()
            if err := fn(c); err != nil {
                t.Fatalf("handler error: %v", err)
            }
            if rec.Code != http.StatusForbidden {
                t.Fatalf("status = %d, want 403", rec.Code)
            }
            if firstBody == "" {
                firstBody = rec.Body.String()
            } else if rec.Body.String() != firstBody {
                t.Fatalf("denial bodies differ: %q vs %q", rec.Body.String(), firstBody)
            }
        })
    }
}

func TestActiveReportsInactiveForOutsiderAndUnknown(t *testing.T) {
    h := newChatHandler()
    for _, tc := range []struct {
        name        string
        chatID      string
        userID      uint64
    }{
        {"unknown chat", "999", 10},
        {"outsider", "1", 99},
    } {
        t.Run(tc.name, func(t *testing.T) {
            c, rec := chatRequest(t, http.MethodGet, "/v1/chat/"+tc.chatID+"/active", tc.chatID, tc.userID, "")
            if err := h.Active(c); err != nil {
                t.Fatalf("handler error: %v", err)
            }
            if rec.Code != http.StatusOK {
                t.Fatalf("status = %d, want 200", rec.Code)
            }
            if !strings.Contains(rec.Body.String(), `"active":false`) {
                t.Fatalf("body = %s, want active:false", rec.Body.String())
            }
        })
    }
}

func TestPostMessageRejectsEmptyBody(t *testing.T) {
    h := newChatHandler()
    c, rec := chatRequest(t, http.MethodPost, "/v1/chat/1/messages", "1", 10, `{"message":"   "}`)
    if err := h.PostMessage(c); err != nil {
        t.Fatalf("handler error: %v", err)
    }
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("status = %d, want 400", rec.Code)
    }
}

func TestPostMessageAccepted(t *testing.T) {
    h := newChatHandler()
    c, rec := chatRequest(t, http.MethodPost, "/v1/chat/1/messages", "1", 10, `{"message":"hello"}`)
    if err := h.PostMessage(c); err != nil {
        t.Fatalf("handler error: %v", err)
    }
    if rec.Code != http.StatusCreated {
        t.Fatalf("status = %d, want 201", rec.Code)
    }
    if !strings.Contains(rec.Body.String(), `"id":7`) {
        t.Fatalf("body = %s, want message id", rec.Body.String())
    }
}

func TestChatInvalidIDParam(t *testing.T) {
    h := newChatHandler()
    c, rec := chatRequest(t, http.MethodGet, "/v1/chat/abc/active", "abc", 10, "")
    if err := h.Active(c); err != nil {
        t.Fatalf("handler error: %v", err)
    }
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("status = %d, want 400", rec.Code)
    }
}
