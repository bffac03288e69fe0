package controller

import (
	"errors"
	"net/http"
	"strconv"

	"reader-go/internal/service/lookup"
	"reader-go/internal/service/phrase"
	"reader-go/internal/service/reader"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type ReaderController struct {
	manager  *reader.Manager
	upgrader *websocket.Upgrader
	logger   *zap.Logger
}

// NewReaderController serves the session routes. checkOrigin decides which
// origins may open a session stream; nil allows the serving host only.
func NewReaderController(manager *reader.Manager, checkOrigin func(*http.Request) bool, logger *zap.Logger) *ReaderController {
	return &ReaderController{
		manager:  manager,
		upgrader: newStreamUpgrader(checkOrigin),
		logger:   logger,
	}
}

type CreateSessionRequest struct {
	Text      string `json:"text"`
	Title     string `json:"title"`
	ContentID string `json:"content_id"`
}

type SelectRequest struct {
	Index *int `json:"index" binding:"required"`
}

type PinSenseRequest struct {
	Query *int `json:"query" binding:"required"`
	Entry *int `json:"entry" binding:"required"`
	Sense *int `json:"sense" binding:"required"`
}

type ExpandEntryRequest struct {
	Query *int `json:"query" binding:"required"`
	Entry *int `json:"entry" binding:"required"`
}

func (rc *ReaderController) CreateSession(c *gin.Context) {
	var request CreateSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		rc.badRequest(c, err)
		return
	}

	var s *reader.Session
	if request.ContentID != "" {
		rc.logger.Info("Loading content", zap.String("content_id", request.ContentID))
		var err error
		s, err = rc.manager.CreateFromContent(c.Request.Context(), request.ContentID)
		if err != nil {
			rc.fail(c, "Failed to load content", err)
			return
		}
	} else {
		s = rc.manager.Create(request.Text, request.Title)
	}

	c.JSON(http.StatusCreated, reader.BuildView(s.Snapshot()))
}

func (rc *ReaderController) GetSession(c *gin.Context) {
	s, ok := rc.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reader.BuildView(s.Snapshot()))
}

func (rc *ReaderController) CloseSession(c *gin.Context) {
	if err := rc.manager.Close(c.Param("id")); err != nil {
		rc.fail(c, "Failed to close session", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rc *ReaderController) Select(c *gin.Context) {
	var request SelectRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		rc.badRequest(c, err)
		return
	}
	rc.handle(c, reader.Event{Type: reader.EventSelect, Index: *request.Index})
}

func (rc *ReaderController) Activate(c *gin.Context) {
	i, ok := rc.phraseParam(c)
	if !ok {
		return
	}
	rc.handle(c, reader.Event{Type: reader.EventActivate, Phrase: i})
}

func (rc *ReaderController) DeletePhrase(c *gin.Context) {
	i, ok := rc.phraseParam(c)
	if !ok {
		return
	}
	rc.handle(c, reader.Event{Type: reader.EventDelete, Phrase: i})
}

func (rc *ReaderController) PinSense(c *gin.Context) {
	i, ok := rc.phraseParam(c)
	if !ok {
		return
	}
	var request PinSenseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		rc.badRequest(c, err)
		return
	}
	rc.handle(c, reader.Event{
		Type:   reader.EventPinSense,
		Phrase: i,
		Query:  *request.Query,
		Entry:  *request.Entry,
		Sense:  *request.Sense,
	})
}

func (rc *ReaderController) ExpandEntry(c *gin.Context) {
	i, ok := rc.phraseParam(c)
	if !ok {
		return
	}
	var request ExpandEntryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		rc.badRequest(c, err)
		return
	}
	rc.handle(c, reader.Event{
		Type:   reader.EventExpandEntry,
		Phrase: i,
		Query:  *request.Query,
		Entry:  *request.Entry,
	})
}

func (rc *ReaderController) handle(c *gin.Context, e reader.Event) {
	s, ok := rc.session(c)
	if !ok {
		return
	}
	snap, err := s.Handle(e)
	if err != nil {
		rc.fail(c, "Failed to apply "+string(e.Type), err)
		return
	}
	c.JSON(http.StatusOK, reader.BuildView(snap))
}

func (rc *ReaderController) session(c *gin.Context) (*reader.Session, bool) {
	s, err := rc.manager.Get(c.Param("id"))
	if err != nil {
		rc.fail(c, "Session not found", err)
		return nil, false
	}
	return s, true
}

func (rc *ReaderController) phraseParam(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("phrase"))
	if err != nil {
		rc.badRequest(c, err)
		return 0, false
	}
	return i, true
}

func (rc *ReaderController) badRequest(c *gin.Context, err error) {
	rc.logger.Error("Invalid request payload", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request payload",
		"details": err.Error(),
	})
}

func (rc *ReaderController) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		rc.logger.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		rc.logger.Debug(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

func statusFor(err error) int {
	var statusErr *lookup.StatusError
	switch {
	case errors.Is(err, reader.ErrSessionNotFound),
		errors.Is(err, lookup.ErrContentNotFound),
		errors.Is(err, phrase.ErrPhraseNotFound),
		errors.Is(err, phrase.ErrSenseNotFound),
		errors.Is(err, reader.ErrQueryNotFound),
		errors.Is(err, reader.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, phrase.ErrUnknownToken),
		errors.Is(err, phrase.ErrNotSelectable),
		errors.Is(err, reader.ErrUnknownEvent):
		return http.StatusBadRequest
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
