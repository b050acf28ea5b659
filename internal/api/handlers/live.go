package handlers

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/airwaves-fm/stationsearch/internal/service"
	"github.com/airwaves-fm/stationsearch/internal/urlstate"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

const (
	liveWriteWait   = 10 * time.Second
	liveMaxMessage  = 4096
	liveReadTimeout = 10 * time.Minute
)

// LiveQuery is a search-as-you-type message sent by the client
type LiveQuery struct {
	Query string `json:"query"` // query string in the shareable URL format
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// LiveResult is pushed to the client for the latest query only
type LiveResult struct {
	Seq      uint64            `json:"seq"`
	State    string            `json:"state"`
	Response *service.Response `json:"response"`
}

// LiveHandler serves debounced search over a websocket. Each connection
// gets its own session, so a slow query never overwrites a newer one.
type LiveHandler struct {
	searchService *service.SearchService
	debounce      time.Duration
	defaultLimit  int
	upgrader      websocket.Upgrader
	logger        *logger.Logger
}

// NewLiveHandler creates a new live search handler
func NewLiveHandler(searchService *service.SearchService, debounce time.Duration, defaultLimit int, allowedOrigins []string, logger *logger.Logger) *LiveHandler {
	allowAll := slices.Contains(allowedOrigins, "*")
	return &LiveHandler{
		searchService: searchService,
		debounce:      debounce,
		defaultLimit:  defaultLimit,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowAll || slices.Contains(allowedOrigins, origin)
			},
		},
		logger: logger.WithComponent("live-handler"),
	}
}

// Serve upgrades the request and runs the session until the client disconnects
func (h *LiveHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session := service.NewSession(c.Request.Context(), h.searchService, h.debounce, h.logger)
	defer session.Close()
	log := h.logger.WithSession(session.ID)
	log.Debug("Live session opened", "client_ip", c.ClientIP())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range session.Results() {
			msg := LiveResult{
				Seq:      res.Seq,
				State:    urlstate.Encode(res.Filters),
				Response: res.Response,
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("Live write failed", "error", err)
				conn.Close()
				return
			}
		}
	}()

	conn.SetReadLimit(liveMaxMessage)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(liveReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("Live read failed", "error", err)
			}
			break
		}
		var q LiveQuery
		if err := json.Unmarshal(msg, &q); err != nil {
			// a bad message is skipped, the session stays open
			log.Debug("Ignoring malformed live query", "error", err)
			continue
		}
		if q.Page == 0 {
			q.Page = 1
		}
		if q.Limit == 0 {
			q.Limit = h.defaultLimit
		}
		session.Submit(urlstate.ParseQuery(q.Query), service.Options{Page: q.Page, Limit: q.Limit})
	}

	session.Close()
	<-done
	log.Debug("Live session closed", "requests", session.Seq())
}
