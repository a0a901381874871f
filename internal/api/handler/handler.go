package handler

import (
	"context"
	"net/http"

	"friendchat/backend/internal/auth"
	"friendchat/backend/internal/chathub"
	"friendchat/backend/internal/config"
	"friendchat/backend/internal/delivery"
	"friendchat/backend/internal/filestore"
	"friendchat/backend/internal/friendship"
	"friendchat/backend/internal/ledger"
	"friendchat/backend/internal/localization"
	"friendchat/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// FileRefStore persists file reference rows.
type FileRefStore interface {
	CreateFile(ctx context.Context, file *models.File) error
	GetFile(ctx context.Context, id uint) (*models.File, error)
}

// OnlineCounter reports the mirrored online population.
type OnlineCounter interface {
	OnlineCount(ctx context.Context) (int64, error)
}

// Handler holds the services behind the HTTP and websocket routes.
type Handler struct {
	Hub       *chathub.ManagerService
	Auth      *auth.Service
	Friends   *friendship.Service
	Messages  *delivery.Coordinator
	Ledger    *ledger.Ledger
	FileRefs  FileRefStore
	Localizer *localization.Localizer

	// Files is nil when no blob store is configured; uploads then fail
	// with storage_unavailable.
	Files       filestore.Store
	Presence    OnlineCounter
	MaxFileSize int64

	upgrader websocket.Upgrader
}

func NewHandler(
	hub *chathub.ManagerService,
	authSvc *auth.Service,
	friends *friendship.Service,
	messages *delivery.Coordinator,
	unread *ledger.Ledger,
	fileRefs FileRefStore,
	localizer *localization.Localizer,
	allowedOrigin string,
) *Handler {
	return &Handler{
		Hub:         hub,
		Auth:        authSvc,
		Friends:     friends,
		Messages:    messages,
		Ledger:      unread,
		FileRefs:    fileRefs,
		Localizer:   localizer,
		MaxFileSize: config.DefaultMaxFileSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
	}
}

// Routes mounts every route on r.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/api/health", h.Health)

	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)

	protected := r.Group("/", h.RequireAuth())
	protected.GET("/ws", h.ServeWebSocket)

	api := protected.Group("/api")
	api.GET("/auth/me", h.Me)
	api.POST("/auth/logout", h.Logout)

	friends := api.Group("/friends")
	friends.GET("/search", h.SearchUsers)
	friends.POST("/request", h.SendFriendRequest)
	friends.GET("/requests", h.PendingRequests)
	friends.POST("/requests/:requestId/accept", h.AcceptFriendRequest)
	friends.POST("/requests/:requestId/reject", h.RejectFriendRequest)
	friends.GET("/list", h.ListFriends)
	friends.DELETE("/:friendId", h.RemoveFriend)

	api.POST("/messages", h.SendMessage)
	api.GET("/messages/:userId", h.History)
	api.GET("/messages/:userId/unread", h.UnreadCount)
	api.POST("/messages/:userId/read", h.MarkRead)
	api.GET("/conversations", h.Conversations)

	api.POST("/files/upload", h.UploadFile)
	api.GET("/files/:fileId", h.FileInfo)
	api.GET("/files/:fileId/download", h.DownloadFile)
}

// originChecker accepts same-host requests without an Origin header and
// the configured browser origin. "*" allows any origin.
func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed == "*" {
			return true
		}
		return origin == allowed
	}
}
