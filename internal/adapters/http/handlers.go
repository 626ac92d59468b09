package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/avelose/scraplink/internal/core"
	"github.com/avelose/scraplink/internal/domain"
	"github.com/avelose/scraplink/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Profiles    core.ProfileStore
	Transcripts core.TranscriptStore
	Secret      string
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
}

type loginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login issues a token for a username and upserts the profile. Real
// credential checks belong to the surrounding application, not here.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	uid := domain.UserID(req.Username)
	profile, err := domain.NewProfile(uid, req.Username)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.Profiles.GetProfile(c.Request.Context(), uid); err != nil {
		if !errors.Is(err, core.ErrProfileNotFound) {
			log.Error().Err(err).Str("module", "adapters.http").Msg("load profile on login")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
			return
		}
		if err := h.Profiles.PutProfile(c.Request.Context(), profile); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("put profile on login")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create profile"})
			return
		}
	}

	claims := middleware.Claims{
		UserID: string(uid),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.Secret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{Token: token, UserID: string(uid)})
}

func (h *Handlers) GetProfile(c *gin.Context) {
	uid := domain.UserID(c.Param("userId"))
	profile, err := h.Profiles.GetProfile(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, core.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("get profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// updateProfileRequest uses pointers to tell an absent field from an
// explicit empty string: nil leaves the field alone, "" clears it.
type updateProfileRequest struct {
	Username     *string `json:"username"`
	Bio          *string `json:"bio"`
	AvatarURL    *string `json:"avatarUrl"`
	ScrapbookRef *string `json:"scrapbookRef"`
}

// UpdateProfile lets a user edit their own record only.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	uid := domain.UserID(c.Param("userId"))
	if c.GetString("user_id") != string(uid) {
		c.JSON(http.StatusForbidden, gin.H{"error": "can only update own profile"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	profile, err := h.Profiles.GetProfile(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, core.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	if req.Username != nil {
		if *req.Username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrUsernameEmpty.Error()})
			return
		}
		if len(*req.Username) > domain.MaxUsernameLen {
			c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrUsernameTooLong.Error()})
			return
		}
		profile.Username = *req.Username
	}
	if req.Bio != nil {
		if err := profile.SetBio(*req.Bio); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = *req.AvatarURL
	}
	if req.ScrapbookRef != nil {
		profile.ScrapbookRef = *req.ScrapbookRef
	}

	if err := h.Profiles.PutProfile(c.Request.Context(), profile); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

type appendTranscriptRequest struct {
	ReceiverID    string `json:"receiverId" binding:"required"`
	Text          string `json:"text" binding:"required"`
	AttachmentRef string `json:"attachmentRef,omitempty"`
}

// AppendTranscript records a delivered chat line. The sender is always
// the authenticated user, never a client-asserted field.
func (h *Handlers) AppendTranscript(c *gin.Context) {
	var req appendTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg := &domain.ChatMessage{
		ID:            uuid.NewString(),
		SenderID:      domain.UserID(c.GetString("user_id")),
		ReceiverID:    domain.UserID(req.ReceiverID),
		Text:          req.Text,
		AttachmentRef: req.AttachmentRef,
		SentAt:        time.Now().UTC(),
	}
	if err := h.Transcripts.Append(c.Request.Context(), msg); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("append transcript")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to append transcript"})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// QueryTranscript returns the conversation between the authenticated
// user and :peerId, oldest first.
func (h *Handlers) QueryTranscript(c *gin.Context) {
	self := domain.UserID(c.GetString("user_id"))
	peer := domain.UserID(c.Param("peerId"))

	msgs, err := h.Transcripts.QueryByPair(c.Request.Context(), self, peer)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("query transcript")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transcript"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
