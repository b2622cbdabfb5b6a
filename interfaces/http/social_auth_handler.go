package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/clients/social"
	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/logger"
)

type ISocialAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
	Status(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
}

type socialAuthHandler struct {
	manager *social.Manager
}

func NewSocialAuthHandler(manager *social.Manager) ISocialAuthHandler {
	return &socialAuthHandler{manager: manager}
}

func (h *socialAuthHandler) platform(c *gin.Context) (social.Platform, bool) {
	p, err := social.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return p, true
}

// GetAuthURL builds the platform's OAuth URL (user must approve in browser).
func (h *socialAuthHandler) GetAuthURL(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}
	authURL, err := h.manager.AuthURL(c.Request.Context(), p, c.Query("redirect_uri"))
	if err != nil {
		status := http.StatusInternalServerError
		if _, notConfigured := err.(*social.NotConfiguredError); notConfigured {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// Callback lands the OAuth redirect: validates state, exchanges the code and
// reports a boolean outcome. Exchange detail stays in the server log.
func (h *socialAuthHandler) Callback(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"connected": false, "error": "missing code"})
		return
	}
	if !h.manager.ValidateState(c.Request.Context(), p, state) {
		c.JSON(http.StatusBadRequest, gin.H{"connected": false, "error": "invalid_state"})
		return
	}
	connected := h.manager.HandleAuthCallback(c.Request.Context(), p, code)
	if !connected {
		logger.GetLogger().WithField("platform", p).Warn("OAuth callback failed")
	}
	if c.Query("frontend") == "1" {
		c.Header("Content-Type", "text/html; charset=utf-8")
		_, _ = c.Writer.Write([]byte(fmt.Sprintf(`<!DOCTYPE html><html><head><title>Connected</title></head><body><script>if (window.opener){window.opener.postMessage({source:'social-oauth',platform:%q,connected:%t},'*');window.close();}else{document.write('%s connected: %t');}</script></body></html>`, p, connected, p, connected)))
		return
	}
	status := http.StatusOK
	if !connected {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"platform": p, "connected": connected})
}

// Status reports one platform's connection health.
func (h *socialAuthHandler) Status(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}
	conn, registered := h.manager.Connector(p)
	if !registered {
		c.JSON(http.StatusOK, gin.H{"platform": p, "connected": false, "configured": false})
		return
	}
	c.JSON(http.StatusOK, conn.Status(c.Request.Context()))
}

func (h *socialAuthHandler) Disconnect(c *gin.Context) {
	p, ok := h.platform(c)
	if !ok {
		return
	}
	if !h.manager.Disconnect(p) {
		c.JSON(http.StatusBadRequest, gin.H{"error": (&social.NotConfiguredError{Platform: p}).Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"platform": p, "connected": false})
}
