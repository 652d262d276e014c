package updater

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cardstock/pkg/models"
)

// Handler is the webhook boundary: it authenticates the delta's origin
// before the updater is allowed to touch the snapshot.
type Handler struct {
	Updater *Updater
	Secret  string
}

func NewHandler(u *Updater, secret string) *Handler {
	return &Handler{Updater: u, Secret: secret}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/shopify", h.receive)
}

func (h *Handler) receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	// Signature check happens over the raw body, before any parsing,
	// and a failure mutates nothing.
	if !VerifySignature(h.Secret, body, c.GetHeader("X-Shopify-Hmac-Sha256")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var p models.Product
	if err := json.Unmarshal(body, &p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if p.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing product id"})
		return
	}

	topic := c.GetHeader("X-Shopify-Topic")
	applied, err := h.Updater.Apply(c.Request.Context(), topic, p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	// Out-of-domain products are acknowledged, not errored: Shopify
	// would retry anything else.
	c.JSON(http.StatusOK, gin.H{"ok": true, "skipped": !applied})
}

// VerifySignature checks the webhook HMAC: base64 of SHA-256 over the
// raw body, compared in constant time.
func VerifySignature(secret string, body []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(header))
}
