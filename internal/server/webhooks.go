package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/campus/internal/billing/domain"
)

const signatureHeader = "X-Webhook-Signature"

// HandleWebhook ingests one signed provider delivery. Duplicate deliveries
// answer 200 like the first one did.
func (s *Server) HandleWebhook(c *gin.Context) {
	provider := c.Param("provider")

	if !s.webhookLimiter.Allow(c.Request.Context(), "webhook:"+provider) {
		s.metrics.RateLimitRejected(c.Request.Context(), "webhook")
		AbortWithError(c, errTooManyRequests)
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, billingdomain.ErrMalformedEvent)
		return
	}

	event, err := s.billingSvc.HandleWebhook(c.Request.Context(), provider, c.GetHeader(signatureHeader), payload)
	if err != nil && !errors.Is(err, billingdomain.ErrEventAlreadyProcessed) {
		AbortWithError(c, err)
		return
	}

	body := gin.H{
		"received":  true,
		"event_id":  event.ID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if errors.Is(err, billingdomain.ErrEventAlreadyProcessed) {
		body["duplicate"] = true
	}
	c.JSON(http.StatusOK, body)
}
