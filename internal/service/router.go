package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/central-contacts/internal/metrics"
	"gitlab.com/dirk.krummacker/central-contacts/internal/middleware"
)

// RouterOptions control the middleware installed in front of the contact endpoints.
type RouterOptions struct {
	Logger      *zap.Logger
	AccessLog   bool
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int
}

// SetupHttpRouter initializes the REST API router and registers all endpoints.
func SetupHttpRouter(svc *ContactService, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())
	if opts.AccessLog {
		router.Use(middleware.RequestLogger(logger))
	}
	router.Use(metrics.Handler())
	if len(opts.CORSOrigins) > 0 {
		router.Use(middleware.CORS(opts.CORSOrigins))
	}

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", metrics.Exposer())

	contacts := router.Group("/contacts")
	if opts.RateLimit > 0 {
		contacts.Use(middleware.RateLimit(opts.RateLimit, opts.RateBurst))
	}
	contacts.GET("", findContacts(svc))
	contacts.POST("", createContact(svc))
	return router
}

// findContacts responds with the list of all contacts as JSON, in the order they were created.
// An empty list is returned as [].
//
// Example REST API call:
//
//	> curl "http://localhost:8080/contacts"
func findContacts(svc *ContactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome := svc.HandleList(c.Request.Context())
		c.IndentedJSON(outcome.Status, outcome.Body)
	}
}

// createContact stores the contact specified in the request's JSON. It responds with the full
// contact data including the newly assigned id.
//
// Limitations:
// - The name must be present, phone and email default to an empty string.
// - An id in the request body is ignored.
// - Bodies larger than MaxPayloadBytes are rejected.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts --request "POST" --include --header "Content-Type: application/json" --data '{"name": "Jane Doe", "phone": "555-1111", "email": "jane@example.com"}'
func createContact(svc *ContactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxPayloadBytes)
		payload, err := c.GetRawData()
		if err != nil {
			outcome := svc.reject(&DecodeError{Err: err})
			c.AbortWithStatusJSON(outcome.Status, outcome.Body)
			return
		}
		outcome := svc.HandleCreate(c.Request.Context(), payload)
		c.IndentedJSON(outcome.Status, outcome.Body)
	}
}
