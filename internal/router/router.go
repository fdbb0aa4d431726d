package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/facilityops/key-custody/internal/handler"
	"github.com/facilityops/key-custody/internal/middleware"
)

// Handlers bundles everything the route table needs.  The caller wires
// the concrete instances in main and passes them down in one struct so
// the registration functions stay flat.
type Handlers struct {
	Operation *handler.OperationHandler
	Directory *handler.DirectoryHandler
	Gate      *handler.GateHandler
	Registry  *handler.AdminRegistryHandler
	Auths     *handler.AdminAuthorizationHandler
	Reports   *handler.AdminReportHandler
	QR        *handler.QRHandler
}

// RegisterRoutes registers routes that do not require the admin gate.
// The health check lives at the root; everything else sits under /v1.
func RegisterRoutes(e *echo.Echo, h Handlers, rdb *redis.Client, checkoutBurst int) {
	// Liveness probe for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")

	// Guardhouse reads.  The status board is the landing screen, the
	// directory endpoints feed its pickers.
	v1.GET("/status", h.Operation.Status)
	v1.GET("/spaces", h.Directory.ListSpaces)
	v1.GET("/spaces/:key", h.Directory.GetSpace)
	v1.GET("/persons", h.Directory.ListPersons)
	v1.GET("/keys/:key/authorized", h.Operation.AuthorizedPeople)
	v1.GET("/deeplink", h.Operation.Deeplink)

	// Custody writes.  Rate limited per source IP so a stuck scanner
	// cannot flood the ledger.
	ops := v1.Group("/keys/:key")
	ops.Use(middleware.CheckoutRateLimit(rdb, checkoutBurst))
	ops.POST("/checkout", h.Operation.Checkout)
	ops.POST("/checkin", h.Operation.Checkin)

	// The gate login itself is public; it issues the token the admin
	// group below requires.
	v1.POST("/admin/login", h.Gate.Login)
}

// RegisterAdmin registers the administrative surface behind the gate
// token middleware.
func RegisterAdmin(e *echo.Echo, h Handlers, tokenSecret string) {
	admin := e.Group("/v1/admin")
	admin.Use(middleware.AdminRequired(tokenSecret))

	// Registry maintenance.
	admin.PUT("/spaces/:key", h.Registry.UpsertSpace)
	admin.POST("/spaces/seed", h.Registry.SeedSpaces)
	admin.POST("/persons", h.Registry.CreatePerson)
	admin.PUT("/persons/:id", h.Registry.UpdatePerson)

	// Authorization grants.
	admin.POST("/authorizations", h.Auths.Create)
	admin.GET("/authorizations", h.Auths.List)
	admin.GET("/authorizations/:id/people", h.Auths.People)
	admin.POST("/authorizations/:id/people", h.Auths.AddPerson)

	// Reporting.
	admin.GET("/transactions", h.Reports.Transactions)
	admin.GET("/transactions/export.csv", h.Reports.ExportCSV)
	admin.GET("/metrics", h.Reports.Metrics)

	// Printable labels.  The file route serves key-<n>.png style names
	// so the handler owns the suffix parsing.
	admin.GET("/qrcodes/:file", h.QR.KeyPNG)
	admin.GET("/qrcodes.zip", h.QR.Bundle)
}
