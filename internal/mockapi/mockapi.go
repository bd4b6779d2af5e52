// Package mockapi is an in-memory stand-in for the synthetics REST API,
// implementing the /synthetics/v1 surface over plain maps. Agents and tests
// are seeded by the caller, created tests receive incrementing ids and the
// data endpoints replay scripted responses from per-test queues. The package
// backs integration tests and is never linked into the CLI.
package mockapi

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/netsonde/synthctl/pkg/certificates"
)

const basePath = "/synthetics/v1"

// Server is a scriptable synthetics API double. Zero-value maps make it
// start empty; state is seeded through the Seed* and Script* methods.
type Server struct {
	store   *store
	engine  *gin.Engine
	srv     *http.Server
	certPEM []byte
}

type serverConfig struct {
	port  int
	email string
	token string
	tls   bool
}

// Option adjusts a mock server.
type Option func(*serverConfig)

// WithPort sets the port Start listens on. Handler does not need one.
func WithPort(port int) Option {
	return func(c *serverConfig) {
		c.port = port
	}
}

// WithAuth makes every route require the given account email and API token
// in the authentication headers.
func WithAuth(email, token string) Option {
	return func(c *serverConfig) {
		c.email = email
		c.token = token
	}
}

// WithTLS makes Start serve HTTPS with a fresh self-signed certificate. The
// certificate is exposed through CertificatePEM for client trust stores.
func WithTLS() Option {
	return func(c *serverConfig) {
		c.tls = true
	}
}

// New builds a mock server with empty state.
func New(opts ...Option) (*Server, error) {
	cfg := serverConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	gin.SetMode(gin.TestMode)
	engine := gin.New()

	s := &Server{
		store:  newStore(),
		engine: engine,
		srv: &http.Server{
			Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.port),
			Handler: engine,
		},
	}

	if cfg.tls {
		cert, key, err := certificates.GenerateSelfSignedCertificate(time.Now().AddDate(1, 0, 0))
		if err != nil {
			return nil, fmt.Errorf("failed to generate server certificate: %w", err)
		}
		tlsConfig, certPEM, err := getTLSConfig(cert, key)
		if err != nil {
			return nil, err
		}
		s.srv.TLSConfig = tlsConfig
		s.certPEM = certPEM
	}

	router := engine.Group(basePath)
	router.Use(
		ginzap.Ginzap(zap.S().Desugar(), time.RFC3339, true),
		ginzap.RecoveryWithZap(zap.S().Desugar(), true),
		s.countHits(),
	)
	if cfg.email != "" || cfg.token != "" {
		router.Use(requireAuth(cfg.email, cfg.token))
	}

	router.GET("/agents", s.listAgents)
	router.GET("/agents/:id", s.getAgent)
	router.PUT("/agents/:id", s.updateAgent)
	router.PATCH("/agents/:id", s.patchAgent)
	router.DELETE("/agents/:id", s.deleteAgent)

	router.GET("/tests", s.listTests)
	router.POST("/tests", s.createTest)
	router.GET("/tests/:id", s.getTest)
	router.PUT("/tests/:id", s.updateTest)
	router.PATCH("/tests/:id", s.patchTest)
	router.DELETE("/tests/:id", s.deleteTest)
	router.PUT("/tests/:id/status", s.setTestStatus)
	router.POST("/tests/results", s.testsResults)
	router.POST("/tests/:id/results/trace", s.testTrace)
	router.POST("/health/tests", s.testsHealth)

	return s, nil
}

// Handler exposes the engine for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// CertificatePEM returns the PEM-encoded server certificate of a TLS-enabled
// server, nil otherwise.
func (s *Server) CertificatePEM() []byte {
	return s.certPEM
}

// Start serves the API on the configured port until Stop or a listener
// error. TLS-enabled servers present their self-signed certificate.
func (s *Server) Start(ctx context.Context) error {
	if s.srv.TLSConfig != nil {
		return s.srv.ListenAndServeTLS("", "")
	}
	return s.srv.ListenAndServe()
}

// Stop shuts the listener down, waiting for in-flight requests.
func (s *Server) Stop(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		zap.S().Named("mockapi").Errorw("server shutdown", "error", err)
	}
}

// SeedAgent stores an agent, assigning an id when the payload carries none,
// and returns the id.
func (s *Server) SeedAgent(agent map[string]any) string {
	return s.store.insertAgent(agent)
}

// SeedTest stores a deployed test, assigning an id when the payload carries
// none and filling in the server-populated attributes, and returns the id.
func (s *Server) SeedTest(test map[string]any) string {
	return s.store.insertTest(test, false)
}

// SeedPresetTest stores a platform-provisioned test, visible only when
// listing with presets=true.
func (s *Server) SeedPresetTest(test map[string]any) string {
	return s.store.insertTest(test, true)
}

// ScriptHealth queues health documents for a test, consumed one per health
// query. A nil entry scripts one empty reply.
func (s *Server) ScriptHealth(testID string, docs ...map[string]any) {
	s.store.pushHealth(testID, docs...)
}

// ScriptResults queues one batch of result documents for a test, consumed
// by one results query.
func (s *Server) ScriptResults(testID string, docs []map[string]any) {
	s.store.pushResults(testID, docs)
}

// ScriptTrace queues trace documents for a test, consumed one per trace
// query.
func (s *Server) ScriptTrace(testID string, docs ...map[string]any) {
	s.store.pushTrace(testID, docs...)
}

// Test returns a copy of the stored test.
func (s *Server) Test(id string) (map[string]any, bool) {
	return s.store.getTest(id)
}

// Agent returns a copy of the stored agent.
func (s *Server) Agent(id string) (map[string]any, bool) {
	return s.store.getAgent(id)
}

// TestIDs returns the ids of all stored tests, presets included.
func (s *Server) TestIDs() []string {
	return s.store.testIDs()
}

// Hits reports how many requests reached the route registered under method
// and path pattern, e.g. Hits("POST", "/synthetics/v1/health/tests").
func (s *Server) Hits(method, path string) int {
	return s.store.hitCount(method + " " + path)
}

func (s *Server) countHits() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.store.hit(c.Request.Method + " " + c.FullPath())
		c.Next()
	}
}

func requireAuth(email, token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-NS-Auth-Email") != email || c.GetHeader("X-NS-Auth-Token") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.Next()
	}
}

func getTLSConfig(cert *x509.Certificate, privateKey *rsa.PrivateKey) (*tls.Config, []byte, error) {
	certPEM := new(bytes.Buffer)
	if err := pem.Encode(certPEM, &pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert.Raw,
	}); err != nil {
		return nil, nil, err
	}

	privKeyPEM := new(bytes.Buffer)
	if err := pem.Encode(privKeyPEM, &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}); err != nil {
		return nil, nil, err
	}

	serverCert, err := tls.X509KeyPair(certPEM.Bytes(), privKeyPEM.Bytes())
	if err != nil {
		return nil, nil, err
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		MinVersion:   tls.VersionTLS12,
	}
	return tlsConfig, certPEM.Bytes(), nil
}
