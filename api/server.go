package api

import (
	"fmt"

	"github.com/florelle/veiling-BE/internal/auction"
	db "github.com/florelle/veiling-BE/internal/db/sqlc"
	"github.com/florelle/veiling-BE/internal/event"
	"github.com/florelle/veiling-BE/internal/token"
	"github.com/florelle/veiling-BE/internal/util"
	"github.com/florelle/veiling-BE/internal/worker"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Server struct {
	router          *gin.Engine
	dbStore         db.Store
	tokenMaker      token.Maker
	config          *util.Config
	taskDistributor worker.TaskDistributor
	taskInspector   worker.TaskInspector
	eventSender     event.Sender
	engine          *auction.Manager
}

// NewServer creates a new HTTP server and set up routing.
func NewServer(store db.Store, config *util.Config, taskDistributor worker.TaskDistributor, taskInspector worker.TaskInspector, eventSender event.Sender, engine *auction.Manager) (*Server, error) {
	// Create a new JWT token maker
	tokenMaker, err := token.NewJWTMaker(config.TokenSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token maker: %w", err)
	}
	log.Info().Msg("Token maker created successfully ✅")

	server := &Server{
		dbStore:         store,
		tokenMaker:      tokenMaker,
		config:          config,
		taskDistributor: taskDistributor,
		taskInspector:   taskInspector,
		eventSender:     eventSender,
		engine:          engine,
	}

	server.setupRouter()
	return server, nil
}

// setupRouter configures the HTTP server routes.
func (server *Server) setupRouter() *gin.Engine {
	gin.ForceConsoleColor()
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	v1 := router.Group("/v1")

	v1.POST("/auth/login", server.loginUser)
	v1.POST("/users", server.createUser)

	// Public APIs for lots (no login required)
	lotPublicGroup := v1.Group("/lots")
	{
		// List lots, optionally filtered by phase
		lotPublicGroup.GET("", server.listLots)

		// Details of one lot, overlaid with the live clock while running
		lotPublicGroup.GET(":lotID", server.getLotDetails)

		// SSE endpoint streaming price ticks and bid outcomes
		lotPublicGroup.GET(":lotID/stream", server.streamLotEvents)

		// Sales recorded against one lot
		lotPublicGroup.GET(":lotID/sales", server.listLotSales)
	}

	// Lot management (login required)
	lotManageGroup := v1.Group("/lots", authMiddleware(server.tokenMaker))
	{
		// Provision a pending lot from its catalog parameters
		lotManageGroup.POST("", server.createLot)

		// Schedule the clock to open at a given time
		lotManageGroup.POST(":lotID/schedule", server.scheduleLot)

		// Open the clock now
		lotManageGroup.POST(":lotID/start", server.startLot)

		// Abort a pending or running lot
		lotManageGroup.PATCH(":lotID/cancel", server.cancelLot)
	}

	// Bidding (login required)
	userLotGroup := v1.Group("/users/me/lots", authMiddleware(server.tokenMaker))
	{
		userLotGroup.POST(":lotID/bids", server.placeBid)
	}

	server.router = router
	return router
}

// Start runs the HTTP server on a specific address.
func (server *Server) Start(address string) error {
	return server.router.Run(address)
}
