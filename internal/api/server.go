package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/yizeng/gab/gin/gorm/gifting-raffle/docs"
	v1 "github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/api/handler/v1"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/api/middleware"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/config"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/repository"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/repository/dao"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
	Events *v1.RaffleEventHub
}

func NewServer(conf *config.AppConfig, db *gorm.DB) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
		Events: v1.NewRaffleEventHub(),
	}

	s.MountMiddlewares()

	userSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db)))
	raffleSvc := service.NewRaffleService(repository.NewRaffleRepository(dao.NewRaffleDAO(db)), s.Events)

	authHandler := s.initAuthHandler(db)
	userHandler := v1.NewUserHandler(userSvc)
	raffleHandler := v1.NewRaffleHandler(raffleSvc, userSvc)
	eventsHandler := v1.NewRaffleEventsHandler(s.Events, raffleSvc, userSvc)
	s.MountHandlers(authHandler, userHandler, raffleHandler, eventsHandler)

	return s
}

func (s *Server) initAuthHandler(db *gorm.DB) *v1.AuthHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewAuthService(repo)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(authHandler *v1.AuthHandler, userHandler *v1.UserHandler, raffleHandler *v1.RaffleHandler, eventsHandler *v1.RaffleEventsHandler) {
	const basePath = "/api/v1"

	auth := s.Router.Group(basePath)
	{
		auth.POST("/auth/signup", authHandler.HandleSignup)
		auth.POST("/auth/login", authHandler.HandleLogin)
	}

	users := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		users.GET("/users/me", userHandler.HandleGetMe)
	}

	raffles := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		raffles.GET("/raffles", raffleHandler.HandleGetRaffles)
		raffles.POST("/raffles", raffleHandler.HandleCreateRaffle)
		raffles.POST("/raffles/join", raffleHandler.HandleJoinRaffle)
		raffles.GET("/raffles/:raffleID", raffleHandler.HandleGetRaffle)
		raffles.POST("/raffles/:raffleID/end", raffleHandler.HandleEndRaffle)
		raffles.GET("/raffles/:raffleID/events", eventsHandler.HandleRaffleEvents)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Gifting raffle API"
	docs.SwaggerInfo.Description = "Create a gift exchange, let friends join it with a key and draw who gives to whom."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
