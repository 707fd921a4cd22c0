package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/api/handler/v1/request"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/domain"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/service"
)

type RaffleService interface {
	CreateRaffle(ctx context.Context, name string, owner domain.User) (uint, error)
	JoinRaffle(ctx context.Context, name, joinKey string, user domain.User) (uint, error)
	EndRaffle(ctx context.Context, raffleID uint, user domain.User) (domain.Raffle, error)
	GetRafflesList(ctx context.Context, userID uint) ([]domain.RaffleListItem, error)
	GetRaffleDetails(ctx context.Context, raffleID, userID uint) (domain.RaffleDetails, error)
	IsParticipating(ctx context.Context, raffleID, userID uint) (bool, error)
}

type RaffleHandler struct {
	svc  RaffleService
	uSvc UserService
}

func NewRaffleHandler(svc RaffleService, uSvc UserService) *RaffleHandler {
	return &RaffleHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// raffleErr maps a lifecycle error to its response. Unknown errors are internal.
func raffleErr(op string, err error) *response.Err {
	switch {
	case errors.Is(err, service.ErrRaffleNameTaken),
		errors.Is(err, service.ErrRaffleAlreadyFinished),
		errors.Is(err, service.ErrRaffleCannotClose):
		return response.ErrCode(http.StatusBadRequest, err)
	case errors.Is(err, service.ErrRaffleAlreadyJoined):
		return response.ErrCode(http.StatusForbidden, err)
	case errors.Is(err, service.ErrRaffleNotFound),
		errors.Is(err, service.ErrRaffleOwnedNotFound):
		return response.ErrCode(http.StatusNotFound, err)
	case errors.Is(err, service.ErrMatchingImpossible):
		e := response.ErrInternalServerError(fmt.Errorf("%s -> %w", op, err))
		e.Code = service.ErrMatchingImpossible.Error()
		return e
	}

	return response.ErrInternalServerError(fmt.Errorf("%s -> %w", op, err))
}

func parseRaffleID(ctx *gin.Context) (uint, *response.Err) {
	raffleID, err := strconv.ParseUint(ctx.Param("raffleID"), 10, 64)
	if err != nil || raffleID == 0 {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid raffle ID: %q", ctx.Param("raffleID")))
	}

	return uint(raffleID), nil
}

// HandleGetRaffles godoc
// @Summary      List raffles of the user
// @Description  Lists every raffle the authenticated user takes part in, in join order
// @Tags         raffles
// @Produce      json
// @Success      200  {array}   domain.RaffleListItem
// @Failure      401  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /raffles [get]
// @Security BearerAuth
func (h *RaffleHandler) HandleGetRaffles(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	list, err := h.svc.GetRafflesList(ctx.Request.Context(), user.ID)
	if err != nil {
		response.RenderErr(ctx, raffleErr("HandleGetRaffles -> h.svc.GetRafflesList", err))
		return
	}

	ctx.JSON(http.StatusOK, list)
}

// HandleCreateRaffle godoc
// @Summary      Create a raffle
// @Description  Creates a raffle owned by the authenticated user, who becomes its first participant
// @Tags         raffles
// @Accept       json
// @Produce      json
// @Param        input  body      request.CreateRaffleRequest  true  "Raffle name"
// @Success      201    {object}  response.RaffleIDResponse
// @Failure      400    {object}  response.Err
// @Failure      401    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /raffles [post]
// @Security BearerAuth
func (h *RaffleHandler) HandleCreateRaffle(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var input request.CreateRaffleRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	raffleID, err := h.svc.CreateRaffle(ctx.Request.Context(), input.Name, user)
	if err != nil {
		response.RenderErr(ctx, raffleErr("HandleCreateRaffle -> h.svc.CreateRaffle", err))
		return
	}

	ctx.JSON(http.StatusCreated, response.RaffleIDResponse{ID: raffleID})
}

// HandleJoinRaffle godoc
// @Summary      Join a raffle
// @Description  Joins the raffle with the given name using its join key
// @Tags         raffles
// @Accept       json
// @Produce      json
// @Param        input  body      request.JoinRaffleRequest  true  "Raffle name and key"
// @Success      200    {object}  response.RaffleIDResponse
// @Failure      400    {object}  response.Err
// @Failure      401    {object}  response.Err
// @Failure      403    {object}  response.Err
// @Failure      404    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /raffles/join [post]
// @Security BearerAuth
func (h *RaffleHandler) HandleJoinRaffle(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var input request.JoinRaffleRequest
	if err := ctx.ShouldBindJSON(&input); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := input.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	raffleID, err := h.svc.JoinRaffle(ctx.Request.Context(), input.Name, input.RaffleKey, user)
	if err != nil {
		response.RenderErr(ctx, raffleErr("HandleJoinRaffle -> h.svc.JoinRaffle", err))
		return
	}

	ctx.JSON(http.StatusOK, response.RaffleIDResponse{ID: raffleID})
}

// HandleGetRaffle godoc
// @Summary      Get raffle details
// @Description  The join key is only returned to the owner, the match only once the raffle is finished
// @Tags         raffles
// @Produce      json
// @Param        raffleID  path      int  true  "Raffle ID"
// @Success      200  {object}  domain.RaffleDetails
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /raffles/{raffleID} [get]
// @Security BearerAuth
func (h *RaffleHandler) HandleGetRaffle(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	raffleID, respErr := parseRaffleID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	details, err := h.svc.GetRaffleDetails(ctx.Request.Context(), raffleID, user.ID)
	if err != nil {
		response.RenderErr(ctx, raffleErr("HandleGetRaffle -> h.svc.GetRaffleDetails", err))
		return
	}

	ctx.JSON(http.StatusOK, details)
}

// HandleEndRaffle godoc
// @Summary      Close a raffle
// @Description  Matches every participant with a receiver. Only the owner can close a raffle, and only once.
// @Tags         raffles
// @Produce      json
// @Param        raffleID  path      int  true  "Raffle ID"
// @Success      200  {object}  domain.Raffle
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /raffles/{raffleID}/end [post]
// @Security BearerAuth
func (h *RaffleHandler) HandleEndRaffle(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	raffleID, respErr := parseRaffleID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	raffle, err := h.svc.EndRaffle(ctx.Request.Context(), raffleID, user)
	if err != nil {
		response.RenderErr(ctx, raffleErr("HandleEndRaffle -> h.svc.EndRaffle", err))
		return
	}

	ctx.JSON(http.StatusOK, raffle)
}
