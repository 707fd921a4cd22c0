package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type CreateRaffleRequest struct {
	Name string `json:"name" binding:"required"`
}

func (req *CreateRaffleRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(2, 50)),
	)
}

type JoinRaffleRequest struct {
	Name      string `json:"name" binding:"required"`
	RaffleKey string `json:"raffle_key" binding:"required"`
}

func (req *JoinRaffleRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(2, 50)),
		validation.Field(&req.RaffleKey, validation.Required, validation.Length(1, 64)),
	)
}
