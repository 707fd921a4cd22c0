package response

type RaffleIDResponse struct {
	ID uint `json:"id"`
}
