package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type ProofPayloadResponse struct {
	Payload string `json:"payload"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

type BatchResultResponse struct {
	Count int `json:"count"`
}

type BalanceResponse struct {
	Balance int64 `json:"balance"` // nano
}
