package model

type KeyQRRequest struct {
	Seed     string `json:"seed" binding:"required,mnemonic"`
	Hostname string `json:"hostname" binding:"omitempty,hostname_rfc1123"`
}
