package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type subscribeRequest struct {
	PackageID int `json:"packageId"`
}

func decodeSubscribeRequest(raw []byte) (subscribeRequest, error) {
	var req subscribeRequest
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid JSON: %w", err)
	}
	if req.PackageID <= 0 {
		return req, fmt.Errorf("packageId must be a positive integer")
	}
	return req, nil
}
