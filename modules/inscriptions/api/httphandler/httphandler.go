package httphandler

import (
	"github.com/gaze-network/inscription-indexer/common"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/usecase"
)

type HttpHandler struct {
	usecase *usecase.Usecase
	network common.Network
}

func New(network common.Network, usecase *usecase.Usecase) *HttpHandler {
	return &HttpHandler{
		usecase: usecase,
		network: network,
	}
}
