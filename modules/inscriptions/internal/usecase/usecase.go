package usecase

import (
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/datagateway"
)

type Usecase struct {
	inscriptionDg datagateway.InscriptionsReaderDataGateway
}

func New(inscriptionDg datagateway.InscriptionsReaderDataGateway) *Usecase {
	return &Usecase{
		inscriptionDg: inscriptionDg,
	}
}
