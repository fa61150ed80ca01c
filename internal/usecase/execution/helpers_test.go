package execution_test

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/usecase/dispute"
	"github.com/ignatzorin/escrow-backend/internal/usecase/usecasetest"
)

func disputeInput(orderID uuid.UUID, env *usecasetest.Env) dispute.OpenDisputeInput {
	return dispute.OpenDisputeInput{OrderID: orderID, Actor: env.Requester, Reason: "работа не принята"}
}
