package connections

import (
	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/keys"
	"alumnichat/pkg/telemetry"
)

// Request records a pending request from one user to another.
func (r *Registry) Request(from, to string) (models.ConnectionStatus, error) {
	tr := telemetry.Track("connections.request")
	defer tr.Finish()

	if err := store.ValidateUsers(from, to); err != nil {
		return models.ConnectionStatus{}, err
	}
	if from == to {
		return models.ConnectionStatus{}, chaterr.ErrInvalidTarget
	}

	unlock := r.db.Lock(from, to)
	defer unlock()

	tr.Mark("load")
	rel, ok, err := r.db.Relationship(from, to)
	if err != nil {
		return models.ConnectionStatus{}, err
	}
	if ok {
		switch rel.State {
		case models.StateConnected:
			return models.ConnectionStatus{}, chaterr.ErrAlreadyConnected
		case models.StatePending:
			return models.ConnectionStatus{}, chaterr.ErrAlreadyPending
		}
	}

	now := r.db.Now()
	a, b := models.SortedPair(from, to)
	rel = models.Relationship{
		UserA:     a,
		UserB:     b,
		State:     models.StatePending,
		Initiator: from,
		CreatedTS: now,
		UpdatedTS: now,
	}
	req := models.ConnectionRequest{Initiator: from, Responder: to, CreatedTS: now}

	tr.Mark("commit")
	batch := r.db.Engine().NewBatch()
	defer batch.Close()
	if err := store.SetJSON(batch, keys.GenRelationshipKey(from, to), rel); err != nil {
		return models.ConnectionStatus{}, err
	}
	if err := store.SetJSON(batch, keys.GenPendingIndexKey(to, from), req); err != nil {
		return models.ConnectionStatus{}, err
	}
	if err := store.SetJSON(batch, keys.GenOutgoingIndexKey(from, to), req); err != nil {
		return models.ConnectionStatus{}, err
	}
	if err := batch.Commit(); err != nil {
		logger.Error("connection_request_failed", "from", from, "to", to, "error", err)
		return models.ConnectionStatus{}, err
	}

	telemetry.ConnectionTransitions.WithLabelValues("request").Inc()
	logger.Info("connection_requested", "from", from, "to", to)
	return models.ConnectionStatus{State: models.StatePending, Initiator: from, IsInitiator: true}, nil
}
