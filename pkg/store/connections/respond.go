package connections

import (
	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/keys"
	"alumnichat/pkg/telemetry"
)

// Respond lets the recipient of a pending request accept or reject it.
// Accepting moves the pair to CONNECTED; rejecting returns it to NOT_CONNECTED
// so either side may request again.
func (r *Registry) Respond(responder, initiator string, d models.Decision) (models.ConnectionStatus, error) {
	tr := telemetry.Track("connections.respond")
	defer tr.Finish()

	if err := store.ValidateUsers(responder, initiator); err != nil {
		return models.ConnectionStatus{}, err
	}
	if d != models.DecisionAccept && d != models.DecisionReject {
		return models.ConnectionStatus{}, chaterr.ErrInvalidDecision
	}
	if responder == initiator {
		return models.ConnectionStatus{}, chaterr.ErrNotResponder
	}

	unlock := r.db.Lock(responder, initiator)
	defer unlock()

	rel, ok, err := r.db.Relationship(responder, initiator)
	if err != nil {
		return models.ConnectionStatus{}, err
	}
	if !ok || rel.State != models.StatePending {
		return models.ConnectionStatus{}, chaterr.ErrNoSuchRequest
	}
	if rel.Initiator != initiator {
		// the caller sent the request themselves
		return models.ConnectionStatus{}, chaterr.ErrNoSuchRequest
	}

	batch := r.db.Engine().NewBatch()
	defer batch.Close()
	if err := batch.Delete([]byte(keys.GenPendingIndexKey(responder, initiator))); err != nil {
		return models.ConnectionStatus{}, err
	}
	if err := batch.Delete([]byte(keys.GenOutgoingIndexKey(initiator, responder))); err != nil {
		return models.ConnectionStatus{}, err
	}

	var status models.ConnectionStatus
	switch d {
	case models.DecisionAccept:
		rel.State = models.StateConnected
		rel.UpdatedTS = r.db.Now()
		if err := store.SetJSON(batch, keys.GenRelationshipKey(responder, initiator), rel); err != nil {
			return models.ConnectionStatus{}, err
		}
		if err := batch.Set([]byte(keys.GenConnIndexKey(responder, initiator)), []byte("1")); err != nil {
			return models.ConnectionStatus{}, err
		}
		if err := batch.Set([]byte(keys.GenConnIndexKey(initiator, responder)), []byte("1")); err != nil {
			return models.ConnectionStatus{}, err
		}
		status = models.ConnectionStatus{State: models.StateConnected}
	case models.DecisionReject:
		if err := batch.Delete([]byte(keys.GenRelationshipKey(responder, initiator))); err != nil {
			return models.ConnectionStatus{}, err
		}
		status = models.ConnectionStatus{State: models.StateNotConnected}
	}

	tr.Mark("commit")
	if err := batch.Commit(); err != nil {
		logger.Error("connection_respond_failed", "responder", responder, "initiator", initiator, "error", err)
		return models.ConnectionStatus{}, err
	}

	telemetry.ConnectionTransitions.WithLabelValues(string(d)).Inc()
	logger.Info("connection_responded", "responder", responder, "initiator", initiator, "decision", string(d))
	return status, nil
}
