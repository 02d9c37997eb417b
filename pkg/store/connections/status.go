package connections

import (
	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store"
)

// StatusOf reports the relationship between viewer and target from viewer's side.
func (r *Registry) StatusOf(viewer, target string) (models.ConnectionStatus, error) {
	if err := store.ValidateUsers(viewer, target); err != nil {
		return models.ConnectionStatus{}, err
	}
	if viewer == target {
		return models.ConnectionStatus{}, chaterr.ErrInvalidTarget
	}
	rel, ok, err := r.db.Relationship(viewer, target)
	if err != nil {
		return models.ConnectionStatus{}, err
	}
	if !ok {
		return models.ConnectionStatus{State: models.StateNotConnected}, nil
	}
	st := models.ConnectionStatus{State: rel.State}
	if rel.State == models.StatePending {
		st.Initiator = rel.Initiator
		st.IsInitiator = rel.Initiator == viewer
	}
	return st, nil
}
