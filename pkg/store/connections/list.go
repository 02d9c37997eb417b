package connections

import (
	"sort"

	"alumnichat/pkg/models"
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/keys"
)

// Pending lists requests waiting for user to respond, oldest first.
func (r *Registry) Pending(user string) ([]models.ConnectionRequest, error) {
	return r.requests(user, keys.GenPendingIndexPrefix(user))
}

// Outgoing lists requests user sent that are still pending, oldest first.
func (r *Registry) Outgoing(user string) ([]models.ConnectionRequest, error) {
	return r.requests(user, keys.GenOutgoingIndexPrefix(user))
}

func (r *Registry) requests(user, prefix string) ([]models.ConnectionRequest, error) {
	if err := store.ValidateUsers(user); err != nil {
		return nil, err
	}
	out := []models.ConnectionRequest{}
	err := store.ScanJSON(r.db, prefix, func(_ string, req models.ConnectionRequest) (bool, error) {
		out = append(out, req)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedTS < out[j].CreatedTS })
	return out, nil
}

// Connections lists the peers user is CONNECTED to, sorted by name.
func (r *Registry) Connections(user string) ([]string, error) {
	if err := store.ValidateUsers(user); err != nil {
		return nil, err
	}
	peers := []string{}
	err := r.db.Engine().Scan([]byte(keys.GenConnIndexPrefix(user)), nil, func(k, _ []byte) (bool, error) {
		peers = append(peers, keys.LastSegment(string(k)))
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return peers, nil
}
